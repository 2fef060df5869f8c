// internal/models/court.go
package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeSlot is one entry of a court's weekly template. Times are "HH:MM" in the
// venue's time zone; "24:00" marks the end of the day.
type TimeSlot struct {
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Price         Money  `json:"price"`
	IsMaintenance bool   `json:"is_maintenance"`
}

// Bounds returns the slot as minutes since midnight.
func (s TimeSlot) Bounds() (int, int, error) {
	start, err := ParseClock(s.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("start_time %w", err)
	}
	end, err := ParseClock(s.EndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("end_time %w", err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("end_time %s must be after start_time %s", s.EndTime, s.StartTime)
	}
	return start, end, nil
}

type DayAvailability struct {
	DayOfWeek string     `json:"day_of_week"`
	TimeSlots []TimeSlot `json:"time_slots"`
}

type Court struct {
	ID           int64             `json:"id"`
	VenueID      int64             `json:"venue_id"`
	SportType    string            `json:"sport_type"`
	CourtNames   []string          `json:"court_names"`
	Availability []DayAvailability `json:"availability"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// HasCourtName reports whether name is one of the court's physical courts.
func (c Court) HasCourtName(name string) bool {
	for _, courtName := range c.CourtNames {
		if courtName == name {
			return true
		}
	}
	return false
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	hours, minutes, ok := strings.Cut(raw, ":")
	if !ok || len(hours) == 0 || len(hours) > 2 || len(minutes) != 2 {
		return 0, fmt.Errorf("must use HH:MM format")
	}
	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, fmt.Errorf("must use HH:MM format")
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("must use HH:MM format")
	}
	total := h*60 + m
	if h < 0 || total > minutesPerDay {
		return 0, fmt.Errorf("must be between 00:00 and 24:00")
	}
	return total, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDayOfWeek accepts full English day names in any case.
func ParseDayOfWeek(raw string) (time.Weekday, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.ToLower(day.String()) == raw {
			return day, nil
		}
	}
	return 0, fmt.Errorf("day_of_week %q is not a day name", raw)
}

// DayName is the canonical lowercase day name stored with templates.
func DayName(day time.Weekday) string {
	return strings.ToLower(day.String())
}

// NormalizeAvailability validates a weekly template and returns it with
// canonical day names, each day's slots sorted by start time. Days may appear
// once; windows within a day may not overlap.
func NormalizeAvailability(days []DayAvailability) ([]DayAvailability, error) {
	seen := make(map[time.Weekday]struct{}, len(days))
	normalized := make([]DayAvailability, 0, len(days))
	for _, day := range days {
		weekday, err := ParseDayOfWeek(day.DayOfWeek)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[weekday]; ok {
			return nil, fmt.Errorf("day_of_week %s listed more than once", DayName(weekday))
		}
		seen[weekday] = struct{}{}

		slots := make([]TimeSlot, len(day.TimeSlots))
		copy(slots, day.TimeSlots)
		for i, slot := range slots {
			start, end, err := slot.Bounds()
			if err != nil {
				return nil, fmt.Errorf("%s slot %d: %w", DayName(weekday), i+1, err)
			}
			if slot.Price < 0 {
				return nil, fmt.Errorf("%s slot %d: price must be 0 or greater", DayName(weekday), i+1)
			}
			slots[i].StartTime = FormatClock(start)
			slots[i].EndTime = FormatClock(end)
		}
		sort.SliceStable(slots, func(i, j int) bool {
			return slots[i].StartTime < slots[j].StartTime
		})
		for i := 1; i < len(slots); i++ {
			if slots[i].StartTime < slots[i-1].EndTime {
				return nil, fmt.Errorf("%s slots %s-%s and %s-%s overlap",
					DayName(weekday), slots[i-1].StartTime, slots[i-1].EndTime, slots[i].StartTime, slots[i].EndTime)
			}
		}
		normalized = append(normalized, DayAvailability{DayOfWeek: DayName(weekday), TimeSlots: slots})
	}
	sort.Slice(normalized, func(i, j int) bool {
		a, _ := ParseDayOfWeek(normalized[i].DayOfWeek)
		b, _ := ParseDayOfWeek(normalized[j].DayOfWeek)
		return a < b
	})
	return normalized, nil
}

// NormalizeCourtNames trims names and drops blanks and duplicates, keeping
// the caller's order.
func NormalizeCourtNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	return normalized
}

// CourtBlock is an owner/admin-declared maintenance window. An empty
// CourtName blocks every physical court of the court record.
type CourtBlock struct {
	ID        int64     `json:"id"`
	CourtID   int64     `json:"court_id"`
	VenueID   int64     `json:"venue_id"`
	CourtName string    `json:"court_name,omitempty"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Reason    string    `json:"reason"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
