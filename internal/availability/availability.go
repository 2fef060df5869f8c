// Package availability turns weekly court templates into bookable windows
// for a calendar date.
package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/codr1/courtbook/internal/models"
)

const DateLayout = "2006-01-02"

// Window is one bookable time range on a date, aggregated over every
// physical court that offers it.
type Window struct {
	StartTime       string       `json:"start_time"`
	EndTime         string       `json:"end_time"`
	AvailableCourts int          `json:"available_courts"`
	PricePerHour    models.Money `json:"price_per_hour"`

	Start      time.Time `json:"-"`
	End        time.Time `json:"-"`
	CourtNames []string  `json:"-"`
}

// Interval is a template slot materialized at absolute times.
type Interval struct {
	Start       time.Time
	End         time.Time
	Price       models.Money
	Maintenance bool
}

// Busy marks a physical court as occupied for [Start, End).
type Busy struct {
	CourtName string
	Start     time.Time
	End       time.Time
}

// Calendar is the source of nominal availability.
type Calendar interface {
	// Windows lists the bookable windows of day across courts.
	Windows(courts []models.Court, day time.Time) []Window
	// Intervals lists court's schedule intervals touching [from, to).
	Intervals(court models.Court, from, to time.Time) []Interval
}

// ParseDate parses YYYY-MM-DD as midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must use YYYY-MM-DD format")
	}
	return day, nil
}

// At returns the wall-clock time minutes after midnight of day, in day's
// location. 1440 is midnight of the following day.
func At(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, minutes, 0, 0, day.Location())
}

// ResolveDayTemplate returns the court's template slots for the weekday of
// day, or nil when the court has no entry for it.
func ResolveDayTemplate(court models.Court, day time.Time) []models.TimeSlot {
	name := models.DayName(day.Weekday())
	for _, entry := range court.Availability {
		if strings.EqualFold(entry.DayOfWeek, name) {
			return entry.TimeSlots
		}
	}
	return nil
}

// TotalCourts counts physical courts across court records.
func TotalCourts(courts []models.Court) int {
	total := 0
	for _, court := range courts {
		total += len(court.CourtNames)
	}
	return total
}

// FilterFree removes busy courts from each window and drops windows with no
// court left. Windows are copied; the input is not modified.
func FilterFree(windows []Window, busy []Busy) []Window {
	byCourt := make(map[string][]Busy, len(busy))
	for _, b := range busy {
		byCourt[b.CourtName] = append(byCourt[b.CourtName], b)
	}

	free := make([]Window, 0, len(windows))
	for _, window := range windows {
		names := make([]string, 0, len(window.CourtNames))
		for _, name := range window.CourtNames {
			if !occupied(byCourt[name], window.Start, window.End) {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			continue
		}
		window.CourtNames = names
		window.AvailableCourts = len(names)
		free = append(free, window)
	}
	return free
}

func occupied(busy []Busy, start, end time.Time) bool {
	for _, b := range busy {
		if b.Start.Before(end) && b.End.After(start) {
			return true
		}
	}
	return false
}

// Covered reports whether the union of non-maintenance intervals covers
// [start, end) without gaps. An empty or inverted range is never covered.
func Covered(intervals []Interval, start, end time.Time) bool {
	if !start.Before(end) {
		return false
	}
	open := make([]Interval, 0, len(intervals))
	for _, interval := range intervals {
		if !interval.Maintenance {
			open = append(open, interval)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Start.Before(open[j].Start) })

	cursor := start
	for _, interval := range open {
		if !cursor.Before(end) {
			break
		}
		if interval.End.Before(cursor) || interval.End.Equal(cursor) {
			continue
		}
		if interval.Start.After(cursor) {
			return false
		}
		cursor = interval.End
	}
	return !cursor.Before(end)
}

func pricePerHour(price models.Money, minutes int) models.Money {
	if minutes <= 0 {
		return 0
	}
	return models.Money((int64(price)*60 + int64(minutes)/2) / int64(minutes))
}

func sortWindows(windows []Window) {
	sort.Slice(windows, func(i, j int) bool {
		if !windows[i].Start.Equal(windows[j].Start) {
			return windows[i].Start.Before(windows[j].Start)
		}
		return windows[i].End.Before(windows[j].End)
	})
}

// days returns midnight of every calendar day in loc touched by [from, to).
func days(from, to time.Time, loc *time.Location) []time.Time {
	from = from.In(loc)
	to = to.In(loc)
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	var out []time.Time
	for day.Before(to) {
		out = append(out, day)
		day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc)
	}
	return out
}
