package availability

import (
	"time"

	"github.com/codr1/courtbook/internal/models"
)

// FixedGrid ignores court templates and offers every physical court in
// equal slots between OpenHour and CloseHour at a flat price.
type FixedGrid struct {
	OpenHour    int
	CloseHour   int
	SlotMinutes int
	Price       models.Money
}

func DefaultGrid() FixedGrid {
	return FixedGrid{OpenHour: 9, CloseHour: 22, SlotMinutes: 60}
}

func (g FixedGrid) Windows(courts []models.Court, day time.Time) []Window {
	var names []string
	for _, court := range courts {
		names = append(names, court.CourtNames...)
	}
	if len(names) == 0 || g.SlotMinutes <= 0 {
		return nil
	}

	var windows []Window
	for start := g.OpenHour * 60; start+g.SlotMinutes <= g.CloseHour*60; start += g.SlotMinutes {
		end := start + g.SlotMinutes
		courtNames := make([]string, len(names))
		copy(courtNames, names)
		windows = append(windows, Window{
			StartTime:       models.FormatClock(start),
			EndTime:         models.FormatClock(end),
			AvailableCourts: len(courtNames),
			PricePerHour:    pricePerHour(g.Price, g.SlotMinutes),
			Start:           At(day, start),
			End:             At(day, end),
			CourtNames:      courtNames,
		})
	}
	return windows
}

func (g FixedGrid) Intervals(_ models.Court, from, to time.Time) []Interval {
	var out []Interval
	for _, day := range days(from, to, from.Location()) {
		interval := Interval{
			Start: At(day, g.OpenHour*60),
			End:   At(day, g.CloseHour*60),
			Price: g.Price,
		}
		if interval.Start.Before(to) && interval.End.After(from) {
			out = append(out, interval)
		}
	}
	return out
}
