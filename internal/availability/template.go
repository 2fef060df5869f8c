package availability

import (
	"time"

	"github.com/codr1/courtbook/internal/models"
)

// Template reads availability from each court's weekly template.
type Template struct{}

func (Template) Windows(courts []models.Court, day time.Time) []Window {
	type span struct{ start, end int }
	byWindow := make(map[span]*Window)

	for _, court := range courts {
		for _, slot := range ResolveDayTemplate(court, day) {
			if slot.IsMaintenance {
				continue
			}
			start, end, err := slot.Bounds()
			if err != nil {
				continue
			}
			key := span{start, end}
			window, ok := byWindow[key]
			perHour := pricePerHour(slot.Price, end-start)
			if !ok {
				window = &Window{
					StartTime:    models.FormatClock(start),
					EndTime:      models.FormatClock(end),
					PricePerHour: perHour,
					Start:        At(day, start),
					End:          At(day, end),
				}
				byWindow[key] = window
			} else if perHour < window.PricePerHour {
				window.PricePerHour = perHour
			}
			window.CourtNames = append(window.CourtNames, court.CourtNames...)
			window.AvailableCourts = len(window.CourtNames)
		}
	}

	windows := make([]Window, 0, len(byWindow))
	for _, window := range byWindow {
		windows = append(windows, *window)
	}
	sortWindows(windows)
	return windows
}

func (Template) Intervals(court models.Court, from, to time.Time) []Interval {
	var out []Interval
	for _, day := range days(from, to, from.Location()) {
		for _, slot := range ResolveDayTemplate(court, day) {
			start, end, err := slot.Bounds()
			if err != nil {
				continue
			}
			interval := Interval{
				Start:       At(day, start),
				End:         At(day, end),
				Price:       slot.Price,
				Maintenance: slot.IsMaintenance,
			}
			if interval.Start.Before(to) && interval.End.After(from) {
				out = append(out, interval)
			}
		}
	}
	return out
}
