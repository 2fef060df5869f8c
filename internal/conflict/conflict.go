// Package conflict decides whether a proposed reservation collides with the
// ledger, maintenance blocks or maintenance template slots.
package conflict

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/codr1/courtbook/internal/models"
)

type Kind string

const (
	KindBooking          Kind = "booking"
	KindMaintenanceBlock Kind = "maintenance_block"
	KindMaintenanceSlot  Kind = "maintenance_slot"
)

// Conflict is one record standing in the way of a reservation.
type Conflict struct {
	Kind       Kind      `json:"kind"`
	ID         int64     `json:"id,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	CourtNames []string  `json:"court_names"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	Reason     string    `json:"reason,omitempty"`
}

// Overlaps is the half-open interval test: ranges that only touch do not
// overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// MaintenanceWindow is a maintenance template slot of one physical court.
type MaintenanceWindow struct {
	CourtName string
	StartAt   time.Time
	EndAt     time.Time
}

type Request struct {
	VenueID          int64
	CourtNames       []string
	Slot             models.Slot
	ExcludeBookingID int64
	Maintenance      []MaintenanceWindow
}

// Source reads candidate records. Implementations may over-fetch; Detect
// applies the overlap rule again.
type Source interface {
	OverlappingBookings(ctx context.Context, venueID int64, courtNames []string, startAt, endAt time.Time, excludeID int64) ([]models.Booking, error)
	OverlappingBlocks(ctx context.Context, venueID int64, courtNames []string, startAt, endAt time.Time) ([]models.CourtBlock, error)
}

// Find returns every conflict for req. An empty result means the range is
// free; errors only come from the source.
func Find(ctx context.Context, src Source, req Request) ([]Conflict, error) {
	bookings, err := src.OverlappingBookings(ctx, req.VenueID, req.CourtNames, req.Slot.StartAt, req.Slot.EndAt, req.ExcludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("load overlapping bookings: %w", err)
	}
	blocks, err := src.OverlappingBlocks(ctx, req.VenueID, req.CourtNames, req.Slot.StartAt, req.Slot.EndAt)
	if err != nil {
		return nil, fmt.Errorf("load overlapping blocks: %w", err)
	}
	return Detect(req, bookings, blocks), nil
}

// Detect applies the conflict rule to already loaded records.
func Detect(req Request, bookings []models.Booking, blocks []models.CourtBlock) []Conflict {
	wanted := make(map[string]struct{}, len(req.CourtNames))
	for _, name := range req.CourtNames {
		wanted[name] = struct{}{}
	}
	start, end := req.Slot.StartAt, req.Slot.EndAt

	var conflicts []Conflict
	for _, booking := range bookings {
		if !booking.OccupiesCourts() || booking.VenueID != req.VenueID {
			continue
		}
		if req.ExcludeBookingID != 0 && booking.ID == req.ExcludeBookingID {
			continue
		}
		if !Overlaps(booking.Slot.StartAt, booking.Slot.EndAt, start, end) {
			continue
		}
		shared := intersect(booking.CourtNames, wanted)
		if len(shared) == 0 {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Kind:       KindBooking,
			ID:         booking.ID,
			Reference:  booking.Reference,
			CourtNames: shared,
			StartAt:    booking.Slot.StartAt,
			EndAt:      booking.Slot.EndAt,
		})
	}

	blockIndex := make(map[int64]int)
	for _, block := range blocks {
		if block.VenueID != req.VenueID || !Overlaps(block.StartAt, block.EndAt, start, end) {
			continue
		}
		if _, ok := wanted[block.CourtName]; !ok {
			continue
		}
		if i, ok := blockIndex[block.ID]; ok {
			conflicts[i].CourtNames = appendUnique(conflicts[i].CourtNames, block.CourtName)
			continue
		}
		blockIndex[block.ID] = len(conflicts)
		conflicts = append(conflicts, Conflict{
			Kind:       KindMaintenanceBlock,
			ID:         block.ID,
			CourtNames: []string{block.CourtName},
			StartAt:    block.StartAt,
			EndAt:      block.EndAt,
			Reason:     block.Reason,
		})
	}

	for _, window := range req.Maintenance {
		if _, ok := wanted[window.CourtName]; !ok {
			continue
		}
		if !Overlaps(window.StartAt, window.EndAt, start, end) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Kind:       KindMaintenanceSlot,
			CourtNames: []string{window.CourtName},
			StartAt:    window.StartAt,
			EndAt:      window.EndAt,
			Reason:     "scheduled maintenance",
		})
	}

	for i := range conflicts {
		sort.Strings(conflicts[i].CourtNames)
	}
	return conflicts
}

func intersect(names []string, wanted map[string]struct{}) []string {
	var shared []string
	for _, name := range names {
		if _, ok := wanted[name]; ok {
			shared = appendUnique(shared, name)
		}
	}
	return shared
}

func appendUnique(names []string, name string) []string {
	for _, existing := range names {
		if existing == name {
			return names
		}
	}
	return append(names, name)
}
