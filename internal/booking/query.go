package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/availability"
	"github.com/codr1/courtbook/internal/db/store"
	"github.com/codr1/courtbook/internal/models"
)

func (s *Service) Get(ctx context.Context, actor *authz.Actor, bookingID int64) (*models.Booking, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canAccess(ctx, actor, booking)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbidden("you do not have access to this booking")
	}
	return &booking, nil
}

type ListFilter struct {
	VenueID int64
	Status  models.BookingStatus
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

// LedgerScope narrows ledger reads to what actor may see: players see their
// own bookings, owners the bookings of their venues, admins everything.
func LedgerScope(actor *authz.Actor) store.BookingFilter {
	switch actor.Role {
	case authz.RoleAdmin:
		return store.BookingFilter{}
	case authz.RoleOwner:
		return store.BookingFilter{OwnerID: actor.UserID}
	default:
		return store.BookingFilter{UserID: actor.UserID}
	}
}

func (s *Service) List(ctx context.Context, actor *authz.Actor, filter ListFilter) ([]models.Booking, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	scope := LedgerScope(actor)
	scope.VenueID = filter.VenueID
	scope.Status = filter.Status
	scope.From = filter.From
	scope.To = filter.To

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	bookings, err := s.db.Queries.ListBookings(ctx, store.ListBookingsParams{
		Filter: scope,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

// VenueLocation returns the time zone local booking times are read in.
func (s *Service) VenueLocation(ctx context.Context, venueID int64) (*time.Location, error) {
	venue, err := s.loadVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	return venue.Location(), nil
}

type VenueSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type TimeSlots struct {
	Venue          VenueSummary          `json:"venue"`
	SportType      string                `json:"sport_type"`
	Date           string                `json:"date"`
	AvailableSlots []availability.Window `json:"available_slots"`
	TotalCourts    int                   `json:"total_courts"`
}

// AvailableTimeSlots lists the windows on date (YYYY-MM-DD in the venue's
// time zone) that still have at least one free court. Windows that have
// already ended are left out.
func (s *Service) AvailableTimeSlots(ctx context.Context, venueID int64, sportType, date string) (*TimeSlots, error) {
	if venueID <= 0 {
		return nil, apperr.BadRequest("venue_id must be a positive integer")
	}
	sportType = models.NormalizeSportType(sportType)
	if sportType == "" {
		return nil, apperr.BadRequest("sport_type is required")
	}
	venue, err := s.loadVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if !venue.IsActive {
		return nil, apperr.BadRequest("venue is not accepting bookings")
	}
	day, err := availability.ParseDate(date, venue.Location())
	if err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}

	courts, err := s.db.Queries.ListCourtsByVenueAndSport(ctx, venue.ID, sportType)
	if err != nil {
		return nil, fmt.Errorf("load courts for venue %d: %w", venue.ID, err)
	}
	if len(courts) == 0 {
		return nil, apperr.NotFound("no %s courts found for this venue", sportType)
	}

	windows := s.calendar.Windows(courts, day)
	var names []string
	for _, court := range courts {
		names = append(names, court.CourtNames...)
	}

	dayStart := day.UTC()
	dayEnd := availability.At(day, 24*60).UTC()
	bookings, err := s.db.Queries.OverlappingBookings(ctx, venue.ID, names, dayStart, dayEnd, 0)
	if err != nil {
		return nil, fmt.Errorf("load bookings for venue %d: %w", venue.ID, err)
	}
	blocks, err := s.db.Queries.OverlappingBlocks(ctx, venue.ID, names, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load blocks for venue %d: %w", venue.ID, err)
	}

	var busy []availability.Busy
	for _, booking := range bookings {
		for _, name := range booking.CourtNames {
			busy = append(busy, availability.Busy{CourtName: name, Start: booking.Slot.StartAt, End: booking.Slot.EndAt})
		}
	}
	for _, block := range blocks {
		busy = append(busy, availability.Busy{CourtName: block.CourtName, Start: block.StartAt, End: block.EndAt})
	}

	now := s.now()
	free := []availability.Window{}
	for _, window := range availability.FilterFree(windows, busy) {
		if window.End.After(now) {
			free = append(free, window)
		}
	}
	return &TimeSlots{
		Venue:          VenueSummary{ID: venue.ID, Name: venue.Name, Timezone: venue.Timezone},
		SportType:      sportType,
		Date:           day.Format(availability.DateLayout),
		AvailableSlots: free,
		TotalCourts:    availability.TotalCourts(courts),
	}, nil
}
