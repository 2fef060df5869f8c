// Package booking owns the reservation lifecycle: creating, changing,
// cancelling, confirming and completing bookings without ever letting two
// live bookings hold the same physical court at the same time.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/availability"
	"github.com/codr1/courtbook/internal/db"
	"github.com/codr1/courtbook/internal/lock"
	"github.com/codr1/courtbook/internal/models"
)

const (
	DefaultCancellationCutoff = 2 * time.Hour
	defaultListLimit          = 50
	maxListLimit              = 200
	maxNotesLength            = 500
	// MaxBookingLength bounds a single booking so durations cannot overflow.
	MaxBookingLength = 24 * time.Hour
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Options struct {
	Locker             lock.Locker
	Calendar           availability.Calendar
	Clock              Clock
	CancellationCutoff time.Duration
	// PendingHold is how long an unpaid pending booking keeps its courts.
	// Zero disables expiry.
	PendingHold time.Duration
}

type Service struct {
	db          *db.DB
	locker      lock.Locker
	calendar    availability.Calendar
	clock       Clock
	cutoff      time.Duration
	pendingHold time.Duration
}

func NewService(database *db.DB, opts Options) *Service {
	svc := &Service{
		db:          database,
		locker:      opts.Locker,
		calendar:    opts.Calendar,
		clock:       opts.Clock,
		cutoff:      opts.CancellationCutoff,
		pendingHold: opts.PendingHold,
	}
	if svc.locker == nil {
		svc.locker = lock.NewMemory()
	}
	if svc.calendar == nil {
		svc.calendar = availability.Template{}
	}
	if svc.clock == nil {
		svc.clock = realClock{}
	}
	if svc.cutoff == 0 {
		svc.cutoff = DefaultCancellationCutoff
	}
	return svc
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func requireActor(actor *authz.Actor) error {
	if actor == nil {
		return apperr.Unauthorized("authentication required")
	}
	return nil
}

func (s *Service) loadVenue(ctx context.Context, venueID int64) (models.Venue, error) {
	venue, err := s.db.Queries.GetVenue(ctx, venueID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Venue{}, apperr.NotFound("venue not found")
	}
	if err != nil {
		return models.Venue{}, fmt.Errorf("load venue %d: %w", venueID, err)
	}
	return venue, nil
}

func (s *Service) loadBooking(ctx context.Context, bookingID int64) (models.Booking, error) {
	booking, err := s.db.Queries.GetBooking(ctx, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, apperr.NotFound("booking not found")
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	return booking, nil
}

// courtsByName loads the venue's courts for sportType and indexes them by
// physical court name. Every requested name must resolve.
func (s *Service) courtsByName(ctx context.Context, venueID int64, sportType string, names []string) (map[string]models.Court, error) {
	courts, err := s.db.Queries.ListCourtsByVenueAndSport(ctx, venueID, sportType)
	if err != nil {
		return nil, fmt.Errorf("load courts for venue %d: %w", venueID, err)
	}
	if len(courts) == 0 {
		return nil, apperr.NotFound("no %s courts found for this venue", sportType)
	}

	index := make(map[string]models.Court)
	for _, court := range courts {
		for _, name := range court.CourtNames {
			index[name] = court
		}
	}
	var missing []string
	for _, name := range names {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.NotFound("courts not found for %s: %s", sportType, strings.Join(missing, ", "))
	}
	return index, nil
}

// managesVenue reports whether actor administers the venue: admins manage
// every venue, owners manage their own.
func (s *Service) managesVenue(ctx context.Context, actor *authz.Actor, venueID int64) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if actor.Role != authz.RoleOwner {
		return false, nil
	}
	venue, err := s.db.Queries.GetVenue(ctx, venueID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load venue %d: %w", venueID, err)
	}
	return venue.OwnerID == actor.UserID, nil
}

// canAccess reports whether actor may read or change booking. The booking's
// own player always may; venue staff may through the administrative path.
func (s *Service) canAccess(ctx context.Context, actor *authz.Actor, booking models.Booking) (bool, error) {
	if booking.UserID == actor.UserID {
		return true, nil
	}
	return s.managesVenue(ctx, actor, booking.VenueID)
}

func (s *Service) acquire(ctx context.Context, venueID int64, courtNames []string) (func(), error) {
	release, err := s.locker.Acquire(ctx, lock.CourtKeys(venueID, courtNames))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConflict, err, "the selected courts are being booked by someone else, please retry")
	}
	return release, nil
}

func newReference() string {
	return uuid.NewString()
}

// resolveEnd computes the end of a slot from exactly one of a duration in
// minutes or an explicit end. The slot may not exceed MaxBookingLength.
func resolveEnd(start time.Time, durationMinutes int, end *time.Time) (time.Time, error) {
	var resolved time.Time
	switch {
	case durationMinutes != 0 && end != nil:
		return time.Time{}, apperr.BadRequest("provide either duration or end_date, not both")
	case durationMinutes < 0:
		return time.Time{}, apperr.BadRequest("duration must be a positive number of minutes")
	case durationMinutes > 0:
		if durationMinutes > int(MaxBookingLength/time.Minute) {
			return time.Time{}, apperr.BadRequest("duration must be at most %d minutes", int(MaxBookingLength/time.Minute))
		}
		resolved = start.Add(time.Duration(durationMinutes) * time.Minute)
	case end != nil:
		resolved = end.UTC()
	default:
		return time.Time{}, apperr.BadRequest("duration or end_date is required")
	}
	if !resolved.After(start) {
		return time.Time{}, apperr.BadRequest("end_date must be after start_date")
	}
	if resolved.Sub(start) > MaxBookingLength {
		return time.Time{}, apperr.BadRequest("a booking can last at most %s", humanDuration(MaxBookingLength))
	}
	return resolved, nil
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}
