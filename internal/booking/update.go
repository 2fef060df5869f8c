package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/db"
	"github.com/codr1/courtbook/internal/db/store"
	"github.com/codr1/courtbook/internal/models"
)

// UpdateRequest holds optional changes. Nil fields keep the current value.
// Moving StartAt alone keeps the booking's duration.
type UpdateRequest struct {
	StartAt         *time.Time
	DurationMinutes *int
	EndAt           *time.Time
	CourtNames      []string
	TotalPrice      *models.Money
	Notes           *string
	PaymentStatus   *models.PaymentStatus
}

func (s *Service) Update(ctx context.Context, actor *authz.Actor, bookingID int64, req UpdateRequest) (*models.Booking, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	current, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canAccess(ctx, actor, current)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbidden("you can only update your own bookings")
	}
	if current.BookingStatus.IsTerminal() {
		return nil, apperr.BadRequest("cannot update a %s booking", current.BookingStatus)
	}

	slot, err := nextSlot(current.Slot, req)
	if err != nil {
		return nil, err
	}
	names := current.CourtNames
	if req.CourtNames != nil {
		names = models.NormalizeCourtNames(req.CourtNames)
		if len(names) == 0 {
			return nil, apperr.BadRequest("at least one court name is required")
		}
	}

	params := store.UpdateBookingParams{
		ID:            current.ID,
		StartAt:       slot.StartAt,
		EndAt:         slot.EndAt,
		TotalPrice:    current.TotalPrice,
		Notes:         current.Notes,
		PaymentStatus: current.PaymentStatus,
	}
	if req.TotalPrice != nil {
		if *req.TotalPrice < 0 {
			return nil, apperr.BadRequest("total_price must be 0 or greater")
		}
		params.TotalPrice = *req.TotalPrice
	}
	if req.Notes != nil {
		notes := strings.TrimSpace(*req.Notes)
		if len(notes) > maxNotesLength {
			return nil, apperr.BadRequest("notes must be at most %d characters", maxNotesLength)
		}
		params.Notes = notes
	}
	if req.PaymentStatus != nil && *req.PaymentStatus != current.PaymentStatus {
		manages, err := s.managesVenue(ctx, actor, current.VenueID)
		if err != nil {
			return nil, err
		}
		if !manages {
			return nil, apperr.Forbidden("only the venue owner or an admin can change the payment status")
		}
		params.PaymentStatus = *req.PaymentStatus
	}

	reserve := !slot.StartAt.Equal(current.Slot.StartAt) ||
		!slot.EndAt.Equal(current.Slot.EndAt) ||
		!sameNames(names, current.CourtNames)

	var (
		venue  models.Venue
		courts map[string]models.Court
	)
	if reserve {
		venue, err = s.loadVenue(ctx, current.VenueID)
		if err != nil {
			return nil, err
		}
		courts, err = s.courtsByName(ctx, venue.ID, current.SportType, names)
		if err != nil {
			return nil, err
		}
		release, err := s.acquire(ctx, venue.ID, names)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var updated models.Booking
	err = s.db.RunInTx(ctx, func(tx *db.DB) error {
		// Re-read under the lock; another request may have cancelled it.
		latest, err := tx.Queries.GetBooking(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("reload booking %d: %w", current.ID, err)
		}
		if latest.BookingStatus.IsTerminal() {
			return apperr.BadRequest("cannot update a %s booking", latest.BookingStatus)
		}

		if reserve {
			if err := s.checkSlot(ctx, tx, venue, courts, names, slot, current.ID); err != nil {
				return err
			}
			if err := tx.Queries.SetBookingCourts(ctx, current.ID, current.VenueID, names); err != nil {
				return err
			}
		}

		params.Now = s.now()
		if err := tx.Queries.UpdateBooking(ctx, params); err != nil {
			return err
		}
		updated, err = tx.Queries.GetBooking(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("reload booking %d: %w", current.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Int64("booking_id", updated.ID).
		Int64("user_id", actor.UserID).
		Bool("rescheduled", reserve).
		Msg("Booking updated")
	return &updated, nil
}

func nextSlot(current models.Slot, req UpdateRequest) (models.Slot, error) {
	start := current.StartAt
	if req.StartAt != nil {
		start = req.StartAt.UTC()
	}

	switch {
	case req.DurationMinutes != nil || req.EndAt != nil:
		duration := 0
		if req.DurationMinutes != nil {
			duration = *req.DurationMinutes
			if duration <= 0 {
				return models.Slot{}, apperr.BadRequest("duration must be a positive number of minutes")
			}
		}
		end, err := resolveEnd(start, duration, req.EndAt)
		if err != nil {
			return models.Slot{}, err
		}
		return models.Slot{StartAt: start, EndAt: end}, nil
	default:
		return models.Slot{StartAt: start, EndAt: start.Add(current.Duration())}, nil
	}
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, name := range a {
		set[name] = struct{}{}
	}
	for _, name := range b {
		if _, ok := set[name]; !ok {
			return false
		}
	}
	return true
}
