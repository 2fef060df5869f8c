package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/availability"
	"github.com/codr1/courtbook/internal/conflict"
	"github.com/codr1/courtbook/internal/db"
	"github.com/codr1/courtbook/internal/db/store"
	"github.com/codr1/courtbook/internal/models"
)

type CreateRequest struct {
	VenueID         int64
	SportType       string
	StartAt         time.Time
	DurationMinutes int
	EndAt           *time.Time
	CourtNames      []string
	TotalPrice      models.Money
	Notes           string
	// ClientToken makes retries idempotent per user.
	ClientToken string
}

func (r CreateRequest) normalize() (CreateRequest, error) {
	if r.VenueID <= 0 {
		return r, apperr.BadRequest("venue_id must be a positive integer")
	}
	r.SportType = models.NormalizeSportType(r.SportType)
	if r.SportType == "" {
		return r, apperr.BadRequest("sport_type is required")
	}
	if r.StartAt.IsZero() {
		return r, apperr.BadRequest("start_date is required")
	}
	r.StartAt = r.StartAt.UTC()
	r.CourtNames = models.NormalizeCourtNames(r.CourtNames)
	if len(r.CourtNames) == 0 {
		return r, apperr.BadRequest("at least one court name is required")
	}
	if r.TotalPrice < 0 {
		return r, apperr.BadRequest("total_price must be 0 or greater")
	}
	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > maxNotesLength {
		return r, apperr.BadRequest("notes must be at most %d characters", maxNotesLength)
	}
	r.ClientToken = strings.TrimSpace(r.ClientToken)
	return r, nil
}

// Create reserves the requested courts. It returns created=false when the
// request replays an earlier one with the same client token; the earlier
// booking is returned unchanged. Reusing a token for a different request,
// or after its booking was cancelled, is a conflict.
func (s *Service) Create(ctx context.Context, actor *authz.Actor, req CreateRequest) (*models.Booking, bool, error) {
	if err := requireActor(actor); err != nil {
		return nil, false, err
	}
	req, err := req.normalize()
	if err != nil {
		return nil, false, err
	}
	endAt, err := resolveEnd(req.StartAt, req.DurationMinutes, req.EndAt)
	if err != nil {
		return nil, false, err
	}
	slot := models.Slot{StartAt: req.StartAt, EndAt: endAt}

	venue, err := s.loadVenue(ctx, req.VenueID)
	if err != nil {
		return nil, false, err
	}
	if !venue.IsActive {
		return nil, false, apperr.BadRequest("venue is not accepting bookings")
	}
	courts, err := s.courtsByName(ctx, venue.ID, req.SportType, req.CourtNames)
	if err != nil {
		return nil, false, err
	}

	release, err := s.acquire(ctx, venue.ID, req.CourtNames)
	if err != nil {
		return nil, false, err
	}
	defer release()

	var (
		result  models.Booking
		created bool
	)
	err = s.db.RunInTx(ctx, func(tx *db.DB) error {
		if req.ClientToken != "" {
			existing, err := tx.Queries.GetBookingByClientToken(ctx, actor.UserID, req.ClientToken)
			if err == nil {
				if existing.BookingStatus == models.BookingCancelled {
					return apperr.Conflict(nil, "booking %s for this client token was cancelled", existing.Reference)
				}
				if !replays(existing, venue.ID, req.SportType, slot, req.CourtNames) {
					return apperr.Conflict(nil, "client token was already used for a different booking")
				}
				result = existing
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("look up client token: %w", err)
			}
		}

		if err := s.checkSlot(ctx, tx, venue, courts, req.CourtNames, slot, 0); err != nil {
			return err
		}

		now := s.now()
		id, err := tx.Queries.InsertBooking(ctx, store.InsertBookingParams{
			Reference:   newReference(),
			UserID:      actor.UserID,
			VenueID:     venue.ID,
			SportType:   req.SportType,
			StartAt:     slot.StartAt,
			EndAt:       slot.EndAt,
			TotalPrice:  req.TotalPrice,
			Notes:       req.Notes,
			ClientToken: req.ClientToken,
			Now:         now,
		})
		if err != nil {
			return err
		}
		if err := tx.Queries.SetBookingCourts(ctx, id, venue.ID, req.CourtNames); err != nil {
			return err
		}
		result, err = tx.Queries.GetBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("reload booking %d: %w", id, err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		log.Ctx(ctx).Info().
			Int64("booking_id", result.ID).
			Int64("venue_id", result.VenueID).
			Int64("user_id", result.UserID).
			Strs("court_names", result.CourtNames).
			Time("start_at", result.Slot.StartAt).
			Time("end_at", result.Slot.EndAt).
			Msg("Booking created")
	}
	return &result, created, nil
}

// checkSlot validates a range against the court schedule and the ledger.
// It must run inside the transaction that writes the booking, with the court
// locks held.
func (s *Service) checkSlot(ctx context.Context, tx *db.DB, venue models.Venue, courts map[string]models.Court, names []string, slot models.Slot, excludeID int64) error {
	loc := venue.Location()
	from, to := slot.StartAt.In(loc), slot.EndAt.In(loc)

	var maintenance []conflict.MaintenanceWindow
	for _, name := range names {
		intervals := s.calendar.Intervals(courts[name], from, to)
		scheduled := make([]availability.Interval, len(intervals))
		for i, interval := range intervals {
			interval.Maintenance = false
			scheduled[i] = interval
		}
		if !availability.Covered(scheduled, from, to) {
			return apperr.BadRequest("the requested time is outside the court schedule for %s", name)
		}
		for _, interval := range intervals {
			if interval.Maintenance {
				maintenance = append(maintenance, conflict.MaintenanceWindow{
					CourtName: name,
					StartAt:   interval.Start.UTC(),
					EndAt:     interval.End.UTC(),
				})
			}
		}
	}

	conflicts, err := conflict.Find(ctx, tx.Queries, conflict.Request{
		VenueID:          venue.ID,
		CourtNames:       names,
		Slot:             slot,
		ExcludeBookingID: excludeID,
		Maintenance:      maintenance,
	})
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		log.Ctx(ctx).Info().
			Int64("venue_id", venue.ID).
			Strs("court_names", names).
			Int("conflicts", len(conflicts)).
			Msg("Booking rejected: time range conflicts")
		return apperr.Conflict(conflicts, "the selected courts are not available for this time")
	}
	return nil
}

func replays(existing models.Booking, venueID int64, sportType string, slot models.Slot, courtNames []string) bool {
	return existing.VenueID == venueID &&
		existing.SportType == sportType &&
		existing.Slot.StartAt.Equal(slot.StartAt) &&
		existing.Slot.EndAt.Equal(slot.EndAt) &&
		sameNames(existing.CourtNames, courtNames)
}
