package booking

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/db/store"
	"github.com/codr1/courtbook/internal/models"
)

// Cancel releases a pending or confirmed booking. Players may only cancel
// their own bookings and only before the cancellation cutoff; admins and the
// venue's owner use the administrative path, which skips the ownership check.
// Only admins bypass the cutoff.
func (s *Service) Cancel(ctx context.Context, actor *authz.Actor, bookingID int64) (*models.Booking, error) {
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
		return nil, apperr.Forbidden("you can only cancel your own bookings")
	}

	switch current.BookingStatus {
	case models.BookingCancelled:
		return nil, apperr.BadRequest("booking is already cancelled")
	case models.BookingCompleted:
		return nil, apperr.BadRequest("completed bookings cannot be cancelled")
	}

	now := s.now()
	if !actor.IsAdmin() && current.Slot.StartAt.Sub(now) < s.cutoff {
		return nil, apperr.BadRequest("bookings can only be cancelled at least %s before the start time", humanDuration(s.cutoff))
	}

	return s.transition(ctx, actor, current, models.BookingCancelled, true)
}

// Confirm moves a pending booking to confirmed. Only the venue's owner or an
// admin may confirm.
func (s *Service) Confirm(ctx context.Context, actor *authz.Actor, bookingID int64) (*models.Booking, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	current, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	manages, err := s.managesVenue(ctx, actor, current.VenueID)
	if err != nil {
		return nil, err
	}
	if !manages {
		return nil, apperr.Forbidden("only the venue owner or an admin can confirm bookings")
	}

	switch current.BookingStatus {
	case models.BookingPending:
	case models.BookingConfirmed:
		return nil, apperr.BadRequest("booking is already confirmed")
	default:
		return nil, apperr.BadRequest("cannot confirm a %s booking", current.BookingStatus)
	}
	return s.transition(ctx, actor, current, models.BookingConfirmed, false)
}

// Complete moves a confirmed booking whose slot has ended to completed.
func (s *Service) Complete(ctx context.Context, actor *authz.Actor, bookingID int64) (*models.Booking, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	current, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	manages, err := s.managesVenue(ctx, actor, current.VenueID)
	if err != nil {
		return nil, err
	}
	if !manages {
		return nil, apperr.Forbidden("only the venue owner or an admin can complete bookings")
	}

	switch current.BookingStatus {
	case models.BookingConfirmed:
	case models.BookingCompleted:
		return nil, apperr.BadRequest("booking is already completed")
	default:
		return nil, apperr.BadRequest("only confirmed bookings can be completed")
	}
	if s.now().Before(current.Slot.EndAt) {
		return nil, apperr.BadRequest("booking cannot be completed before it ends")
	}
	return s.transition(ctx, actor, current, models.BookingCompleted, false)
}

func (s *Service) transition(ctx context.Context, actor *authz.Actor, current models.Booking, to models.BookingStatus, stampCancelled bool) (*models.Booking, error) {
	now := s.now()
	params := store.TransitionBookingParams{
		ID:   current.ID,
		From: current.BookingStatus,
		To:   to,
		Now:  now,
	}
	if stampCancelled {
		params.CancelledAt = &now
	}

	affected, err := s.db.Queries.TransitionBooking(ctx, params)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Someone else moved the booking between our read and write.
		latest, err := s.loadBooking(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		return nil, apperr.BadRequest("booking is now %s", latest.BookingStatus)
	}

	updated, err := s.loadBooking(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Int64("booking_id", updated.ID).
		Int64("user_id", actor.UserID).
		Str("from", string(current.BookingStatus)).
		Str("to", string(to)).
		Msg("Booking status changed")
	return &updated, nil
}
