// Package venue manages the venues, courts and maintenance blocks that
// bookings are made against.
package venue

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
	"github.com/codr1/courtbook/internal/db"
	"github.com/codr1/courtbook/internal/db/store"
	"github.com/codr1/courtbook/internal/models"
)

const maxReasonLength = 200

type Service struct {
	db  *db.DB
	now func() time.Time
}

func NewService(database *db.DB) *Service {
	return &Service{db: database, now: func() time.Time { return time.Now().UTC() }}
}

type CreateVenueRequest struct {
	// OwnerID lets an admin register a venue for an owner. Owners always
	// own what they create.
	OwnerID      int64
	Name         string
	Address      string
	ContactPhone string
	Timezone     string
	Sports       []string
	Amenities    []string
}

func (s *Service) CreateVenue(ctx context.Context, actor *authz.Actor, req CreateVenueRequest) (*models.Venue, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	ownerID := actor.UserID
	if actor.IsAdmin() && req.OwnerID > 0 {
		ownerID = req.OwnerID
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.BadRequest("name is required")
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, apperr.BadRequest("address is required")
	}
	phone, err := models.NormalizeContactPhone(req.ContactPhone)
	if err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}
	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, apperr.BadRequest("timezone %q is not a known IANA time zone", timezone)
	}

	venue, err := s.db.Queries.CreateVenue(ctx, store.CreateVenueParams{
		OwnerID:      ownerID,
		Name:         name,
		Address:      address,
		ContactPhone: phone,
		Timezone:     timezone,
		Sports:       models.NormalizeSet(req.Sports),
		Amenities:    models.NormalizeSet(req.Amenities),
		Now:          s.now(),
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Int64("venue_id", venue.ID).Int64("owner_id", ownerID).Msg("Venue created")
	return &venue, nil
}

func (s *Service) GetVenue(ctx context.Context, venueID int64) (*models.Venue, error) {
	venue, err := s.loadVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

// SetStatus approves or rejects a venue. Setting the status it already has
// is a BadRequest and changes nothing.
func (s *Service) SetStatus(ctx context.Context, actor *authz.Actor, venueID int64, status models.ApprovalStatus) (*models.Venue, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can change a venue's approval status")
	}
	venue, err := s.loadVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if venue.ApprovalStatus == status {
		return nil, apperr.BadRequest("venue is already %s", status)
	}

	affected, err := s.db.Queries.UpdateVenueStatus(ctx, store.UpdateVenueStatusParams{ID: venue.ID, Status: status, Now: s.now()})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, apperr.BadRequest("venue is already %s", status)
	}
	updated, err := s.loadVenue(ctx, venue.ID)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Int64("venue_id", venue.ID).
		Str("from", string(venue.ApprovalStatus)).
		Str("to", string(status)).
		Msg("Venue status changed")
	return &updated, nil
}

// DeleteVenue soft-deletes the venue. Its bookings stay in the ledger.
func (s *Service) DeleteVenue(ctx context.Context, actor *authz.Actor, venueID int64) error {
	venue, err := s.loadVenue(ctx, venueID)
	if err != nil {
		return err
	}
	if !manages(actor, venue) {
		return apperr.Forbidden("only the venue owner or an admin can delete this venue")
	}
	affected, err := s.db.Queries.SoftDeleteVenue(ctx, venue.ID, s.now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("venue not found")
	}
	log.Ctx(ctx).Info().Int64("venue_id", venue.ID).Msg("Venue deleted")
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

func manages(actor *authz.Actor, venue models.Venue) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return actor.Role == authz.RoleOwner && venue.OwnerID == actor.UserID
}

// managedVenue loads the venue and checks actor may administer it.
func (s *Service) managedVenue(ctx context.Context, actor *authz.Actor, venueID int64) (models.Venue, error) {
	venue, err := s.loadVenue(ctx, venueID)
	if err != nil {
		return models.Venue{}, err
	}
	if !manages(actor, venue) {
		return models.Venue{}, apperr.Forbidden("only the venue owner or an admin can manage this venue")
	}
	return venue, nil
}
