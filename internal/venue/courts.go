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

type CreateCourtRequest struct {
	SportType    string
	CourtNames   []string
	Availability []models.DayAvailability
}

// CreateCourt registers a court record with its physical court names and
// weekly template. Names are unique per venue.
func (s *Service) CreateCourt(ctx context.Context, actor *authz.Actor, venueID int64, req CreateCourtRequest) (*models.Court, error) {
	venue, err := s.managedVenue(ctx, actor, venueID)
	if err != nil {
		return nil, err
	}
	sportType := models.NormalizeSportType(req.SportType)
	if sportType == "" {
		return nil, apperr.BadRequest("sport_type is required")
	}
	names := models.NormalizeCourtNames(req.CourtNames)
	if len(names) == 0 {
		return nil, apperr.BadRequest("at least one court name is required")
	}
	days, err := models.NormalizeAvailability(req.Availability)
	if err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}

	var courtID int64
	err = s.db.RunInTx(ctx, func(tx *db.DB) error {
		existing, err := tx.Queries.ListVenueCourtNames(ctx, venue.ID)
		if err != nil {
			return err
		}
		taken := make(map[string]struct{}, len(existing))
		for _, name := range existing {
			taken[name] = struct{}{}
		}
		var duplicates []string
		for _, name := range names {
			if _, ok := taken[name]; ok {
				duplicates = append(duplicates, name)
			}
		}
		if len(duplicates) > 0 {
			return apperr.BadRequest("court names already exist at this venue: %s", strings.Join(duplicates, ", "))
		}

		now := s.now()
		courtID, err = tx.Queries.CreateCourt(ctx, store.CreateCourtParams{VenueID: venue.ID, SportType: sportType, Now: now})
		if err != nil {
			return err
		}
		for i, name := range names {
			if err := tx.Queries.AddCourtUnit(ctx, store.AddCourtUnitParams{
				CourtID:  courtID,
				VenueID:  venue.ID,
				Name:     name,
				Position: i,
			}); err != nil {
				return err
			}
		}
		return tx.Queries.ReplaceCourtSchedule(ctx, courtID, days, now)
	})
	if err != nil {
		return nil, err
	}

	court, err := s.loadCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Int64("venue_id", venue.ID).
		Int64("court_id", court.ID).
		Strs("court_names", court.CourtNames).
		Msg("Court created")
	return &court, nil
}

func (s *Service) ListCourts(ctx context.Context, venueID int64, sportType string) ([]models.Court, error) {
	venue, err := s.loadVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	courts, err := s.db.Queries.ListCourtsByVenueAndSport(ctx, venue.ID, models.NormalizeSportType(sportType))
	if err != nil {
		return nil, err
	}
	if courts == nil {
		courts = []models.Court{}
	}
	return courts, nil
}

// ReplaceAvailability swaps a court's weekly template. Existing bookings are
// left alone.
func (s *Service) ReplaceAvailability(ctx context.Context, actor *authz.Actor, courtID int64, days []models.DayAvailability) (*models.Court, error) {
	court, err := s.loadCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if _, err := s.managedVenue(ctx, actor, court.VenueID); err != nil {
		return nil, err
	}
	days, err = models.NormalizeAvailability(days)
	if err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}

	err = s.db.RunInTx(ctx, func(tx *db.DB) error {
		return tx.Queries.ReplaceCourtSchedule(ctx, court.ID, days, s.now())
	})
	if err != nil {
		return nil, err
	}
	updated, err := s.loadCourt(ctx, court.ID)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Int64("court_id", court.ID).Int("days", len(days)).Msg("Court availability replaced")
	return &updated, nil
}

type CreateBlockRequest struct {
	// CourtName limits the block to one physical court; empty blocks all.
	CourtName string
	StartAt   time.Time
	EndAt     time.Time
	Reason    string
}

func (s *Service) CreateBlock(ctx context.Context, actor *authz.Actor, courtID int64, req CreateBlockRequest) (*models.CourtBlock, error) {
	court, err := s.loadCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if _, err := s.managedVenue(ctx, actor, court.VenueID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.CourtName)
	if name != "" && !court.HasCourtName(name) {
		return nil, apperr.NotFound("court %s not found", name)
	}
	if req.StartAt.IsZero() || req.EndAt.IsZero() {
		return nil, apperr.BadRequest("start_at and end_at are required")
	}
	if !req.EndAt.After(req.StartAt) {
		return nil, apperr.BadRequest("end_at must be after start_at")
	}
	reason := strings.TrimSpace(req.Reason)
	if len(reason) > maxReasonLength {
		return nil, apperr.BadRequest("reason must be at most %d characters", maxReasonLength)
	}

	block, err := s.db.Queries.CreateCourtBlock(ctx, store.CreateCourtBlockParams{
		CourtID:   court.ID,
		VenueID:   court.VenueID,
		CourtName: name,
		StartAt:   req.StartAt.UTC(),
		EndAt:     req.EndAt.UTC(),
		Reason:    reason,
		CreatedBy: actor.UserID,
		Now:       s.now(),
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Int64("court_id", court.ID).
		Int64("block_id", block.ID).
		Str("court_name", name).
		Msg("Maintenance block created")
	return &block, nil
}

func (s *Service) ListBlocks(ctx context.Context, courtID int64) ([]models.CourtBlock, error) {
	court, err := s.loadCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	blocks, err := s.db.Queries.ListCourtBlocks(ctx, court.ID)
	if err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []models.CourtBlock{}
	}
	return blocks, nil
}

func (s *Service) DeleteBlock(ctx context.Context, actor *authz.Actor, blockID int64) error {
	block, err := s.db.Queries.GetCourtBlock(ctx, blockID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("block not found")
	}
	if err != nil {
		return fmt.Errorf("load block %d: %w", blockID, err)
	}
	if _, err := s.managedVenue(ctx, actor, block.VenueID); err != nil {
		return err
	}
	affected, err := s.db.Queries.SoftDeleteCourtBlock(ctx, block.ID, s.now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("block not found")
	}
	log.Ctx(ctx).Info().Int64("block_id", block.ID).Msg("Maintenance block deleted")
	return nil
}

// CourtLocation returns the time zone of the venue that owns the court.
func (s *Service) CourtLocation(ctx context.Context, courtID int64) (*time.Location, error) {
	court, err := s.loadCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	venue, err := s.loadVenue(ctx, court.VenueID)
	if err != nil {
		return nil, err
	}
	return venue.Location(), nil
}

func (s *Service) loadCourt(ctx context.Context, courtID int64) (models.Court, error) {
	court, err := s.db.Queries.GetCourt(ctx, courtID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Court{}, apperr.NotFound("court not found")
	}
	if err != nil {
		return models.Court{}, fmt.Errorf("load court %d: %w", courtID, err)
	}
	return court, nil
}
