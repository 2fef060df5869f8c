package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codr1/courtbook/internal/models"
)

type CreateVenueParams struct {
	OwnerID      int64
	Name         string
	Address      string
	ContactPhone string
	Timezone     string
	Sports       []string
	Amenities    []string
	Now          time.Time
}

const createVenue = `
INSERT INTO venues (owner_id, name, address, contact_phone, timezone, sports, amenities, approval_status, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', 1, ?, ?)
RETURNING id`

func (q *Queries) CreateVenue(ctx context.Context, arg CreateVenueParams) (models.Venue, error) {
	sports, err := json.Marshal(nonNil(arg.Sports))
	if err != nil {
		return models.Venue{}, fmt.Errorf("encode sports: %w", err)
	}
	amenities, err := json.Marshal(nonNil(arg.Amenities))
	if err != nil {
		return models.Venue{}, fmt.Errorf("encode amenities: %w", err)
	}

	var id int64
	now := toUnix(arg.Now)
	err = q.db.QueryRowContext(ctx, createVenue,
		arg.OwnerID,
		arg.Name,
		arg.Address,
		arg.ContactPhone,
		arg.Timezone,
		string(sports),
		string(amenities),
		now,
		now,
	).Scan(&id)
	if err != nil {
		return models.Venue{}, fmt.Errorf("create venue: %w", err)
	}
	return q.GetVenue(ctx, id)
}

const venueColumns = `id, owner_id, name, address, contact_phone, timezone, sports, amenities,
       approval_status, is_active, created_at, updated_at, deleted_at`

const getVenue = `SELECT ` + venueColumns + `
FROM venues
WHERE id = ? AND deleted_at IS NULL`

// GetVenue returns sql.ErrNoRows for unknown or soft-deleted venues.
func (q *Queries) GetVenue(ctx context.Context, id int64) (models.Venue, error) {
	return scanVenue(q.db.QueryRowContext(ctx, getVenue, id))
}

const listVenuesByOwner = `SELECT ` + venueColumns + `
FROM venues
WHERE owner_id = ? AND deleted_at IS NULL
ORDER BY id`

func (q *Queries) ListVenuesByOwner(ctx context.Context, ownerID int64) ([]models.Venue, error) {
	rows, err := q.db.QueryContext(ctx, listVenuesByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var venues []models.Venue
	for rows.Next() {
		venue, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, venue)
	}
	return venues, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVenue(row rowScanner) (models.Venue, error) {
	var (
		venue                models.Venue
		sports, amenities    string
		approval             string
		isActive             int64
		createdAt, updatedAt int64
		deletedAt            sql.NullInt64
	)
	err := row.Scan(
		&venue.ID,
		&venue.OwnerID,
		&venue.Name,
		&venue.Address,
		&venue.ContactPhone,
		&venue.Timezone,
		&sports,
		&amenities,
		&approval,
		&isActive,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return models.Venue{}, err
	}
	if err := json.Unmarshal([]byte(sports), &venue.Sports); err != nil {
		return models.Venue{}, fmt.Errorf("decode venue %d sports: %w", venue.ID, err)
	}
	if err := json.Unmarshal([]byte(amenities), &venue.Amenities); err != nil {
		return models.Venue{}, fmt.Errorf("decode venue %d amenities: %w", venue.ID, err)
	}
	venue.ApprovalStatus = models.ApprovalStatus(approval)
	venue.IsActive = isActive != 0
	venue.CreatedAt = fromUnix(createdAt)
	venue.UpdatedAt = fromUnix(updatedAt)
	venue.DeletedAt = fromNullUnix(deletedAt)
	venue.Lifecycle = models.LifecycleOf(venue.DeletedAt)
	return venue, nil
}

type UpdateVenueStatusParams struct {
	ID     int64
	Status models.ApprovalStatus
	Now    time.Time
}

const updateVenueStatus = `
UPDATE venues
SET approval_status = ?, updated_at = ?
WHERE id = ? AND deleted_at IS NULL AND approval_status != ?`

// UpdateVenueStatus only changes rows whose status differs, so a repeated
// transition affects zero rows.
func (q *Queries) UpdateVenueStatus(ctx context.Context, arg UpdateVenueStatusParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateVenueStatus, string(arg.Status), toUnix(arg.Now), arg.ID, string(arg.Status))
	if err != nil {
		return 0, fmt.Errorf("update venue status: %w", err)
	}
	return res.RowsAffected()
}

type SetVenueActiveParams struct {
	ID       int64
	IsActive bool
	Now      time.Time
}

const setVenueActive = `
UPDATE venues
SET is_active = ?, updated_at = ?
WHERE id = ? AND deleted_at IS NULL`

func (q *Queries) SetVenueActive(ctx context.Context, arg SetVenueActiveParams) (int64, error) {
	active := 0
	if arg.IsActive {
		active = 1
	}
	res, err := q.db.ExecContext(ctx, setVenueActive, active, toUnix(arg.Now), arg.ID)
	if err != nil {
		return 0, fmt.Errorf("set venue active: %w", err)
	}
	return res.RowsAffected()
}

const softDeleteVenue = `
UPDATE venues
SET deleted_at = ?, updated_at = ?
WHERE id = ? AND deleted_at IS NULL`

func (q *Queries) SoftDeleteVenue(ctx context.Context, id int64, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteVenue, toUnix(now), toUnix(now), id)
	if err != nil {
		return 0, fmt.Errorf("delete venue: %w", err)
	}
	return res.RowsAffected()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
