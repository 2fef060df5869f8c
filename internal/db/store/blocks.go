package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/codr1/courtbook/internal/models"
)

type CreateCourtBlockParams struct {
	CourtID   int64
	VenueID   int64
	CourtName string
	StartAt   time.Time
	EndAt     time.Time
	Reason    string
	CreatedBy int64
	Now       time.Time
}

const createCourtBlock = `
INSERT INTO court_blocks (court_id, venue_id, court_name, start_at, end_at, reason, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateCourtBlock(ctx context.Context, arg CreateCourtBlockParams) (models.CourtBlock, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCourtBlock,
		arg.CourtID,
		arg.VenueID,
		toNullString(arg.CourtName),
		toUnix(arg.StartAt),
		toUnix(arg.EndAt),
		arg.Reason,
		arg.CreatedBy,
		toUnix(arg.Now),
	).Scan(&id)
	if err != nil {
		return models.CourtBlock{}, fmt.Errorf("create court block: %w", err)
	}
	return q.GetCourtBlock(ctx, id)
}

const blockColumns = `id, court_id, venue_id, court_name, start_at, end_at, reason, created_by, created_at`

const getCourtBlock = `SELECT ` + blockColumns + `
FROM court_blocks
WHERE id = ? AND deleted_at IS NULL`

func (q *Queries) GetCourtBlock(ctx context.Context, id int64) (models.CourtBlock, error) {
	return scanCourtBlock(q.db.QueryRowContext(ctx, getCourtBlock, id))
}

const listCourtBlocks = `SELECT ` + blockColumns + `
FROM court_blocks
WHERE court_id = ? AND deleted_at IS NULL
ORDER BY start_at, id`

func (q *Queries) ListCourtBlocks(ctx context.Context, courtID int64) ([]models.CourtBlock, error) {
	rows, err := q.db.QueryContext(ctx, listCourtBlocks, courtID)
	if err != nil {
		return nil, fmt.Errorf("list court blocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.CourtBlock
	for rows.Next() {
		block, err := scanCourtBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan court block: %w", err)
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

const softDeleteCourtBlock = `
UPDATE court_blocks
SET deleted_at = ?
WHERE id = ? AND deleted_at IS NULL`

func (q *Queries) SoftDeleteCourtBlock(ctx context.Context, id int64, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteCourtBlock, toUnix(now), id)
	if err != nil {
		return 0, fmt.Errorf("delete court block: %w", err)
	}
	return res.RowsAffected()
}

// OverlappingBlocks returns one row per (block, physical court) pair for
// blocks intersecting [startAt, endAt) on any of courtNames. A block without
// a court name covers every physical court of its court record, so it is
// expanded through court_units.
func (q *Queries) OverlappingBlocks(ctx context.Context, venueID int64, courtNames []string, startAt, endAt time.Time) ([]models.CourtBlock, error) {
	if len(courtNames) == 0 {
		return nil, nil
	}
	query := `
SELECT b.id, b.court_id, b.venue_id, u.name, b.start_at, b.end_at, b.reason, b.created_by, b.created_at
FROM court_blocks b
JOIN court_units u ON u.court_id = b.court_id
WHERE b.venue_id = ?
  AND b.deleted_at IS NULL
  AND b.start_at < ?
  AND b.end_at > ?
  AND (b.court_name IS NULL OR b.court_name = u.name)
  AND u.name IN (` + placeholders(len(courtNames)) + `)
ORDER BY b.start_at, b.id, u.name`

	args := append([]any{venueID, toUnix(endAt), toUnix(startAt)}, stringArgs(courtNames)...)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find overlapping blocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.CourtBlock
	for rows.Next() {
		block, err := scanCourtBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan court block: %w", err)
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

func scanCourtBlock(row rowScanner) (models.CourtBlock, error) {
	var (
		block                     models.CourtBlock
		courtName                 sql.NullString
		startAt, endAt, createdAt int64
	)
	err := row.Scan(
		&block.ID,
		&block.CourtID,
		&block.VenueID,
		&courtName,
		&startAt,
		&endAt,
		&block.Reason,
		&block.CreatedBy,
		&createdAt,
	)
	if err != nil {
		return models.CourtBlock{}, err
	}
	block.CourtName = courtName.String
	block.StartAt = fromUnix(startAt)
	block.EndAt = fromUnix(endAt)
	block.CreatedAt = fromUnix(createdAt)
	return block, nil
}
