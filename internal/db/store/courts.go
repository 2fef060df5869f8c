package store

import (
	"context"
	"fmt"
	"time"

	"github.com/codr1/courtbook/internal/models"
)

type CreateCourtParams struct {
	VenueID   int64
	SportType string
	Now       time.Time
}

const createCourt = `
INSERT INTO courts (venue_id, sport_type, created_at, updated_at)
VALUES (?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (int64, error) {
	var id int64
	now := toUnix(arg.Now)
	if err := q.db.QueryRowContext(ctx, createCourt, arg.VenueID, arg.SportType, now, now).Scan(&id); err != nil {
		return 0, fmt.Errorf("create court: %w", err)
	}
	return id, nil
}

type AddCourtUnitParams struct {
	CourtID  int64
	VenueID  int64
	Name     string
	Position int
}

const addCourtUnit = `
INSERT INTO court_units (court_id, venue_id, name, position)
VALUES (?, ?, ?, ?)`

// AddCourtUnit fails with a UNIQUE constraint error when the venue already
// has a physical court of that name.
func (q *Queries) AddCourtUnit(ctx context.Context, arg AddCourtUnitParams) error {
	_, err := q.db.ExecContext(ctx, addCourtUnit, arg.CourtID, arg.VenueID, arg.Name, arg.Position)
	if err != nil {
		return fmt.Errorf("add court unit %q: %w", arg.Name, err)
	}
	return nil
}

const findCourtUnitNames = `
SELECT name FROM court_units
WHERE venue_id = ?`

// ListVenueCourtNames returns every physical court name registered for the
// venue, including those of soft-deleted courts.
func (q *Queries) ListVenueCourtNames(ctx context.Context, venueID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, findCourtUnitNames, venueID)
	if err != nil {
		return nil, fmt.Errorf("list court names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan court name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const deleteCourtSchedule = `DELETE FROM court_schedule_slots WHERE court_id = ?`

const insertCourtScheduleSlot = `
INSERT INTO court_schedule_slots (court_id, day_of_week, start_minute, end_minute, price_cents, is_maintenance)
VALUES (?, ?, ?, ?, ?, ?)`

const touchCourt = `UPDATE courts SET updated_at = ? WHERE id = ?`

// ReplaceCourtSchedule swaps the court's weekly template. Callers pass a
// template already checked by models.NormalizeAvailability and run this
// inside a transaction.
func (q *Queries) ReplaceCourtSchedule(ctx context.Context, courtID int64, days []models.DayAvailability, now time.Time) error {
	if _, err := q.db.ExecContext(ctx, deleteCourtSchedule, courtID); err != nil {
		return fmt.Errorf("clear court schedule: %w", err)
	}
	for _, day := range days {
		weekday, err := models.ParseDayOfWeek(day.DayOfWeek)
		if err != nil {
			return err
		}
		for _, slot := range day.TimeSlots {
			start, end, err := slot.Bounds()
			if err != nil {
				return err
			}
			maintenance := 0
			if slot.IsMaintenance {
				maintenance = 1
			}
			if _, err := q.db.ExecContext(ctx, insertCourtScheduleSlot,
				courtID, int(weekday), start, end, int64(slot.Price), maintenance,
			); err != nil {
				return fmt.Errorf("insert schedule slot: %w", err)
			}
		}
	}
	if _, err := q.db.ExecContext(ctx, touchCourt, toUnix(now), courtID); err != nil {
		return fmt.Errorf("touch court: %w", err)
	}
	return nil
}

const courtColumns = `id, venue_id, sport_type, created_at, updated_at`

const getCourt = `SELECT ` + courtColumns + `
FROM courts
WHERE id = ? AND deleted_at IS NULL`

// GetCourt returns sql.ErrNoRows for unknown or soft-deleted courts.
func (q *Queries) GetCourt(ctx context.Context, id int64) (models.Court, error) {
	court, err := scanCourt(q.db.QueryRowContext(ctx, getCourt, id))
	if err != nil {
		return models.Court{}, err
	}
	courts := []models.Court{court}
	if err := q.loadCourtDetails(ctx, courts); err != nil {
		return models.Court{}, err
	}
	return courts[0], nil
}

const listCourtsByVenue = `SELECT ` + courtColumns + `
FROM courts
WHERE venue_id = ? AND deleted_at IS NULL AND (? = '' OR sport_type = ?)
ORDER BY id`

// ListCourtsByVenueAndSport loads active courts with their physical court
// names and weekly templates. An empty sport matches every court.
func (q *Queries) ListCourtsByVenueAndSport(ctx context.Context, venueID int64, sportType string) ([]models.Court, error) {
	rows, err := q.db.QueryContext(ctx, listCourtsByVenue, venueID, sportType, sportType)
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	defer rows.Close()

	var courts []models.Court
	for rows.Next() {
		court, err := scanCourt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan court: %w", err)
		}
		courts = append(courts, court)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := q.loadCourtDetails(ctx, courts); err != nil {
		return nil, err
	}
	return courts, nil
}

func scanCourt(row rowScanner) (models.Court, error) {
	var (
		court                models.Court
		createdAt, updatedAt int64
	)
	if err := row.Scan(&court.ID, &court.VenueID, &court.SportType, &createdAt, &updatedAt); err != nil {
		return models.Court{}, err
	}
	court.CreatedAt = fromUnix(createdAt)
	court.UpdatedAt = fromUnix(updatedAt)
	return court, nil
}

func (q *Queries) loadCourtDetails(ctx context.Context, courts []models.Court) error {
	if len(courts) == 0 {
		return nil
	}
	ids := make([]int64, len(courts))
	index := make(map[int64]int, len(courts))
	for i, court := range courts {
		ids[i] = court.ID
		index[court.ID] = i
	}

	unitRows, err := q.db.QueryContext(ctx,
		`SELECT court_id, name FROM court_units WHERE court_id IN (`+placeholders(len(ids))+`) ORDER BY court_id, position, id`,
		int64Args(ids)...,
	)
	if err != nil {
		return fmt.Errorf("load court units: %w", err)
	}
	for unitRows.Next() {
		var (
			courtID int64
			name    string
		)
		if err := unitRows.Scan(&courtID, &name); err != nil {
			unitRows.Close()
			return fmt.Errorf("scan court unit: %w", err)
		}
		i := index[courtID]
		courts[i].CourtNames = append(courts[i].CourtNames, name)
	}
	if err := unitRows.Err(); err != nil {
		unitRows.Close()
		return err
	}
	unitRows.Close()

	slotRows, err := q.db.QueryContext(ctx,
		`SELECT court_id, day_of_week, start_minute, end_minute, price_cents, is_maintenance
		 FROM court_schedule_slots
		 WHERE court_id IN (`+placeholders(len(ids))+`)
		 ORDER BY court_id, day_of_week, start_minute`,
		int64Args(ids)...,
	)
	if err != nil {
		return fmt.Errorf("load court schedule: %w", err)
	}
	defer slotRows.Close()
	for slotRows.Next() {
		var (
			courtID, price       int64
			day, start, end, mnt int
		)
		if err := slotRows.Scan(&courtID, &day, &start, &end, &price, &mnt); err != nil {
			return fmt.Errorf("scan schedule slot: %w", err)
		}
		court := &courts[index[courtID]]
		dayName := models.DayName(time.Weekday(day))
		slot := models.TimeSlot{
			StartTime:     models.FormatClock(start),
			EndTime:       models.FormatClock(end),
			Price:         models.Money(price),
			IsMaintenance: mnt != 0,
		}
		n := len(court.Availability)
		if n == 0 || court.Availability[n-1].DayOfWeek != dayName {
			court.Availability = append(court.Availability, models.DayAvailability{DayOfWeek: dayName})
			n++
		}
		court.Availability[n-1].TimeSlots = append(court.Availability[n-1].TimeSlots, slot)
	}
	return slotRows.Err()
}
