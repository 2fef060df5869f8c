package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/codr1/courtbook/internal/models"
)

type InsertBookingParams struct {
	Reference   string
	UserID      int64
	VenueID     int64
	SportType   string
	StartAt     time.Time
	EndAt       time.Time
	TotalPrice  models.Money
	Notes       string
	ClientToken string
	Now         time.Time
}

const insertBooking = `
INSERT INTO bookings (
    reference, user_id, venue_id, sport_type, start_at, end_at, total_price_cents,
    booking_status, payment_status, notes, client_token, status_updated_at, created_at, updated_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', 'pending', ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) InsertBooking(ctx context.Context, arg InsertBookingParams) (int64, error) {
	var id int64
	now := toUnix(arg.Now)
	err := q.db.QueryRowContext(ctx, insertBooking,
		arg.Reference,
		arg.UserID,
		arg.VenueID,
		arg.SportType,
		toUnix(arg.StartAt),
		toUnix(arg.EndAt),
		int64(arg.TotalPrice),
		arg.Notes,
		toNullString(arg.ClientToken),
		now,
		now,
		now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	return id, nil
}

const deleteBookingCourts = `DELETE FROM booking_courts WHERE booking_id = ?`

const insertBookingCourt = `
INSERT INTO booking_courts (booking_id, venue_id, court_name)
VALUES (?, ?, ?)`

// SetBookingCourts replaces the physical courts held by a booking.
func (q *Queries) SetBookingCourts(ctx context.Context, bookingID, venueID int64, courtNames []string) error {
	if _, err := q.db.ExecContext(ctx, deleteBookingCourts, bookingID); err != nil {
		return fmt.Errorf("clear booking courts: %w", err)
	}
	for _, name := range courtNames {
		if _, err := q.db.ExecContext(ctx, insertBookingCourt, bookingID, venueID, name); err != nil {
			return fmt.Errorf("insert booking court %q: %w", name, err)
		}
	}
	return nil
}

const bookingColumns = `b.id, b.reference, b.user_id, b.venue_id, b.sport_type, b.start_at, b.end_at,
       b.total_price_cents, b.booking_status, b.payment_status, b.notes, b.cancelled_at,
       b.status_updated_at, b.created_at, b.updated_at`

const getBooking = `SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.id = ? AND b.deleted_at IS NULL`

// GetBooking returns sql.ErrNoRows for unknown or soft-deleted bookings.
func (q *Queries) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	booking, err := scanBooking(q.db.QueryRowContext(ctx, getBooking, id))
	if err != nil {
		return models.Booking{}, err
	}
	bookings := []models.Booking{booking}
	if err := q.attachCourtNames(ctx, bookings); err != nil {
		return models.Booking{}, err
	}
	return bookings[0], nil
}

const getBookingByClientToken = `SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.user_id = ? AND b.client_token = ? AND b.deleted_at IS NULL`

func (q *Queries) GetBookingByClientToken(ctx context.Context, userID int64, token string) (models.Booking, error) {
	booking, err := scanBooking(q.db.QueryRowContext(ctx, getBookingByClientToken, userID, token))
	if err != nil {
		return models.Booking{}, err
	}
	bookings := []models.Booking{booking}
	if err := q.attachCourtNames(ctx, bookings); err != nil {
		return models.Booking{}, err
	}
	return bookings[0], nil
}

// OverlappingBookings returns non-cancelled bookings of the venue holding any
// of courtNames during [startAt, endAt). Ranges that only touch do not overlap.
func (q *Queries) OverlappingBookings(ctx context.Context, venueID int64, courtNames []string, startAt, endAt time.Time, excludeID int64) ([]models.Booking, error) {
	if len(courtNames) == 0 {
		return nil, nil
	}
	query := `SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.venue_id = ?
  AND b.deleted_at IS NULL
  AND b.booking_status != 'cancelled'
  AND b.start_at < ?
  AND b.end_at > ?
  AND b.id != ?
  AND EXISTS (
      SELECT 1 FROM booking_courts bc
      WHERE bc.booking_id = b.id AND bc.court_name IN (` + placeholders(len(courtNames)) + `)
  )
ORDER BY b.start_at, b.id`

	args := append([]any{venueID, toUnix(endAt), toUnix(startAt), excludeID}, stringArgs(courtNames)...)
	return q.queryBookings(ctx, query, args...)
}

// BookingFilter narrows ledger reads. Zero values match everything.
type BookingFilter struct {
	UserID  int64
	OwnerID int64
	VenueID int64
	Status  models.BookingStatus
	From    *time.Time
	To      *time.Time
}

func (f BookingFilter) where() (string, []any) {
	clauses := []string{"b.deleted_at IS NULL"}
	var args []any
	if f.UserID != 0 {
		clauses = append(clauses, "b.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.OwnerID != 0 {
		clauses = append(clauses, "b.venue_id IN (SELECT id FROM venues WHERE owner_id = ?)")
		args = append(args, f.OwnerID)
	}
	if f.VenueID != 0 {
		clauses = append(clauses, "b.venue_id = ?")
		args = append(args, f.VenueID)
	}
	if f.Status != "" {
		clauses = append(clauses, "b.booking_status = ?")
		args = append(args, string(f.Status))
	}
	if f.From != nil {
		clauses = append(clauses, "b.start_at >= ?")
		args = append(args, toUnix(*f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "b.start_at < ?")
		args = append(args, toUnix(*f.To))
	}
	return strings.Join(clauses, " AND "), args
}

type ListBookingsParams struct {
	Filter BookingFilter
	Limit  int
	Offset int
}

func (q *Queries) ListBookings(ctx context.Context, arg ListBookingsParams) ([]models.Booking, error) {
	where, args := arg.Filter.where()
	query := `SELECT ` + bookingColumns + `
FROM bookings b
WHERE ` + where + `
ORDER BY b.start_at DESC, b.id DESC
LIMIT ? OFFSET ?`
	args = append(args, arg.Limit, arg.Offset)
	return q.queryBookings(ctx, query, args...)
}

// ScanBookings streams the ledger rows matching filter to fn without loading
// court names. It stops at the first error fn returns.
func (q *Queries) ScanBookings(ctx context.Context, filter BookingFilter, fn func(models.Booking) error) error {
	where, args := filter.where()
	rows, err := q.db.QueryContext(ctx, `SELECT `+bookingColumns+`
FROM bookings b
WHERE `+where+`
ORDER BY b.start_at, b.id`, args...)
	if err != nil {
		return fmt.Errorf("scan ledger: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return fmt.Errorf("scan booking: %w", err)
		}
		if err := fn(booking); err != nil {
			return err
		}
	}
	return rows.Err()
}

type UpdateBookingParams struct {
	ID            int64
	StartAt       time.Time
	EndAt         time.Time
	TotalPrice    models.Money
	Notes         string
	PaymentStatus models.PaymentStatus
	Now           time.Time
}

const updateBooking = `
UPDATE bookings
SET start_at = ?, end_at = ?, total_price_cents = ?, notes = ?, payment_status = ?, updated_at = ?
WHERE id = ? AND deleted_at IS NULL`

func (q *Queries) UpdateBooking(ctx context.Context, arg UpdateBookingParams) error {
	_, err := q.db.ExecContext(ctx, updateBooking,
		toUnix(arg.StartAt),
		toUnix(arg.EndAt),
		int64(arg.TotalPrice),
		arg.Notes,
		string(arg.PaymentStatus),
		toUnix(arg.Now),
		arg.ID,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

type TransitionBookingParams struct {
	ID          int64
	From        models.BookingStatus
	To          models.BookingStatus
	CancelledAt *time.Time
	Now         time.Time
}

const transitionBooking = `
UPDATE bookings
SET booking_status = ?, cancelled_at = COALESCE(?, cancelled_at), status_updated_at = ?, updated_at = ?
WHERE id = ? AND booking_status = ? AND deleted_at IS NULL`

// TransitionBooking moves a booking from one status to another. It affects
// zero rows when the booking is no longer in the From status.
func (q *Queries) TransitionBooking(ctx context.Context, arg TransitionBookingParams) (int64, error) {
	now := toUnix(arg.Now)
	res, err := q.db.ExecContext(ctx, transitionBooking,
		string(arg.To),
		toNullUnix(arg.CancelledAt),
		now,
		now,
		arg.ID,
		string(arg.From),
	)
	if err != nil {
		return 0, fmt.Errorf("transition booking: %w", err)
	}
	return res.RowsAffected()
}

const completeFinishedBookings = `
UPDATE bookings
SET booking_status = 'completed', status_updated_at = ?, updated_at = ?
WHERE booking_status = 'confirmed' AND end_at <= ? AND deleted_at IS NULL`

// CompleteFinishedBookings marks confirmed bookings whose slot has ended as
// completed and returns how many changed.
func (q *Queries) CompleteFinishedBookings(ctx context.Context, now time.Time) (int64, error) {
	ts := toUnix(now)
	res, err := q.db.ExecContext(ctx, completeFinishedBookings, ts, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("complete finished bookings: %w", err)
	}
	return res.RowsAffected()
}

const cancelStalePendingBookings = `
UPDATE bookings
SET booking_status = 'cancelled', cancelled_at = ?, status_updated_at = ?, updated_at = ?
WHERE booking_status = 'pending'
  AND payment_status = 'pending'
  AND created_at <= ?
  AND deleted_at IS NULL`

// CancelStalePendingBookings cancels unpaid pending bookings created at or
// before createdBefore.
func (q *Queries) CancelStalePendingBookings(ctx context.Context, createdBefore, now time.Time) (int64, error) {
	ts := toUnix(now)
	res, err := q.db.ExecContext(ctx, cancelStalePendingBookings, ts, ts, ts, toUnix(createdBefore))
	if err != nil {
		return 0, fmt.Errorf("cancel stale pending bookings: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := q.attachCourtNames(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (q *Queries) attachCourtNames(ctx context.Context, bookings []models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	ids := make([]int64, len(bookings))
	index := make(map[int64]int, len(bookings))
	for i, booking := range bookings {
		ids[i] = booking.ID
		index[booking.ID] = i
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT booking_id, court_name FROM booking_courts WHERE booking_id IN (`+placeholders(len(ids))+`) ORDER BY booking_id, court_name`,
		int64Args(ids)...,
	)
	if err != nil {
		return fmt.Errorf("load booking courts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bookingID int64
			name      string
		)
		if err := rows.Scan(&bookingID, &name); err != nil {
			return fmt.Errorf("scan booking court: %w", err)
		}
		i := index[bookingID]
		bookings[i].CourtNames = append(bookings[i].CourtNames, name)
	}
	return rows.Err()
}

func scanBooking(row rowScanner) (models.Booking, error) {
	var (
		booking                      models.Booking
		startAt, endAt, price        int64
		bookingStatus, paymentStatus string
		cancelledAt, statusUpdatedAt sql.NullInt64
		createdAt, updatedAt         int64
	)
	err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.UserID,
		&booking.VenueID,
		&booking.SportType,
		&startAt,
		&endAt,
		&price,
		&bookingStatus,
		&paymentStatus,
		&booking.Notes,
		&cancelledAt,
		&statusUpdatedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return models.Booking{}, err
	}
	booking.Slot = models.Slot{StartAt: fromUnix(startAt), EndAt: fromUnix(endAt)}
	booking.TotalPrice = models.Money(price)
	booking.BookingStatus = models.BookingStatus(bookingStatus)
	booking.PaymentStatus = models.PaymentStatus(paymentStatus)
	booking.CancelledAt = fromNullUnix(cancelledAt)
	booking.StatusUpdatedAt = fromNullUnix(statusUpdatedAt)
	booking.CreatedAt = fromUnix(createdAt)
	booking.UpdatedAt = fromUnix(updatedAt)
	return booking, nil
}
