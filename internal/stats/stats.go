// Package stats derives read-only aggregates from the reservation ledger.
package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/codr1/courtbook/internal/db/store"
	"github.com/codr1/courtbook/internal/models"
)

// Ledger streams bookings matching a filter.
type Ledger interface {
	ScanBookings(ctx context.Context, filter store.BookingFilter, fn func(models.Booking) error) error
}

// GroupBy folds every booking matching filter into the accumulator for its
// key. Bookings for which key returns false are skipped.
func GroupBy[K comparable, V any](
	ctx context.Context,
	ledger Ledger,
	filter store.BookingFilter,
	key func(models.Booking) (K, bool),
	reduce func(acc V, booking models.Booking) V,
) (map[K]V, error) {
	groups := make(map[K]V)
	err := ledger.ScanBookings(ctx, filter, func(booking models.Booking) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		k, ok := key(booking)
		if !ok {
			return nil
		}
		groups[k] = reduce(groups[k], booking)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate ledger: %w", err)
	}
	return groups, nil
}

// Earns reports whether a booking counts towards revenue.
func Earns(booking models.Booking) bool {
	return booking.BookingStatus == models.BookingConfirmed || booking.BookingStatus == models.BookingCompleted
}

type tally struct {
	count   int
	revenue models.Money
}

func count(acc tally, booking models.Booking) tally {
	acc.count++
	if Earns(booking) {
		acc.revenue += booking.TotalPrice
	}
	return acc
}

type Overview struct {
	TotalBookings   int                          `json:"total_bookings"`
	ByBookingStatus map[models.BookingStatus]int `json:"by_booking_status"`
	ByPaymentStatus map[models.PaymentStatus]int `json:"by_payment_status"`
	TotalRevenue    models.Money                 `json:"total_revenue"`
}

// ComputeOverview counts bookings by status and sums the revenue of
// confirmed and completed bookings.
func ComputeOverview(ctx context.Context, ledger Ledger, filter store.BookingFilter) (*Overview, error) {
	type statusPair struct {
		booking models.BookingStatus
		payment models.PaymentStatus
	}
	groups, err := GroupBy(ctx, ledger, filter,
		func(b models.Booking) (statusPair, bool) {
			return statusPair{booking: b.BookingStatus, payment: b.PaymentStatus}, true
		},
		count,
	)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		ByBookingStatus: make(map[models.BookingStatus]int),
		ByPaymentStatus: make(map[models.PaymentStatus]int),
	}
	for _, status := range models.BookingStatuses() {
		overview.ByBookingStatus[status] = 0
	}
	for _, status := range models.PaymentStatuses() {
		overview.ByPaymentStatus[status] = 0
	}
	for pair, t := range groups {
		overview.TotalBookings += t.count
		overview.ByBookingStatus[pair.booking] += t.count
		overview.ByPaymentStatus[pair.payment] += t.count
		overview.TotalRevenue += t.revenue
	}
	return overview, nil
}

type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

func ParseBucket(raw string) (Bucket, error) {
	switch Bucket(strings.ToLower(strings.TrimSpace(raw))) {
	case "", BucketDay:
		return BucketDay, nil
	case BucketWeek:
		return BucketWeek, nil
	case BucketMonth:
		return BucketMonth, nil
	default:
		return "", fmt.Errorf("bucket must be one of day, week, month")
	}
}

// Truncate returns the start of the bucket containing t. Weeks start on
// Monday.
func (b Bucket) Truncate(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch b {
	case BucketWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case BucketMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

type RevenueRow struct {
	VenueID  int64        `json:"venue_id"`
	Period   string       `json:"period"`
	Bookings int          `json:"bookings"`
	Revenue  models.Money `json:"revenue"`
}

// ComputeRevenue groups earning bookings per venue and bucket. Buckets are
// cut in loc (UTC when nil) by slot start.
func ComputeRevenue(ctx context.Context, ledger Ledger, filter store.BookingFilter, bucket Bucket, loc *time.Location) ([]RevenueRow, error) {
	if loc == nil {
		loc = time.UTC
	}
	type venuePeriod struct {
		venueID int64
		period  time.Time
	}
	groups, err := GroupBy(ctx, ledger, filter,
		func(b models.Booking) (venuePeriod, bool) {
			if !Earns(b) {
				return venuePeriod{}, false
			}
			return venuePeriod{venueID: b.VenueID, period: bucket.Truncate(b.Slot.StartAt.In(loc))}, true
		},
		count,
	)
	if err != nil {
		return nil, err
	}

	keys := make([]venuePeriod, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].venueID != keys[j].venueID {
			return keys[i].venueID < keys[j].venueID
		}
		return keys[i].period.Before(keys[j].period)
	})

	rows := make([]RevenueRow, 0, len(keys))
	for _, k := range keys {
		t := groups[k]
		rows = append(rows, RevenueRow{
			VenueID:  k.venueID,
			Period:   k.period.Format("2006-01-02"),
			Bookings: t.count,
			Revenue:  t.revenue,
		})
	}
	return rows, nil
}
