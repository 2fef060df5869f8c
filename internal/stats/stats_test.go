package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codr1/courtbook/internal/db/store"
	"github.com/codr1/courtbook/internal/models"
)

type fakeLedger struct {
	bookings []models.Booking
	err      error
	filters  []store.BookingFilter
}

func (f *fakeLedger) ScanBookings(_ context.Context, filter store.BookingFilter, fn func(models.Booking) error) error {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return f.err
	}
	for _, booking := range f.bookings {
		if filter.VenueID != 0 && booking.VenueID != filter.VenueID {
			continue
		}
		if err := fn(booking); err != nil {
			return err
		}
	}
	return nil
}

func booking(venueID int64, start time.Time, status models.BookingStatus, payment models.PaymentStatus, price models.Money) models.Booking {
	return models.Booking{
		VenueID:       venueID,
		Slot:          models.Slot{StartAt: start, EndAt: start.Add(time.Hour)},
		BookingStatus: status,
		PaymentStatus: payment,
		TotalPrice:    price,
	}
}

func sampleLedger() *fakeLedger {
	mon := time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC)
	return &fakeLedger{bookings: []models.Booking{
		booking(1, mon, models.BookingConfirmed, models.PaymentPaid, 2000),
		booking(1, mon.Add(2*time.Hour), models.BookingCompleted, models.PaymentPaid, 3000),
		booking(1, mon.AddDate(0, 0, 1), models.BookingPending, models.PaymentPending, 2500),
		booking(1, mon.AddDate(0, 0, 8), models.BookingCancelled, models.PaymentRefunded, 4000),
		booking(2, mon.AddDate(0, 0, 2), models.BookingConfirmed, models.PaymentPending, 1500),
		booking(2, mon.AddDate(0, 1, 0), models.BookingCompleted, models.PaymentPaid, 1000),
	}}
}

func TestGroupBySkipsUnkeyedBookings(t *testing.T) {
	ledger := sampleLedger()

	groups, err := GroupBy(context.Background(), ledger, store.BookingFilter{},
		func(b models.Booking) (int64, bool) { return b.VenueID, b.VenueID == 1 },
		func(acc int, _ models.Booking) int { return acc + 1 },
	)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 4}, groups)
}

func TestGroupByReportsLedgerFailure(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("disk I/O error")}

	_, err := GroupBy(context.Background(), ledger, store.BookingFilter{},
		func(b models.Booking) (int64, bool) { return b.VenueID, true },
		func(acc int, _ models.Booking) int { return acc + 1 },
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestComputeOverview(t *testing.T) {
	ledger := sampleLedger()

	overview, err := ComputeOverview(context.Background(), ledger, store.BookingFilter{})
	require.NoError(t, err)

	assert.Equal(t, 6, overview.TotalBookings)
	assert.Equal(t, 2, overview.ByBookingStatus[models.BookingConfirmed])
	assert.Equal(t, 2, overview.ByBookingStatus[models.BookingCompleted])
	assert.Equal(t, 1, overview.ByBookingStatus[models.BookingPending])
	assert.Equal(t, 1, overview.ByBookingStatus[models.BookingCancelled])
	assert.Equal(t, 3, overview.ByPaymentStatus[models.PaymentPaid])
	assert.Equal(t, 0, overview.ByPaymentStatus[models.PaymentFailed])
	assert.Equal(t, models.Money(7500), overview.TotalRevenue)
}

func TestComputeOverviewPassesFilterThrough(t *testing.T) {
	ledger := sampleLedger()

	overview, err := ComputeOverview(context.Background(), ledger, store.BookingFilter{VenueID: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, overview.TotalBookings)
	assert.Equal(t, models.Money(2500), overview.TotalRevenue)
	require.Len(t, ledger.filters, 1)
	assert.Equal(t, int64(2), ledger.filters[0].VenueID)
}

func TestComputeRevenueBuckets(t *testing.T) {
	tests := []struct {
		name   string
		bucket Bucket
		want   []RevenueRow
	}{
		{
			name:   "day",
			bucket: BucketDay,
			want: []RevenueRow{
				{VenueID: 1, Period: "2030-05-06", Bookings: 2, Revenue: 5000},
				{VenueID: 2, Period: "2030-05-08", Bookings: 1, Revenue: 1500},
				{VenueID: 2, Period: "2030-06-06", Bookings: 1, Revenue: 1000},
			},
		},
		{
			name:   "week",
			bucket: BucketWeek,
			want: []RevenueRow{
				{VenueID: 1, Period: "2030-05-06", Bookings: 2, Revenue: 5000},
				{VenueID: 2, Period: "2030-05-06", Bookings: 1, Revenue: 1500},
				{VenueID: 2, Period: "2030-06-03", Bookings: 1, Revenue: 1000},
			},
		},
		{
			name:   "month",
			bucket: BucketMonth,
			want: []RevenueRow{
				{VenueID: 1, Period: "2030-05-01", Bookings: 2, Revenue: 5000},
				{VenueID: 2, Period: "2030-05-01", Bookings: 1, Revenue: 1500},
				{VenueID: 2, Period: "2030-06-01", Bookings: 1, Revenue: 1000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ComputeRevenue(context.Background(), sampleLedger(), store.BookingFilter{}, tt.bucket, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestComputeRevenueUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	late := time.Date(2030, 5, 6, 22, 30, 0, 0, time.UTC)
	ledger := &fakeLedger{bookings: []models.Booking{
		booking(1, late, models.BookingConfirmed, models.PaymentPaid, 1000),
	}}

	rows, err := ComputeRevenue(context.Background(), ledger, store.BookingFilter{}, BucketDay, loc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2030-05-07", rows[0].Period)
}

func TestParseBucket(t *testing.T) {
	bucket, err := ParseBucket("")
	require.NoError(t, err)
	assert.Equal(t, BucketDay, bucket)

	bucket, err = ParseBucket(" Month ")
	require.NoError(t, err)
	assert.Equal(t, BucketMonth, bucket)

	_, err = ParseBucket("year")
	assert.Error(t, err)
}

func TestWeekTruncateStartsMonday(t *testing.T) {
	sunday := time.Date(2030, 5, 12, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2030, 5, 6, 0, 0, 0, 0, time.UTC), BucketWeek.Truncate(sunday))
}
