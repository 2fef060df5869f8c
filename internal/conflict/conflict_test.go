package conflict

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codr1/courtbook/internal/models"
)

var ten = time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time { return ten.Add(offset) }

func booking(id int64, start, end time.Time, status models.BookingStatus, courts ...string) models.Booking {
	return models.Booking{
		ID:            id,
		VenueID:       1,
		Slot:          models.Slot{StartAt: start, EndAt: end},
		CourtNames:    courts,
		BookingStatus: status,
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{name: "identical", start: at(0), end: at(time.Hour), want: true},
		{name: "partial", start: at(30 * time.Minute), end: at(90 * time.Minute), want: true},
		{name: "contained", start: at(15 * time.Minute), end: at(45 * time.Minute), want: true},
		{name: "back_to_back_after", start: at(time.Hour), end: at(2 * time.Hour), want: false},
		{name: "back_to_back_before", start: at(-time.Hour), end: at(0), want: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, Overlaps(at(0), at(time.Hour), test.start, test.end))
			assert.Equal(t, test.want, Overlaps(test.start, test.end, at(0), at(time.Hour)), "symmetric")
		})
	}
}

func TestDetectBookings(t *testing.T) {
	existing := []models.Booking{
		booking(1, at(0), at(time.Hour), models.BookingConfirmed, "Court1"),
		booking(2, at(0), at(time.Hour), models.BookingCancelled, "Court2"),
		booking(3, at(0), at(time.Hour), models.BookingPending, "Court3", "Court1"),
	}

	got := Detect(Request{
		VenueID:    1,
		CourtNames: []string{"Court1", "Court2"},
		Slot:       models.Slot{StartAt: at(30 * time.Minute), EndAt: at(90 * time.Minute)},
	}, existing, nil)

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, KindBooking, got[0].Kind)
	assert.Equal(t, []string{"Court1"}, got[1].CourtNames, "only shared courts are reported")

	got = Detect(Request{
		VenueID:          1,
		CourtNames:       []string{"Court1"},
		Slot:             models.Slot{StartAt: at(0), EndAt: at(time.Hour)},
		ExcludeBookingID: 1,
	}, existing[:1], nil)
	assert.Empty(t, got, "a booking never conflicts with itself")
}

func TestDetectBlocksGroupedByID(t *testing.T) {
	blocks := []models.CourtBlock{
		{ID: 9, VenueID: 1, CourtName: "Court1", StartAt: at(0), EndAt: at(2 * time.Hour), Reason: "resurfacing"},
		{ID: 9, VenueID: 1, CourtName: "Court2", StartAt: at(0), EndAt: at(2 * time.Hour), Reason: "resurfacing"},
		{ID: 10, VenueID: 1, CourtName: "Court1", StartAt: at(2 * time.Hour), EndAt: at(3 * time.Hour)},
	}

	got := Detect(Request{
		VenueID:    1,
		CourtNames: []string{"Court2", "Court1"},
		Slot:       models.Slot{StartAt: at(time.Hour), EndAt: at(2 * time.Hour)},
	}, nil, blocks)

	require.Len(t, got, 1)
	assert.Equal(t, KindMaintenanceBlock, got[0].Kind)
	assert.Equal(t, []string{"Court1", "Court2"}, got[0].CourtNames)
	assert.Equal(t, "resurfacing", got[0].Reason)
}

func TestDetectMaintenanceSlots(t *testing.T) {
	got := Detect(Request{
		VenueID:    1,
		CourtNames: []string{"Court1"},
		Slot:       models.Slot{StartAt: at(0), EndAt: at(time.Hour)},
		Maintenance: []MaintenanceWindow{
			{CourtName: "Court1", StartAt: at(45 * time.Minute), EndAt: at(2 * time.Hour)},
			{CourtName: "Court2", StartAt: at(0), EndAt: at(time.Hour)},
			{CourtName: "Court1", StartAt: at(time.Hour), EndAt: at(2 * time.Hour)},
		},
	}, nil, nil)

	require.Len(t, got, 1)
	assert.Equal(t, KindMaintenanceSlot, got[0].Kind)
}

type fakeSource struct {
	bookings []models.Booking
	blocks   []models.CourtBlock
	err      error
}

func (f fakeSource) OverlappingBookings(context.Context, int64, []string, time.Time, time.Time, int64) ([]models.Booking, error) {
	return f.bookings, f.err
}

func (f fakeSource) OverlappingBlocks(context.Context, int64, []string, time.Time, time.Time) ([]models.CourtBlock, error) {
	return f.blocks, nil
}

func TestFind(t *testing.T) {
	req := Request{
		VenueID:    1,
		CourtNames: []string{"Court1"},
		Slot:       models.Slot{StartAt: at(time.Hour), EndAt: at(2 * time.Hour)},
	}

	got, err := Find(context.Background(), fakeSource{
		bookings: []models.Booking{booking(1, at(0), at(time.Hour), models.BookingConfirmed, "Court1")},
	}, req)
	require.NoError(t, err)
	assert.Empty(t, got, "over-fetched back-to-back booking is filtered")

	sentinel := errors.New("db down")
	_, err = Find(context.Background(), fakeSource{err: sentinel}, req)
	assert.ErrorIs(t, err, sentinel)
}
