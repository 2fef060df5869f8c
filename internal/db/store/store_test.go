package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/codr1/courtbook/internal/db/store"
	"github.com/codr1/courtbook/internal/models"
	"github.com/codr1/courtbook/internal/testutil"
)

func TestCourtRoundTripKeepsNamesAndTemplate(t *testing.T) {
	database := testutil.NewTestDB(t)
	owner := testutil.CreateUser(t, database, testutil.RoleOwnerID)
	venue := testutil.CreateVenue(t, database, owner.ID)

	court := testutil.CreateCourt(t, database, venue.ID, "tennis", []string{"Court2", "Court1"}, []models.DayAvailability{
		{DayOfWeek: "monday", TimeSlots: []models.TimeSlot{
			{StartTime: "10:00", EndTime: "11:00", Price: 2500},
			{StartTime: "08:00", EndTime: "09:00", Price: 2000, IsMaintenance: true},
		}},
	})

	if len(court.CourtNames) != 2 || court.CourtNames[0] != "Court2" {
		t.Fatalf("court names not kept in order: %v", court.CourtNames)
	}
	if len(court.Availability) != 1 || len(court.Availability[0].TimeSlots) != 2 {
		t.Fatalf("unexpected template: %+v", court.Availability)
	}
	first := court.Availability[0].TimeSlots[0]
	if first.StartTime != "08:00" || !first.IsMaintenance || first.Price != 2000 {
		t.Fatalf("unexpected first slot: %+v", first)
	}

	courts, err := database.Queries.ListCourtsByVenueAndSport(context.Background(), venue.ID, "padel")
	if err != nil {
		t.Fatalf("list courts: %v", err)
	}
	if len(courts) != 0 {
		t.Fatalf("expected no padel courts, got %d", len(courts))
	}
}

func TestCourtNamesUniquePerVenue(t *testing.T) {
	database := testutil.NewTestDB(t)
	owner := testutil.CreateUser(t, database, testutil.RoleOwnerID)
	venue := testutil.CreateVenue(t, database, owner.ID)
	court := testutil.CreateCourt(t, database, venue.ID, "tennis", []string{"Court1"}, nil)

	err := database.Queries.AddCourtUnit(context.Background(), store.AddCourtUnitParams{
		CourtID: court.ID,
		VenueID: venue.ID,
		Name:    "Court1",
	})
	if err == nil {
		t.Fatalf("expected duplicate court name to fail")
	}
}

func TestOverlappingBookingsHalfOpen(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, database, testutil.RoleOwnerID)
	player := testutil.CreateUser(t, database, testutil.RolePlayerID)
	venue := testutil.CreateVenue(t, database, owner.ID)

	start := time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC)
	id, err := database.Queries.InsertBooking(ctx, store.InsertBookingParams{
		Reference: "ref-1",
		UserID:    player.ID,
		VenueID:   venue.ID,
		SportType: "tennis",
		StartAt:   start,
		EndAt:     start.Add(time.Hour),
		Now:       time.Now(),
	})
	if err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	if err := database.Queries.SetBookingCourts(ctx, id, venue.ID, []string{"Court1"}); err != nil {
		t.Fatalf("set courts: %v", err)
	}

	tests := []struct {
		name     string
		courts   []string
		start    time.Time
		end      time.Time
		excludes int64
		want     int
	}{
		{name: "partial_overlap", courts: []string{"Court1"}, start: start.Add(30 * time.Minute), end: start.Add(90 * time.Minute), want: 1},
		{name: "back_to_back_after", courts: []string{"Court1"}, start: start.Add(time.Hour), end: start.Add(2 * time.Hour), want: 0},
		{name: "back_to_back_before", courts: []string{"Court1"}, start: start.Add(-time.Hour), end: start, want: 0},
		{name: "other_court", courts: []string{"Court2"}, start: start, end: start.Add(time.Hour), want: 0},
		{name: "excluded_self", courts: []string{"Court1"}, start: start, end: start.Add(time.Hour), excludes: id, want: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := database.Queries.OverlappingBookings(ctx, venue.ID, test.courts, test.start, test.end, test.excludes)
			if err != nil {
				t.Fatalf("overlapping bookings: %v", err)
			}
			if len(got) != test.want {
				t.Fatalf("got %d overlaps, want %d", len(got), test.want)
			}
		})
	}

	affected, err := database.Queries.TransitionBooking(ctx, store.TransitionBookingParams{
		ID:   id,
		From: models.BookingPending,
		To:   models.BookingCancelled,
		Now:  time.Now(),
	})
	if err != nil || affected != 1 {
		t.Fatalf("cancel booking: affected=%d err=%v", affected, err)
	}
	got, err := database.Queries.OverlappingBookings(ctx, venue.ID, []string{"Court1"}, start, start.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("overlapping bookings: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("cancelled booking still occupies the court")
	}
}

func TestOverlappingBlocksExpandWholeCourtBlocks(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, database, testutil.RoleOwnerID)
	venue := testutil.CreateVenue(t, database, owner.ID)
	court := testutil.CreateCourt(t, database, venue.ID, "tennis", []string{"Court1", "Court2"}, nil)

	start := time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC)
	testutil.CreateBlock(t, database, court, "", start, start.Add(time.Hour), owner.ID)
	testutil.CreateBlock(t, database, court, "Court2", start.Add(2*time.Hour), start.Add(3*time.Hour), owner.ID)

	blocks, err := database.Queries.OverlappingBlocks(ctx, venue.ID, []string{"Court1", "Court2"}, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("overlapping blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected whole-court block expanded to 2 courts, got %d", len(blocks))
	}

	blocks, err = database.Queries.OverlappingBlocks(ctx, venue.ID, []string{"Court1"}, start.Add(2*time.Hour), start.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("overlapping blocks: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("Court2 block must not affect Court1, got %+v", blocks)
	}
}

func TestSoftDeletedVenueIsNotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, database, testutil.RoleOwnerID)
	venue := testutil.CreateVenue(t, database, owner.ID)

	if _, err := database.Queries.SoftDeleteVenue(ctx, venue.ID, time.Now()); err != nil {
		t.Fatalf("delete venue: %v", err)
	}
	if _, err := database.Queries.GetVenue(ctx, venue.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpdateVenueStatusIsNoopForSameStatus(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, database, testutil.RoleOwnerID)
	venue := testutil.CreateVenue(t, database, owner.ID)

	params := store.UpdateVenueStatusParams{ID: venue.ID, Status: models.ApprovalApproved, Now: time.Now()}
	affected, err := database.Queries.UpdateVenueStatus(ctx, params)
	if err != nil || affected != 1 {
		t.Fatalf("first approve: affected=%d err=%v", affected, err)
	}
	affected, err = database.Queries.UpdateVenueStatus(ctx, params)
	if err != nil || affected != 0 {
		t.Fatalf("second approve: affected=%d err=%v", affected, err)
	}
}
