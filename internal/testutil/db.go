package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/codr1/courtbook/internal/db"
	"github.com/codr1/courtbook/internal/db/store"
	"github.com/codr1/courtbook/internal/models"
)

// Seed role ids from the initial migration.
const (
	RolePlayerID int64 = 1
	RoleOwnerID  int64 = 2
	RoleAdminID  int64 = 3
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

var userSeq int

// CreateUser inserts a user with the given role id.
func CreateUser(t *testing.T, database *db.DB, roleID int64) models.User {
	t.Helper()

	userSeq++
	user, err := database.Queries.CreateUser(context.Background(), store.CreateUserParams{
		Name:   fmt.Sprintf("User %d", userSeq),
		Email:  fmt.Sprintf("user%d-%d@example.com", userSeq, time.Now().UnixNano()),
		RoleID: roleID,
		Now:    time.Now(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateVenue inserts an active UTC venue owned by ownerID.
func CreateVenue(t *testing.T, database *db.DB, ownerID int64) models.Venue {
	t.Helper()

	venue, err := database.Queries.CreateVenue(context.Background(), store.CreateVenueParams{
		OwnerID:  ownerID,
		Name:     "Riverside Sports Club",
		Address:  "1 River Rd",
		Timezone: "UTC",
		Sports:   []string{"tennis"},
		Now:      time.Now(),
	})
	if err != nil {
		t.Fatalf("create venue: %v", err)
	}
	return venue
}

// CreateCourt inserts a court with the given physical names and template.
func CreateCourt(t *testing.T, database *db.DB, venueID int64, sportType string, names []string, days []models.DayAvailability) models.Court {
	t.Helper()
	ctx := context.Background()

	days, err := models.NormalizeAvailability(days)
	if err != nil {
		t.Fatalf("normalize availability: %v", err)
	}

	var courtID int64
	err = database.RunInTx(ctx, func(tx *db.DB) error {
		id, err := tx.Queries.CreateCourt(ctx, store.CreateCourtParams{
			VenueID:   venueID,
			SportType: sportType,
			Now:       time.Now(),
		})
		if err != nil {
			return err
		}
		for i, name := range names {
			if err := tx.Queries.AddCourtUnit(ctx, store.AddCourtUnitParams{
				CourtID:  id,
				VenueID:  venueID,
				Name:     name,
				Position: i,
			}); err != nil {
				return err
			}
		}
		if err := tx.Queries.ReplaceCourtSchedule(ctx, id, days, time.Now()); err != nil {
			return err
		}
		courtID = id
		return nil
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}

	court, err := database.Queries.GetCourt(ctx, courtID)
	if err != nil {
		t.Fatalf("load court: %v", err)
	}
	return court
}

// EveryDay returns a template that repeats slots on all seven days.
func EveryDay(slots ...models.TimeSlot) []models.DayAvailability {
	days := make([]models.DayAvailability, 0, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		copied := make([]models.TimeSlot, len(slots))
		copy(copied, slots)
		days = append(days, models.DayAvailability{DayOfWeek: models.DayName(day), TimeSlots: copied})
	}
	return days
}

// HourlySlots returns back-to-back one hour slots from openHour to closeHour.
func HourlySlots(openHour, closeHour int, price models.Money) []models.TimeSlot {
	slots := make([]models.TimeSlot, 0, closeHour-openHour)
	for hour := openHour; hour < closeHour; hour++ {
		slots = append(slots, models.TimeSlot{
			StartTime: models.FormatClock(hour * 60),
			EndTime:   models.FormatClock((hour + 1) * 60),
			Price:     price,
		})
	}
	return slots
}

// CreateBlock inserts a maintenance block.
func CreateBlock(t *testing.T, database *db.DB, court models.Court, courtName string, startAt, endAt time.Time, createdBy int64) models.CourtBlock {
	t.Helper()

	block, err := database.Queries.CreateCourtBlock(context.Background(), store.CreateCourtBlockParams{
		CourtID:   court.ID,
		VenueID:   court.VenueID,
		CourtName: courtName,
		StartAt:   startAt,
		EndAt:     endAt,
		Reason:    "resurfacing",
		CreatedBy: createdBy,
		Now:       time.Now(),
	})
	if err != nil {
		t.Fatalf("create block: %v", err)
	}
	return block
}
