package venues

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/models"
	"github.com/codr1/courtbook/internal/testutil"
	"github.com/codr1/courtbook/internal/venue"
)

type venueHandlerFixture struct {
	mux    *http.ServeMux
	owner  *authz.Actor
	admin  *authz.Actor
	player *authz.Actor
}

func setupVenueHandlers(t *testing.T) *venueHandlerFixture {
	t.Helper()

	database := testutil.NewTestDB(t)
	owner := testutil.CreateUser(t, database, testutil.RoleOwnerID)
	admin := testutil.CreateUser(t, database, testutil.RoleAdminID)
	player := testutil.CreateUser(t, database, testutil.RolePlayerID)

	service = nil
	serviceOnce = sync.Once{}
	InitHandlers(venue.NewService(database))
	t.Cleanup(func() {
		service = nil
		serviceOnce = sync.Once{}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/venues", HandleCreateVenue)
	mux.HandleFunc("GET /api/v1/venues/{id}", HandleGetVenue)
	mux.HandleFunc("PUT /api/v1/venues/{id}/status", HandleSetVenueStatus)
	mux.HandleFunc("DELETE /api/v1/venues/{id}", HandleDeleteVenue)
	mux.HandleFunc("POST /api/v1/venues/{id}/courts", HandleCreateCourt)
	mux.HandleFunc("GET /api/v1/venues/{id}/courts", HandleListCourts)
	mux.HandleFunc("PUT /api/v1/courts/{id}/availability", HandleReplaceAvailability)
	mux.HandleFunc("POST /api/v1/courts/{id}/blocks", HandleCreateBlock)
	mux.HandleFunc("GET /api/v1/courts/{id}/blocks", HandleListBlocks)
	mux.HandleFunc("DELETE /api/v1/blocks/{id}", HandleDeleteBlock)

	return &venueHandlerFixture{
		mux:    mux,
		owner:  &authz.Actor{UserID: owner.ID, Role: authz.RoleOwner},
		admin:  &authz.Actor{UserID: admin.ID, Role: authz.RoleAdmin},
		player: &authz.Actor{UserID: player.ID, Role: authz.RolePlayer},
	}
}

func (f *venueHandlerFixture) do(t *testing.T, actor *authz.Actor, method, target string, body any, out any) int {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &payload)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(authz.ContextWithActor(req.Context(), actor))
	}
	recorder := httptest.NewRecorder()
	f.mux.ServeHTTP(recorder, req)

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	if env.Success != (recorder.Code < 300) {
		t.Fatalf("success flag %v for status %d", env.Success, recorder.Code)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return recorder.Code
}

func TestVenueLifecycle(t *testing.T) {
	f := setupVenueHandlers(t)

	body := map[string]any{"name": "Harbour Courts", "address": "12 Quay St", "timezone": "UTC", "sports": []string{"tennis"}}
	if status := f.do(t, f.player, http.MethodPost, "/api/v1/venues", body, nil); status != http.StatusForbidden {
		t.Fatalf("player create: %d", status)
	}
	var created models.Venue
	if status := f.do(t, f.owner, http.MethodPost, "/api/v1/venues", body, &created); status != http.StatusCreated {
		t.Fatalf("owner create: %d", status)
	}
	target := fmt.Sprintf("/api/v1/venues/%d", created.ID)

	var fetched models.Venue
	if status := f.do(t, nil, http.MethodGet, target, nil, &fetched); status != http.StatusOK || fetched.Name != "Harbour Courts" {
		t.Fatalf("get: %d %+v", status, fetched)
	}

	tests := []struct {
		name   string
		actor  *authz.Actor
		status string
		want   int
	}{
		{name: "owner_forbidden", actor: f.owner, status: "approved", want: http.StatusForbidden},
		{name: "reset_to_pending", actor: f.admin, status: "pending", want: http.StatusBadRequest},
		{name: "approve", actor: f.admin, status: "approved", want: http.StatusOK},
		{name: "approve_again", actor: f.admin, status: "approved", want: http.StatusBadRequest},
		{name: "reject", actor: f.admin, status: "rejected", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := f.do(t, tt.actor, http.MethodPut, target+"/status", map[string]string{"status": tt.status}, nil); status != tt.want {
				t.Fatalf("status %d, want %d", status, tt.want)
			}
		})
	}

	if status := f.do(t, f.owner, http.MethodDelete, target, nil, nil); status != http.StatusOK {
		t.Fatalf("delete: %d", status)
	}
	if status := f.do(t, nil, http.MethodGet, target, nil, nil); status != http.StatusNotFound {
		t.Fatalf("get deleted: %d", status)
	}
}

func TestCourtsAndBlocks(t *testing.T) {
	f := setupVenueHandlers(t)

	var created models.Venue
	if status := f.do(t, f.owner, http.MethodPost, "/api/v1/venues",
		map[string]any{"name": "Harbour Courts", "address": "12 Quay St"}, &created); status != http.StatusCreated {
		t.Fatalf("create venue: %d", status)
	}

	courtBody := map[string]any{
		"sport_type":   "padel",
		"court_names":  []string{"P1", "P2"},
		"availability": testutil.EveryDay(testutil.HourlySlots(9, 11, 1500)...),
	}
	var court models.Court
	if status := f.do(t, f.owner, http.MethodPost, fmt.Sprintf("/api/v1/venues/%d/courts", created.ID), courtBody, &court); status != http.StatusCreated {
		t.Fatalf("create court: %d", status)
	}
	if status := f.do(t, f.owner, http.MethodPost, fmt.Sprintf("/api/v1/venues/%d/courts", created.ID), courtBody, nil); status != http.StatusBadRequest {
		t.Fatalf("duplicate court names: %d", status)
	}

	var courts []models.Court
	if status := f.do(t, nil, http.MethodGet, fmt.Sprintf("/api/v1/venues/%d/courts?sport_type=padel", created.ID), nil, &courts); status != http.StatusOK || len(courts) != 1 {
		t.Fatalf("list courts: %d %d", status, len(courts))
	}

	availability := map[string]any{"availability": []models.DayAvailability{
		{DayOfWeek: "saturday", TimeSlots: testutil.HourlySlots(7, 9, 1000)},
	}}
	var updated models.Court
	if status := f.do(t, f.owner, http.MethodPut, fmt.Sprintf("/api/v1/courts/%d/availability", court.ID), availability, &updated); status != http.StatusOK {
		t.Fatalf("replace availability: %d", status)
	}
	if len(updated.Availability) != 1 || len(updated.Availability[0].TimeSlots) != 2 {
		t.Fatalf("availability: %+v", updated.Availability)
	}

	blocksURL := fmt.Sprintf("/api/v1/courts/%d/blocks", court.ID)
	var block models.CourtBlock
	if status := f.do(t, f.owner, http.MethodPost, blocksURL, map[string]string{
		"court_name": "P2",
		"start_at":   "2030-05-06T09:00",
		"end_at":     "2030-05-06T11:00",
		"reason":     "net repair",
	}, &block); status != http.StatusCreated {
		t.Fatalf("create block: %d", status)
	}
	if !block.StartAt.Equal(time.Date(2030, 5, 6, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("block start: %s", block.StartAt)
	}
	if status := f.do(t, f.owner, http.MethodPost, blocksURL, map[string]string{
		"start_at": "2030-05-06T11:00",
		"end_at":   "2030-05-06T09:00",
	}, nil); status != http.StatusBadRequest {
		t.Fatalf("inverted block: %d", status)
	}

	var blocks []models.CourtBlock
	if status := f.do(t, nil, http.MethodGet, blocksURL, nil, &blocks); status != http.StatusOK || len(blocks) != 1 {
		t.Fatalf("list blocks: %d %d", status, len(blocks))
	}

	if status := f.do(t, f.player, http.MethodDelete, fmt.Sprintf("/api/v1/blocks/%d", block.ID), nil, nil); status != http.StatusForbidden {
		t.Fatalf("player delete block: %d", status)
	}
	if status := f.do(t, f.owner, http.MethodDelete, fmt.Sprintf("/api/v1/blocks/%d", block.ID), nil, nil); status != http.StatusOK {
		t.Fatalf("delete block: %d", status)
	}
}
