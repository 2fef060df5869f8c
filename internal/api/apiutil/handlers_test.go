package apiutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/authz"
)

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestWriteErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"bad_request", apperr.BadRequest("duration must be positive"), http.StatusBadRequest, "duration must be positive"},
		{"field", FieldError{Field: "venue_id", Reason: "is required"}, http.StatusBadRequest, "venue_id is required"},
		{"not_found", fmt.Errorf("load: %w", apperr.NotFound("venue not found")), http.StatusNotFound, "venue not found"},
		{"conflict", apperr.Conflict(nil, "taken"), http.StatusConflict, "taken"},
		{"unauthenticated", authz.ErrUnauthenticated, http.StatusUnauthorized, "authentication required"},
		{"forbidden", apperr.Forbidden("not yours"), http.StatusForbidden, "not yours"},
		{"internal", errors.New("database is locked"), http.StatusInternalServerError, "Failed to create booking"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/booking", nil)
			recorder := httptest.NewRecorder()

			WriteError(recorder, req, tt.err, "Failed to create booking")

			if recorder.Code != tt.status {
				t.Fatalf("status: %d", recorder.Code)
			}
			body := decodeEnvelope(t, recorder)
			if body["success"] != false {
				t.Fatalf("success: %v", body["success"])
			}
			if body["message"] != tt.message {
				t.Fatalf("message: %v", body["message"])
			}
		})
	}
}

func TestWriteErrorConflictIncludesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking", nil)
	recorder := httptest.NewRecorder()

	WriteError(recorder, req, apperr.Conflict([]string{"Court1"}, "taken"), "Failed")

	body := decodeEnvelope(t, recorder)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data: %v", body)
	}
	conflicts, ok := data["conflicts"].([]any)
	if !ok || len(conflicts) != 1 || conflicts[0] != "Court1" {
		t.Fatalf("conflicts: %v", data["conflicts"])
	}
}

func TestWriteErrorTooManyRequestsSetsRetryAfter(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking", nil)
	recorder := httptest.NewRecorder()

	WriteError(recorder, req, apperr.TooManyRequests(1500*time.Millisecond, "slow down"), "Failed")

	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("status: %d", recorder.Code)
	}
	if got := recorder.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After: %q", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		VenueID int64 `json:"venue_id"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"venue_id": 4}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.VenueID != 4 {
		t.Fatalf("decode: %v (%d)", err, dst.VenueID)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"venue": 4}`))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatalf("expected unknown field error")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"venue_id": 4}{}`))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatalf("expected trailing data error")
	}
}

func TestParseTimeField(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	got, err := ParseTimeField("2030-05-06T10:00", "start_date", loc)
	if err != nil {
		t.Fatalf("parse local: %v", err)
	}
	if want := time.Date(2030, 5, 6, 8, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("local time: %v, want %v", got, want)
	}

	got, err = ParseTimeField("2030-05-06T10:00:00Z", "start_date", loc)
	if err != nil {
		t.Fatalf("parse RFC3339: %v", err)
	}
	if got.Hour() != 10 {
		t.Fatalf("RFC3339 hour: %d", got.Hour())
	}

	if _, err := ParseTimeField("tomorrow", "start_date", loc); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ParseTimeField("", "start_date", loc); err == nil {
		t.Fatalf("expected required error")
	}
}

func TestRequireActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/booking/stats/overview", nil)
	recorder := httptest.NewRecorder()
	if actor := RequireActor(recorder, req, authz.AnyRole); actor != nil || recorder.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: actor=%v status=%d", actor, recorder.Code)
	}

	player := &authz.Actor{UserID: 3, Role: authz.RolePlayer}
	req = req.WithContext(authz.ContextWithActor(req.Context(), player))
	recorder = httptest.NewRecorder()
	if actor := RequireActor(recorder, req, authz.AdminOnly); actor != nil || recorder.Code != http.StatusForbidden {
		t.Fatalf("player on admin route: actor=%v status=%d", actor, recorder.Code)
	}

	recorder = httptest.NewRecorder()
	if actor := RequireActor(recorder, req, authz.AnyRole); actor != player {
		t.Fatalf("expected player, got %v", actor)
	}
}
