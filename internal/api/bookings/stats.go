package bookings

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/codr1/courtbook/internal/api/apiutil"
	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/booking"
	"github.com/codr1/courtbook/internal/db/store"
	"github.com/codr1/courtbook/internal/models"
	"github.com/codr1/courtbook/internal/stats"
)

// GET /api/v1/booking/stats/overview
func HandleStatsOverview(w http.ResponseWriter, r *http.Request) {
	d := loadDeps(w, r)
	if d == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.AnyRole)
	if actor == nil {
		return
	}
	filter, err := statsFilter(r, actor)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to load booking statistics")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.OperationTimeout)
	defer cancel()

	overview, err := stats.ComputeOverview(ctx, d.Ledger, filter)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to load booking statistics")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Booking statistics retrieved successfully", overview)
}

// GET /api/v1/booking/stats/revenue
func HandleStatsRevenue(w http.ResponseWriter, r *http.Request) {
	d := loadDeps(w, r)
	if d == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.OwnerOrAdmin)
	if actor == nil {
		return
	}
	filter, err := statsFilter(r, actor)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to load revenue")
		return
	}
	bucket, err := stats.ParseBucket(r.URL.Query().Get("bucket"))
	if err != nil {
		apiutil.WriteError(w, r, apperr.BadRequest("%s", err.Error()), "Failed to load revenue")
		return
	}
	loc := time.UTC
	if name := strings.TrimSpace(r.URL.Query().Get("tz")); name != "" {
		if loc, err = time.LoadLocation(name); err != nil {
			apiutil.WriteError(w, r, apiutil.FieldError{Field: "tz", Reason: "must be an IANA time zone"}, "Failed to load revenue")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.OperationTimeout)
	defer cancel()

	rows, err := stats.ComputeRevenue(ctx, d.Ledger, filter, bucket, loc)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to load revenue")
		return
	}
	if rows == nil {
		rows = []stats.RevenueRow{}
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Revenue retrieved successfully", rows)
}

func statsFilter(r *http.Request, actor *authz.Actor) (store.BookingFilter, error) {
	filter := booking.LedgerScope(actor)
	var err error
	if filter.VenueID, err = apiutil.OptionalQueryInt64(r, "venue_id"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		if filter.Status, err = models.ParseBookingStatus(raw); err != nil {
			return filter, apperr.BadRequest("%s", err.Error())
		}
	}
	if filter.From, err = apiutil.OptionalTimeQuery(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = apiutil.OptionalTimeQuery(r, "to"); err != nil {
		return filter, err
	}
	return filter, nil
}
