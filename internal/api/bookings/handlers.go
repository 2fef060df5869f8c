// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/api/apiutil"
	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/booking"
	"github.com/codr1/courtbook/internal/models"
	"github.com/codr1/courtbook/internal/ratelimit"
	"github.com/codr1/courtbook/internal/stats"
)

const (
	defaultOperationTimeout = 5 * time.Second
	bookingIDParam          = "id"
	idempotencyKeyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLength = 128
)

// Deps are the collaborators the booking handlers need.
type Deps struct {
	Service *booking.Service
	Ledger  stats.Ledger
	// Limiter throttles creates; nil disables rate limiting.
	Limiter          *ratelimit.Limiter
	TrustProxyHeader bool
	OperationTimeout time.Duration
}

var (
	deps     *Deps
	depsOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(d Deps) {
	if d.Service == nil {
		return
	}
	depsOnce.Do(func() {
		if d.OperationTimeout <= 0 {
			d.OperationTimeout = defaultOperationTimeout
		}
		deps = &d
	})
}

func loadDeps(w http.ResponseWriter, r *http.Request) *Deps {
	if deps == nil {
		log.Ctx(r.Context()).Error().Msg("Booking handlers not initialized")
		apiutil.WriteFailure(w, r, http.StatusInternalServerError, "Internal Server Error")
		return nil
	}
	return deps
}

type createBookingRequest struct {
	VenueID    int64        `json:"venue_id"`
	SportType  string       `json:"sport_type"`
	StartDate  string       `json:"start_date"`
	Duration   *int         `json:"duration"`
	EndDate    *string      `json:"end_date"`
	CourtNames []string     `json:"court_names"`
	TotalPrice models.Money `json:"total_price"`
	Notes      string       `json:"notes"`
}

type updateBookingRequest struct {
	StartDate     *string       `json:"start_date"`
	Duration      *int          `json:"duration"`
	EndDate       *string       `json:"end_date"`
	CourtNames    []string      `json:"court_names"`
	TotalPrice    *models.Money `json:"total_price"`
	Notes         *string       `json:"notes"`
	PaymentStatus *string       `json:"payment_status"`
}

// GET /api/v1/booking/time-slots
func HandleTimeSlots(w http.ResponseWriter, r *http.Request) {
	d := loadDeps(w, r)
	if d == nil {
		return
	}

	query := r.URL.Query()
	venueID, err := apiutil.ParsePositiveInt64Field(query.Get("venue_id"), "venue_id")
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to load time slots")
		return
	}
	date := strings.TrimSpace(query.Get("date"))
	if date == "" {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "date", Reason: "is required"}, "Failed to load time slots")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.OperationTimeout)
	defer cancel()

	slots, err := d.Service.AvailableTimeSlots(ctx, venueID, query.Get("sport_type"), date)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to load time slots")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Available time slots retrieved successfully", slots)
}

// POST /api/v1/booking
func HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	d := loadDeps(w, r)
	if d == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.AnyRole)
	if actor == nil {
		return
	}
	logger := log.Ctx(r.Context())

	if d.Limiter != nil {
		ip := ratelimit.ClientIP(r, d.TrustProxyHeader)
		if result := d.Limiter.AllowCreate(actor.UserID, ip); !result.Allowed {
			ratelimit.LogExceeded(logger, actor.UserID, ip, result)
			apiutil.WriteError(w, r, apperr.TooManyRequests(result.RetryAfter, "too many booking attempts, please retry later"), "Failed to create booking")
			return
		}
	}

	var body createBookingRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, apperr.BadRequest("%s", err.Error()), "Failed to create booking")
		return
	}
	if body.VenueID <= 0 {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "venue_id", Reason: "must be a positive integer"}, "Failed to create booking")
		return
	}
	token := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if len(token) > maxIdempotencyKeyLength {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: idempotencyKeyHeader, Reason: "is too long"}, "Failed to create booking")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.OperationTimeout)
	defer cancel()

	loc, err := d.Service.VenueLocation(ctx, body.VenueID)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create booking")
		return
	}
	req := booking.CreateRequest{
		VenueID:     body.VenueID,
		SportType:   body.SportType,
		CourtNames:  body.CourtNames,
		TotalPrice:  body.TotalPrice,
		Notes:       body.Notes,
		ClientToken: token,
	}
	req.StartAt, err = apiutil.ParseTimeField(body.StartDate, "start_date", loc)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create booking")
		return
	}
	if body.Duration != nil {
		if *body.Duration <= 0 {
			apiutil.WriteError(w, r, apiutil.FieldError{Field: "duration", Reason: "must be a positive number of minutes"}, "Failed to create booking")
			return
		}
		req.DurationMinutes = *body.Duration
	}
	if body.EndDate != nil {
		end, err := apiutil.ParseTimeField(*body.EndDate, "end_date", loc)
		if err != nil {
			apiutil.WriteError(w, r, err, "Failed to create booking")
			return
		}
		req.EndAt = &end
	}

	created, isNew, err := d.Service.Create(ctx, actor, req)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create booking")
		return
	}
	if !isNew {
		apiutil.WriteSuccess(w, r, http.StatusOK, "Booking already exists", created)
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusCreated, "Booking created successfully", created)
}

// GET /api/v1/booking
func HandleListBookings(w http.ResponseWriter, r *http.Request) {
	d := loadDeps(w, r)
	if d == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.AnyRole)
	if actor == nil {
		return
	}

	filter, err := listFilterFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to list bookings")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.OperationTimeout)
	defer cancel()

	bookings, err := d.Service.List(ctx, actor, filter)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to list bookings")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Bookings retrieved successfully", bookings)
}

func listFilterFromQuery(r *http.Request) (booking.ListFilter, error) {
	var (
		filter booking.ListFilter
		err    error
	)
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
	if filter.Limit, err = apiutil.OptionalQueryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = apiutil.OptionalQueryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

// GET /api/v1/booking/{id}
func HandleGetBooking(w http.ResponseWriter, r *http.Request) {
	d := loadDeps(w, r)
	if d == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.AnyRole)
	if actor == nil {
		return
	}
	bookingID, err := apiutil.PathID(r, bookingIDParam)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to load booking")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.OperationTimeout)
	defer cancel()

	found, err := d.Service.Get(ctx, actor, bookingID)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to load booking")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Booking retrieved successfully", found)
}

// PUT /api/v1/booking/{id}
func HandleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	d := loadDeps(w, r)
	if d == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.AnyRole)
	if actor == nil {
		return
	}
	bookingID, err := apiutil.PathID(r, bookingIDParam)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to update booking")
		return
	}

	var body updateBookingRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, apperr.BadRequest("%s", err.Error()), "Failed to update booking")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.OperationTimeout)
	defer cancel()

	current, err := d.Service.Get(ctx, actor, bookingID)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to update booking")
		return
	}
	loc, err := d.Service.VenueLocation(ctx, current.VenueID)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to update booking")
		return
	}

	req := booking.UpdateRequest{
		DurationMinutes: body.Duration,
		CourtNames:      body.CourtNames,
		TotalPrice:      body.TotalPrice,
		Notes:           body.Notes,
	}
	if body.StartDate != nil {
		start, err := apiutil.ParseTimeField(*body.StartDate, "start_date", loc)
		if err != nil {
			apiutil.WriteError(w, r, err, "Failed to update booking")
			return
		}
		req.StartAt = &start
	}
	if body.EndDate != nil {
		end, err := apiutil.ParseTimeField(*body.EndDate, "end_date", loc)
		if err != nil {
			apiutil.WriteError(w, r, err, "Failed to update booking")
			return
		}
		req.EndAt = &end
	}
	if body.PaymentStatus != nil {
		status, err := models.ParsePaymentStatus(*body.PaymentStatus)
		if err != nil {
			apiutil.WriteError(w, r, apperr.BadRequest("%s", err.Error()), "Failed to update booking")
			return
		}
		req.PaymentStatus = &status
	}

	updated, err := d.Service.Update(ctx, actor, bookingID, req)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to update booking")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Booking updated successfully", updated)
}

// DELETE /api/v1/booking/{id}
func HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	handleTransition(w, r, "Booking cancelled successfully", "Failed to cancel booking", (*booking.Service).Cancel)
}

// POST /api/v1/booking/{id}/confirm
func HandleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	handleTransition(w, r, "Booking confirmed successfully", "Failed to confirm booking", (*booking.Service).Confirm)
}

// POST /api/v1/booking/{id}/complete
func HandleCompleteBooking(w http.ResponseWriter, r *http.Request) {
	handleTransition(w, r, "Booking completed successfully", "Failed to complete booking", (*booking.Service).Complete)
}

type transitionFunc func(*booking.Service, context.Context, *authz.Actor, int64) (*models.Booking, error)

func handleTransition(w http.ResponseWriter, r *http.Request, okMessage, failMessage string, transition transitionFunc) {
	d := loadDeps(w, r)
	if d == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.AnyRole)
	if actor == nil {
		return
	}
	bookingID, err := apiutil.PathID(r, bookingIDParam)
	if err != nil {
		apiutil.WriteError(w, r, err, failMessage)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.OperationTimeout)
	defer cancel()

	updated, err := transition(d.Service, ctx, actor, bookingID)
	if err != nil {
		apiutil.WriteError(w, r, err, failMessage)
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, okMessage, updated)
}
