// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/codr1/courtbook/internal/api"
	"github.com/codr1/courtbook/internal/api/apiutil"
	"github.com/codr1/courtbook/internal/api/bookings"
	"github.com/codr1/courtbook/internal/api/venues"
	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/booking"
	"github.com/codr1/courtbook/internal/config"
	"github.com/codr1/courtbook/internal/db"
	"github.com/codr1/courtbook/internal/ratelimit"
	"github.com/codr1/courtbook/internal/venue"
)

type serverDeps struct {
	database *db.DB
	roles    *authz.RoleDirectory
	bookings *booking.Service
	venues   *venue.Service
	limiter  *ratelimit.Limiter
}

func newServer(cfg *config.Config, deps serverDeps) *http.Server {
	router := http.NewServeMux()

	bookings.InitHandlers(bookings.Deps{
		Service:          deps.bookings,
		Ledger:           deps.database.Queries,
		Limiter:          deps.limiter,
		TrustProxyHeader: cfg.RateLimit.TrustProxyHeader,
		OperationTimeout: cfg.Booking.OperationTimeout,
	})
	venues.InitHandlers(deps.venues)

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithIdentity(deps.database.Queries, deps.roles),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	// Register routes
	registerRoutes(router, cfg)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		apiutil.WriteSuccess(w, r, http.StatusOK, "OK", map[string]string{
			"name":        cfg.App.Name,
			"environment": cfg.App.Environment,
		})
	})

	// Booking routes
	mux.HandleFunc("GET /api/v1/booking/time-slots", bookings.HandleTimeSlots)
	mux.HandleFunc("POST /api/v1/booking", bookings.HandleCreateBooking)
	mux.HandleFunc("GET /api/v1/booking", bookings.HandleListBookings)
	mux.HandleFunc("GET /api/v1/booking/{id}", bookings.HandleGetBooking)
	mux.HandleFunc("PUT /api/v1/booking/{id}", bookings.HandleUpdateBooking)
	mux.HandleFunc("DELETE /api/v1/booking/{id}", bookings.HandleCancelBooking)
	mux.HandleFunc("POST /api/v1/booking/{id}/confirm", bookings.HandleConfirmBooking)
	mux.HandleFunc("POST /api/v1/booking/{id}/complete", bookings.HandleCompleteBooking)
	mux.HandleFunc("GET /api/v1/booking/stats/overview", bookings.HandleStatsOverview)
	mux.HandleFunc("GET /api/v1/booking/stats/revenue", bookings.HandleStatsRevenue)

	// Venue routes
	mux.HandleFunc("POST /api/v1/venues", venues.HandleCreateVenue)
	mux.HandleFunc("GET /api/v1/venues/{id}", venues.HandleGetVenue)
	mux.HandleFunc("PUT /api/v1/venues/{id}/status", venues.HandleSetVenueStatus)
	mux.HandleFunc("DELETE /api/v1/venues/{id}", venues.HandleDeleteVenue)
	mux.HandleFunc("POST /api/v1/venues/{id}/courts", venues.HandleCreateCourt)
	mux.HandleFunc("GET /api/v1/venues/{id}/courts", venues.HandleListCourts)

	// Court routes
	mux.HandleFunc("PUT /api/v1/courts/{id}/availability", venues.HandleReplaceAvailability)
	mux.HandleFunc("POST /api/v1/courts/{id}/blocks", venues.HandleCreateBlock)
	mux.HandleFunc("GET /api/v1/courts/{id}/blocks", venues.HandleListBlocks)
	mux.HandleFunc("DELETE /api/v1/blocks/{id}", venues.HandleDeleteBlock)
}
