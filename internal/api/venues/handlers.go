// internal/api/venues/handlers.go
package venues

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/api/apiutil"
	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/models"
	"github.com/codr1/courtbook/internal/venue"
)

const queryTimeout = 5 * time.Second

var (
	service     *venue.Service
	serviceOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(svc *venue.Service) {
	if svc == nil {
		return
	}
	serviceOnce.Do(func() {
		service = svc
	})
}

func loadService(w http.ResponseWriter, r *http.Request) *venue.Service {
	if service == nil {
		log.Ctx(r.Context()).Error().Msg("Venue handlers not initialized")
		apiutil.WriteFailure(w, r, http.StatusInternalServerError, "Internal Server Error")
		return nil
	}
	return service
}

type createVenueRequest struct {
	OwnerID      int64    `json:"owner_id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	ContactPhone string   `json:"contact_phone"`
	Timezone     string   `json:"timezone"`
	Sports       []string `json:"sports"`
	Amenities    []string `json:"amenities"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type createCourtRequest struct {
	SportType    string                   `json:"sport_type"`
	CourtNames   []string                 `json:"court_names"`
	Availability []models.DayAvailability `json:"availability"`
}

type availabilityRequest struct {
	Availability []models.DayAvailability `json:"availability"`
}

type createBlockRequest struct {
	CourtName string `json:"court_name"`
	StartAt   string `json:"start_at"`
	EndAt     string `json:"end_at"`
	Reason    string `json:"reason"`
}

// POST /api/v1/venues
func HandleCreateVenue(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.OwnerOrAdmin)
	if actor == nil {
		return
	}
	var body createVenueRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, apperr.BadRequest("%s", err.Error()), "Failed to create venue")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	created, err := svc.CreateVenue(ctx, actor, venue.CreateVenueRequest{
		OwnerID:      body.OwnerID,
		Name:         body.Name,
		Address:      body.Address,
		ContactPhone: body.ContactPhone,
		Timezone:     body.Timezone,
		Sports:       body.Sports,
		Amenities:    body.Amenities,
	})
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create venue")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusCreated, "Venue created successfully", created)
}

// GET /api/v1/venues/{id}
func HandleGetVenue(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	venueID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to load venue")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	found, err := svc.GetVenue(ctx, venueID)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to load venue")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Venue retrieved successfully", found)
}

// PUT /api/v1/venues/{id}/status
func HandleSetVenueStatus(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.AdminOnly)
	if actor == nil {
		return
	}
	venueID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to update venue status")
		return
	}
	var body statusRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, apperr.BadRequest("%s", err.Error()), "Failed to update venue status")
		return
	}
	status, err := models.ParseApprovalStatus(body.Status)
	if err != nil {
		apiutil.WriteError(w, r, apperr.BadRequest("%s", err.Error()), "Failed to update venue status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	updated, err := svc.SetStatus(ctx, actor, venueID, status)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to update venue status")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Venue status updated successfully", updated)
}

// DELETE /api/v1/venues/{id}
func HandleDeleteVenue(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.OwnerOrAdmin)
	if actor == nil {
		return
	}
	venueID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to delete venue")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	if err := svc.DeleteVenue(ctx, actor, venueID); err != nil {
		apiutil.WriteError(w, r, err, "Failed to delete venue")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Venue deleted successfully", nil)
}

// POST /api/v1/venues/{id}/courts
func HandleCreateCourt(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.OwnerOrAdmin)
	if actor == nil {
		return
	}
	venueID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create court")
		return
	}
	var body createCourtRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, apperr.BadRequest("%s", err.Error()), "Failed to create court")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	court, err := svc.CreateCourt(ctx, actor, venueID, venue.CreateCourtRequest{
		SportType:    body.SportType,
		CourtNames:   body.CourtNames,
		Availability: body.Availability,
	})
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create court")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusCreated, "Court created successfully", court)
}

// GET /api/v1/venues/{id}/courts
func HandleListCourts(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	venueID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to list courts")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	courts, err := svc.ListCourts(ctx, venueID, r.URL.Query().Get("sport_type"))
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to list courts")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Courts retrieved successfully", courts)
}

// PUT /api/v1/courts/{id}/availability
func HandleReplaceAvailability(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.OwnerOrAdmin)
	if actor == nil {
		return
	}
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to update availability")
		return
	}
	var body availabilityRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, apperr.BadRequest("%s", err.Error()), "Failed to update availability")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	court, err := svc.ReplaceAvailability(ctx, actor, courtID, body.Availability)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to update availability")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Availability updated successfully", court)
}

// POST /api/v1/courts/{id}/blocks
func HandleCreateBlock(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.OwnerOrAdmin)
	if actor == nil {
		return
	}
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create block")
		return
	}
	var body createBlockRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, r, apperr.BadRequest("%s", err.Error()), "Failed to create block")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	loc, err := svc.CourtLocation(ctx, courtID)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create block")
		return
	}
	startAt, err := apiutil.ParseTimeField(body.StartAt, "start_at", loc)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create block")
		return
	}
	endAt, err := apiutil.ParseTimeField(body.EndAt, "end_at", loc)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create block")
		return
	}

	block, err := svc.CreateBlock(ctx, actor, courtID, venue.CreateBlockRequest{
		CourtName: body.CourtName,
		StartAt:   startAt,
		EndAt:     endAt,
		Reason:    body.Reason,
	})
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to create block")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusCreated, "Block created successfully", block)
}

// GET /api/v1/courts/{id}/blocks
func HandleListBlocks(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to list blocks")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	blocks, err := svc.ListBlocks(ctx, courtID)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to list blocks")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Blocks retrieved successfully", blocks)
}

// DELETE /api/v1/blocks/{id}
func HandleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor := apiutil.RequireActor(w, r, authz.OwnerOrAdmin)
	if actor == nil {
		return
	}
	blockID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to delete block")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	if err := svc.DeleteBlock(ctx, actor, blockID); err != nil {
		apiutil.WriteError(w, r, err, "Failed to delete block")
		return
	}
	apiutil.WriteSuccess(w, r, http.StatusOK, "Block deleted successfully", nil)
}
