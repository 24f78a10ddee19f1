package itinerary

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/api/gateway"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Handler exposes the itinerary service over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Actions serves the single-shot endpoint: one request, one JSON response,
// dispatched on the action field.
func (h *Handler) Actions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.ActionRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Action {
	case types.ActionGenerateAll:
		trip, duplicates, err := h.service.GenerateAll(ctx, &req.Trip)
		if err != nil {
			h.writeActionError(w, r, err)
			return
		}
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
			"days":       trip.Days,
			"duplicates": duplicates,
		})

	case types.ActionRegenerateDay:
		day, err := h.service.GenerateDay(ctx, &req.Trip, req.DayNumber, "", exclusionList(&req.Trip, req.AvoidPlaces))
		if err != nil {
			h.writeActionError(w, r, err)
			return
		}
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"day": day})

	case types.ActionOptimizeDay:
		stay, err := req.Trip.StayForDay(req.DayNumber)
		if err != nil {
			h.writeActionError(w, r, &ValidationError{Phase: "optimize", Reason: err.Error()})
			return
		}
		day := types.DayItinerary{
			DayNumber: req.DayNumber,
			Date:      req.Trip.DayDate(req.DayNumber).Format(types.DateLayout),
			City:      stay.City,
			Places:    req.Places,
		}
		places, err := h.service.OptimizeDay(ctx, day)
		if err != nil {
			h.writeActionError(w, r, err)
			return
		}
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"places": places})

	case types.ActionRegeneratePlace:
		stay, err := req.Trip.StayForDay(req.DayNumber)
		if err != nil {
			h.writeActionError(w, r, &ValidationError{Phase: "regenerate-place", Reason: err.Error()})
			return
		}
		trip := &types.Trip{Days: []types.DayItinerary{{
			DayNumber: req.DayNumber,
			Date:      req.Trip.DayDate(req.DayNumber).Format(types.DateLayout),
			City:      stay.City,
			Places:    req.Places,
		}}}
		place, err := h.service.RegeneratePlace(ctx, trip, req.DayNumber, req.PlaceIndex, req.AvoidPlaces)
		if err != nil {
			h.writeActionError(w, r, err)
			return
		}
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"place": place})

	default:
		api.ErrorResponse(w, r, http.StatusBadRequest, "unknown action: "+req.Action)
	}
}

// writeActionError maps the error taxonomy onto status codes.
func (h *Handler) writeActionError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "Action failed", slog.Any("error", err))

	var validationErr *ValidationError
	var timeoutErr *gateway.ProviderTimeoutError
	switch {
	case errors.As(err, &validationErr):
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &timeoutErr):
		api.ErrorResponse(w, r, http.StatusGatewayTimeout, err.Error())
	default:
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
	}
}
