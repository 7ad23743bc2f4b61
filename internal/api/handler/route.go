package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/api/models"
	"github.com/kkokki/kkokki/internal/api/response"
	"github.com/kkokki/kkokki/internal/location"
	"github.com/kkokki/kkokki/internal/routing"
	"github.com/kkokki/kkokki/pkg/polyline"
)

// EndpointResolver resolves trip endpoints.
type EndpointResolver interface {
	ResolveEndpoint(ctx context.Context, e location.Endpoint) (location.Location, error)
}

// RouteCalculator computes travel estimates.
type RouteCalculator interface {
	Calculate(ctx context.Context, req routing.Request) (*routing.Estimate, error)
}

// RouteHandler handles one-off route computation.
type RouteHandler struct {
	locations EndpointResolver
	routes    RouteCalculator
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRouteHandler creates a RouteHandler.
func NewRouteHandler(locations EndpointResolver, routes RouteCalculator, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{locations: locations, routes: routes, logger: logger, now: time.Now}
}

// ComputeRoutes handles POST /v1/routes:compute.
func (h *RouteHandler) ComputeRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.RouteComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	start, end := toEndpoint(input.Start), toEndpoint(input.End)
	var fieldErrs []models.FieldError
	if start.IsZero() {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "start", Message: "required", Code: "REQUIRED"})
	}
	if end.IsZero() {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "end", Message: "required", Code: "REQUIRED"})
	}
	mode, err := routing.ParseMode(input.Transport)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "transport", Message: "must be car, walk or transit", Code: "INVALID_VALUE"})
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid route request", fieldErrs)
		return
	}

	ctx := r.Context()
	origin, err := h.locations.ResolveEndpoint(ctx, start)
	if err != nil {
		h.writeLocationError(w, r, "start", err)
		return
	}
	destination, err := h.locations.ResolveEndpoint(ctx, end)
	if err != nil {
		h.writeLocationError(w, r, "end", err)
		return
	}

	est, err := h.routes.Calculate(ctx, routing.Request{
		Origin:      origin,
		Destination: destination,
		Mode:        mode,
		DepartAt:    h.now(),
	})
	if err != nil {
		h.writeRouteError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.RouteComputeResponse{
		Route: models.Route{
			Transport:       string(est.Mode),
			Label:           est.Mode.Label(),
			Minutes:         est.Minutes,
			DistanceKM:      est.DistanceKM,
			DurationSeconds: est.DurationSeconds,
			DistanceMeters:  est.DistanceMeters,
			Origin:          toPlace(origin),
			Destination:     toPlace(destination),
			Polyline:        polyline.EncodeLonLat(est.Geometry),
			Provider:        est.Provider,
			Transit:         toTransitInfo(est.Transit),
		},
		GeneratedAt: models.Timestamp(h.now()),
	})
}

func (h *RouteHandler) writeLocationError(w http.ResponseWriter, r *http.Request, field string, err error) {
	switch {
	case location.IsNotFound(err):
		response.NotFound(w, r, field+" location not found")
	case errors.Is(err, location.ErrInvalidCoordinates):
		response.BadRequest(w, r, "invalid coordinates", []models.FieldError{{Field: field, Message: "coordinates out of range", Code: "OUT_OF_RANGE"}})
	default:
		h.logger.Warn().Err(err).Str("field", field).Msg("location resolution failed")
		response.BadGateway(w, r, "location provider unavailable")
	}
}

func (h *RouteHandler) writeRouteError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, routing.ErrUnsupportedMode) {
		response.BadRequest(w, r, "transport not supported by the route provider", nil)
		return
	}

	h.logger.Warn().Err(err).Msg("route calculation failed")
	detail := "route provider error"
	var rerr *routing.Error
	if errors.As(err, &rerr) && rerr.Code != "" {
		detail += ": " + rerr.Code
	}
	response.BadGateway(w, r, detail)
}
