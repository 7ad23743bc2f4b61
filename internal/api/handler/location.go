package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kkokki/kkokki/internal/api/models"
	"github.com/kkokki/kkokki/internal/api/response"
	"github.com/kkokki/kkokki/internal/location"
)

// LocationLookup searches places and names coordinates.
type LocationLookup interface {
	Search(ctx context.Context, keyword string) []location.Candidate
	ReverseGeocode(ctx context.Context, lat, lon float64) location.Address
}

// LocationHandler handles place search and reverse geocoding.
type LocationHandler struct {
	lookup LocationLookup
}

// NewLocationHandler creates a LocationHandler.
func NewLocationHandler(lookup LocationLookup) *LocationHandler {
	return &LocationHandler{lookup: lookup}
}

// Search handles GET /v1/locations/search?keyword=.
func (h *LocationHandler) Search(w http.ResponseWriter, r *http.Request) {
	candidates := h.lookup.Search(r.Context(), r.URL.Query().Get("keyword"))

	results := make([]models.LocationCandidate, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, models.LocationCandidate{Name: c.Name, Lat: c.Lat, Lon: c.Lon, Address: c.Address})
	}
	response.JSON(w, r, http.StatusOK, models.LocationSearchResponse{Results: results})
}

// Reverse handles GET /v1/locations/reverse?lat=&lon=.
func (h *LocationHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var fieldErrs []models.FieldError
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "lat", Message: "must be a number between -90 and 90", Code: "OUT_OF_RANGE"})
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "lon", Message: "must be a number between -180 and 180", Code: "OUT_OF_RANGE"})
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid coordinates", fieldErrs)
		return
	}

	addr := h.lookup.ReverseGeocode(r.Context(), lat, lon)
	response.JSON(w, r, http.StatusOK, models.ReverseGeocodeResponse{Name: addr.Name, Address: addr.Address})
}
