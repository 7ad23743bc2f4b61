// Package location resolves place names to coordinates and coordinates to
// addresses for the commute monitor.
package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for location operations.
var (
	// ErrNotFound indicates the keyword matched no place.
	ErrNotFound = errors.New("location not found")
	// ErrProviderUnavailable indicates the lookup provider failed or is unreachable.
	ErrProviderUnavailable = errors.New("location provider unavailable")
	// ErrInvalidCoordinates indicates coordinates outside the WGS84 range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrEmptyKeyword indicates a lookup was attempted with a blank keyword.
	ErrEmptyKeyword = errors.New("empty keyword")
)

// FallbackName is used when reverse geocoding yields no building name.
const FallbackName = "Selected Location"

// Location is a named WGS84 point. It is never mutated once resolved.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 || l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("%w: lat=%f lon=%f", ErrInvalidCoordinates, l.Lat, l.Lon)
	}
	return nil
}

// Candidate is one keyword search result.
type Candidate struct {
	Location
	Address string `json:"address"`
}

// Address is the result of reverse geocoding.
type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// FallbackAddress is returned when reverse geocoding cannot produce a result.
func FallbackAddress(lat, lon float64) Address {
	return Address{Name: FallbackName, Address: CoordinateString(lat, lon)}
}

// CoordinateString formats a point as "lat, lon" with six decimals.
func CoordinateString(lat, lon float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lon)
}

// Endpoint is one end of a trip: either a keyword still to be resolved or
// an already-resolved location.
type Endpoint struct {
	Keyword  string
	Resolved *Location
}

// KeywordEndpoint returns an endpoint that needs a lookup.
func KeywordEndpoint(keyword string) Endpoint {
	return Endpoint{Keyword: strings.TrimSpace(keyword)}
}

// ResolvedEndpoint returns an endpoint that bypasses lookup.
func ResolvedEndpoint(loc Location) Endpoint {
	return Endpoint{Resolved: &loc}
}

// IsResolved reports whether the endpoint already carries coordinates.
func (e Endpoint) IsResolved() bool {
	return e.Resolved != nil
}

// IsZero reports whether the endpoint carries neither keyword nor coordinates.
func (e Endpoint) IsZero() bool {
	return e.Resolved == nil && e.Keyword == ""
}

// String returns a short label for logs.
func (e Endpoint) String() string {
	if e.Resolved != nil {
		if e.Resolved.Name != "" {
			return e.Resolved.Name
		}
		return CoordinateString(e.Resolved.Lat, e.Resolved.Lon)
	}
	return e.Keyword
}

// Resolver turns a keyword into a single location.
type Resolver interface {
	Resolve(ctx context.Context, keyword string) (Location, error)
}

// Provider is an upstream location service.
type Provider interface {
	Resolver
	// Search returns up to ten candidates. Upstream failures yield an empty list.
	Search(ctx context.Context, keyword string) ([]Candidate, error)
	// ReverseGeocode never fails; it falls back to FallbackAddress.
	ReverseGeocode(ctx context.Context, lat, lon float64) Address
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Error provides detailed error information from a location provider.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
