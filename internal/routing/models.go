// Package routing normalizes car, walk and transit route calls into a single
// travel estimate.
package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kkokki/kkokki/internal/location"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrUpstreamFormat indicates the provider answered with an unexpected shape.
	ErrUpstreamFormat = errors.New("unexpected routing response format")
	// ErrUnsupportedMode indicates the provider cannot route the requested mode.
	ErrUnsupportedMode = errors.New("unsupported transport mode")
)

// Mode is a transport mode.
type Mode string

const (
	ModeCar     Mode = "car"
	ModeWalk    Mode = "walk"
	ModeTransit Mode = "transit"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeCar, ModeWalk, ModeTransit}

// ParseMode parses a mode name. An empty string means car.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCar:
		return ModeCar, nil
	case ModeWalk:
		return ModeWalk, nil
	case ModeTransit:
		return ModeTransit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// Label returns the display label used in the session log.
func (m Mode) Label() string {
	switch m {
	case ModeWalk:
		return "Walking"
	case ModeTransit:
		return "Transit"
	default:
		return "Driving"
	}
}

// Request is a route calculation between two resolved locations.
type Request struct {
	Origin      location.Location
	Destination location.Location
	Mode        Mode
	DepartAt    time.Time // transit search time; zero means now
}

// Estimate is the normalized result of one route calculation.
type Estimate struct {
	Mode            Mode
	Minutes         int     // travel time rounded to the nearest minute
	DistanceKM      float64 // rounded to one decimal
	DurationSeconds int
	DistanceMeters  int

	// Geometry holds [lon, lat] pairs for car and walk routes.
	Geometry [][2]float64

	// Transit is set for transit routes only.
	Transit *TransitDetails

	Provider  string
	FetchedAt time.Time
}

// TransitDetails carries the transit-specific part of an estimate.
type TransitDetails struct {
	Fare          int
	TransferCount int
	WalkMinutes   int
	PathType      int
	PathLabel     string
	Alternatives  []Alternative
}

// Alternative is one ranked transit itinerary.
type Alternative struct {
	Index       int    `json:"index"`
	Minutes     int    `json:"minutes"`
	Transfers   int    `json:"transfers"`
	Fare        int    `json:"fare"`
	Type        string `json:"type"`
	WalkMinutes int    `json:"walk_minutes"`
}

// Provider defines the interface for routing providers.
type Provider interface {
	// Route computes a single estimate for the request's mode.
	Route(ctx context.Context, req Request) (*Estimate, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
	// SupportedModes returns the modes this provider can route.
	SupportedModes() []Mode
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Mode     Mode   // Mode being routed
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Mode != "" {
		msg = string(e.Mode) + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
