// Package monitor runs the commute monitoring session: it resolves the trip
// once, polls the route provider on a fixed interval, derives wake-up
// deadlines and fires the session's single late alert.
package monitor

import (
	"errors"
	"fmt"
	"time"

	"github.com/kkokki/kkokki/internal/deadline"
	"github.com/kkokki/kkokki/internal/location"
	"github.com/kkokki/kkokki/internal/routing"
)

// State is the session state exposed to observers.
type State string

const (
	StateIdle          State = "IDLE"
	StateResolving     State = "RESOLVING"
	StatePolling       State = "POLLING"
	StateLateRisk      State = "LATE_RISK"
	StateLocationError State = "LOCATION_ERROR"
	StateFatalError    State = "FATAL_ERROR"
	StateStopped       State = "STOPPED"
)

// ErrInvalidRequest is returned by Start for malformed requests.
var ErrInvalidRequest = errors.New("invalid monitoring request")

// Settings are captured when a session starts and never change during it.
type Settings struct {
	PrepMinutes         int
	BufferMinutes       int
	EarlyWarningEnabled bool
	EarlyWarningMinutes int
	UrgentAlertEnabled  bool
	WeatherAdjustment   bool
}

// DefaultSettings returns the settings used when a caller supplies none.
func DefaultSettings() Settings {
	return Settings{
		PrepMinutes:         30,
		BufferMinutes:       10,
		EarlyWarningMinutes: 5,
		UrgentAlertEnabled:  true,
	}
}

// Validate rejects negative margins.
func (s Settings) Validate() error {
	switch {
	case s.PrepMinutes < 0:
		return fmt.Errorf("%w: prep minutes must not be negative", ErrInvalidRequest)
	case s.BufferMinutes < 0:
		return fmt.Errorf("%w: buffer minutes must not be negative", ErrInvalidRequest)
	case s.EarlyWarningMinutes < 0:
		return fmt.Errorf("%w: early warning minutes must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Request starts a session.
type Request struct {
	Start    location.Endpoint
	End      location.Endpoint
	Arrival  deadline.TimeOfDay
	Mode     routing.Mode
	Settings Settings
}

// Validate checks the request before a session is created.
func (r Request) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidRequest)
	}
	if _, err := routing.ParseMode(string(r.Mode)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.Arrival.Hour < 0 || r.Arrival.Hour > 23 || r.Arrival.Minute < 0 || r.Arrival.Minute > 59 {
		return fmt.Errorf("%w: arrival %s out of range", ErrInvalidRequest, r.Arrival)
	}
	return r.Settings.Validate()
}

// LatestResult is the most recent iteration's outcome.
type LatestResult struct {
	Timestamp             time.Time
	Mode                  routing.Mode
	TravelMinutes         int // route minutes plus weather minutes
	RouteMinutes          int
	WeatherMinutes        int
	WeatherSummary        string
	DistanceKM            float64
	WakeUpTime            time.Time
	LeaveTime             time.Time
	ArrivalTime           time.Time
	PrepMinutes           int
	BufferMinutes         int
	IsLate                bool
	DelayMinutes          int
	SecondsUntilDeparture int
	SecondsUntilWake      int
	EarlyWarningActive    bool
	Transit               *routing.TransitDetails
}

// Snapshot is a read-only view of the supervisor.
type Snapshot struct {
	Running   bool
	State     State
	SessionID string
	Start     string
	End       string
	Mode      routing.Mode
	Logs      []string
	Latest    *LatestResult
}

// FatalError wraps a fault recovered from the polling loop.
type FatalError struct {
	Value any
	Stack []byte
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("monitoring loop fault: %v", e.Value)
}
