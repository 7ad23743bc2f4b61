// Package deadline derives wake-up and departure times from an arrival
// deadline and a travel estimate. It performs no I/O.
package deadline

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidTimeOfDay is returned when a time of day cannot be parsed.
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String returns the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at this time of day on now's calendar date, in
// now's location.
func (t TimeOfDay) On(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, now.Location())
}

// Input holds everything one calculation needs.
type Input struct {
	Arrival             TimeOfDay
	Now                 time.Time
	TravelMinutes       int
	PrepMinutes         int
	BufferMinutes       int
	EarlyWarningEnabled bool
	EarlyWarningMinutes int
}

// Result is the outcome of a calculation.
type Result struct {
	Target    time.Time
	Departure time.Time
	Wake      time.Time

	IsLate       bool
	DelayMinutes int

	// Display values, clamped at zero.
	SecondsUntilWake      int
	SecondsUntilDeparture int

	// RawSecondsUntilWake is signed; lateness is decided on it.
	RawSecondsUntilWake int

	EarlyWarningActive bool
}

// Calculate computes wake and departure times for in. If the arrival time
// has already passed today the target moves to tomorrow, once.
func Calculate(in Input) Result {
	target := in.Arrival.On(in.Now)
	if target.Before(in.Now) {
		target = target.AddDate(0, 0, 1)
	}

	departure := target.Add(-minutes(in.TravelMinutes))
	wake := departure.Add(-minutes(in.PrepMinutes + in.BufferMinutes))

	untilWake := wake.Sub(in.Now).Seconds()
	untilDeparture := departure.Sub(in.Now).Seconds()

	res := Result{
		Target:                target,
		Departure:             departure,
		Wake:                  wake,
		IsLate:                untilWake <= 0,
		SecondsUntilWake:      clamp(untilWake),
		SecondsUntilDeparture: clamp(untilDeparture),
		RawSecondsUntilWake:   int(untilWake),
	}
	if res.IsLate {
		res.DelayMinutes = int(math.Floor(math.Abs(untilWake) / 60))
	}
	if in.EarlyWarningEnabled && untilWake > 0 && untilWake <= float64(in.EarlyWarningMinutes*60) {
		res.EarlyWarningActive = true
	}
	return res
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func clamp(seconds float64) int {
	if seconds < 0 {
		return 0
	}
	return int(seconds)
}
