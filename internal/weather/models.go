// Package weather estimates how current conditions at the origin slow a
// commute down.
package weather

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrUpstreamFormat      = errors.New("unexpected weather response")
)

// Provider reports current conditions at a point.
type Provider interface {
	Current(ctx context.Context, lat, lon float64) (Conditions, error)
	Name() string
}

// Conditions is what a commute cares about from a weather report.
type Conditions struct {
	Condition   Condition
	Description string

	// PrecipitationMM is rain plus snow over the last hour.
	PrecipitationMM float64

	ObservedAt time.Time
}

// Condition is a coarse weather category.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// Wet reports whether the condition puts water on the road.
func (c Condition) Wet() bool {
	return c == ConditionRain || c == ConditionDrizzle || c == ConditionThunderstorm
}

// Impact is the extra travel time a condition causes.
type Impact struct {
	Condition    Condition `json:"condition"`
	ExtraMinutes int       `json:"extra_minutes"`
	Summary      string    `json:"summary"`
}

const (
	snowDelayMinutes = 20
	wetDelayMinutes  = 10
)

// ImpactOf maps a condition to its travel delay.
func ImpactOf(c Condition) Impact {
	switch {
	case c == ConditionSnow:
		return Impact{Condition: c, ExtraMinutes: snowDelayMinutes, Summary: "Snow (+20 min)"}
	case c.Wet():
		return Impact{Condition: c, ExtraMinutes: wetDelayMinutes, Summary: "Rain (+10 min)"}
	case c == "" || c == ConditionUnknown:
		return Impact{Condition: ConditionUnknown, Summary: "Unknown"}
	default:
		return Impact{Condition: c, Summary: "Clear roads"}
	}
}
