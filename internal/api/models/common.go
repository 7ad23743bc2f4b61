// Package models holds the request and response bodies of the Kkokki API.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a time.Time that marshals as RFC3339.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// Place is a named coordinate.
type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// EndpointInput is a trip endpoint sent either as a search keyword string
// or as a {name, lat, lon} object.
type EndpointInput struct {
	Keyword string
	Place   *Place
}

var errEndpointShape = errors.New("endpoint must be a keyword string or an object with lat and lon")

// UnmarshalJSON accepts a string or a place object.
func (e *EndpointInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Keyword)
	}

	var raw struct {
		Name string   `json:"name"`
		Lat  *float64 `json:"lat"`
		Lon  *float64 `json:"lon"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errEndpointShape
	}
	if raw.Lat == nil || raw.Lon == nil {
		return errEndpointShape
	}
	e.Place = &Place{Name: raw.Name, Lat: *raw.Lat, Lon: *raw.Lon}
	return nil
}

// MarshalJSON writes the keyword or the place.
func (e EndpointInput) MarshalJSON() ([]byte, error) {
	if e.Place != nil {
		return json.Marshal(e.Place)
	}
	return json.Marshal(e.Keyword)
}
