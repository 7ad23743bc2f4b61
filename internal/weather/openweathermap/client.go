// Package openweathermap reads current conditions from the OpenWeatherMap
// current weather endpoint.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/provider/resilience"
	"github.com/kkokki/kkokki/internal/weather"
)

const (
	ProviderName   = "openweathermap"
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
)

// HTTPDoer executes HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	APIKey  string
	BaseURL string

	// HTTPClient defaults to a resilient client registered with Registry.
	HTTPClient HTTPDoer
	Registry   *resilience.Registry

	Logger zerolog.Logger
}

// Client implements weather.Provider.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Registry = cfg.Registry
		httpClient = resilience.NewClient(rc)
	}
	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   base + "/weather",
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Current fetches conditions at lat/lon in metric units.
func (c *Client) Current(ctx context.Context, lat, lon float64) (weather.Conditions, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return weather.Conditions{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return weather.Conditions{}, fmt.Errorf("%w: %w", weather.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return weather.Conditions{}, weather.ErrInvalidCoordinates
	case resp.StatusCode != http.StatusOK:
		return weather.Conditions{}, fmt.Errorf("%w: status %d", weather.ErrProviderUnavailable, resp.StatusCode)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return weather.Conditions{}, fmt.Errorf("%w: %w", weather.ErrUpstreamFormat, err)
	}

	out := weather.Conditions{
		Condition:       weather.ConditionUnknown,
		PrecipitationMM: body.Rain.LastHour + body.Snow.LastHour,
	}
	if body.Dt > 0 {
		out.ObservedAt = time.Unix(body.Dt, 0)
	}
	if len(body.Weather) > 0 {
		out.Condition = conditionFromID(body.Weather[0].ID)
		out.Description = body.Weather[0].Description
	}

	c.logger.Debug().
		Str("condition", string(out.Condition)).
		Float64("precipitation_mm", out.PrecipitationMM).
		Msg("current weather received")
	return out, nil
}

// conditionFromID groups OpenWeatherMap condition codes.
// See https://openweathermap.org/weather-conditions.
func conditionFromID(id int) weather.Condition {
	switch {
	case id >= 200 && id < 300:
		return weather.ConditionThunderstorm
	case id >= 300 && id < 400:
		return weather.ConditionDrizzle
	case id >= 500 && id < 600:
		return weather.ConditionRain
	case id >= 600 && id < 700:
		return weather.ConditionSnow
	case id == 701:
		return weather.ConditionMist
	case id == 741:
		return weather.ConditionFog
	case id >= 700 && id < 800:
		return weather.ConditionHaze
	case id == 800:
		return weather.ConditionClear
	case id > 800 && id < 900:
		return weather.ConditionClouds
	default:
		return weather.ConditionUnknown
	}
}

type currentResponse struct {
	Weather []struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"weather"`
	Rain precipitation `json:"rain"`
	Snow precipitation `json:"snow"`
	Dt   int64         `json:"dt"`
}

type precipitation struct {
	LastHour float64 `json:"1h"`
}
