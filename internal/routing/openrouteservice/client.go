// Package openrouteservice routes car and walk trips through the
// OpenRouteService directions API. It serves as the fallback when the
// primary route provider is unavailable.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/provider/resilience"
	"github.com/kkokki/kkokki/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// profiles maps modes to ORS profiles. ORS has no public transit profile.
var profiles = map[routing.Mode]string{
	routing.ModeCar:  "driving-car",
	routing.ModeWalk: "foot-walking",
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	// APIKey is the ORS API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to ORS API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client without retries.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenRouteService API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenRouteService client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.NoRetry = true
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// SupportedModes returns car and walk.
func (c *Client) SupportedModes() []routing.Mode {
	return []routing.Mode{routing.ModeCar, routing.ModeWalk}
}

// Route computes an estimate for req.Mode.
func (c *Client) Route(ctx context.Context, req routing.Request) (*routing.Estimate, error) {
	profile, ok := profiles[req.Mode]
	if !ok {
		return nil, c.newError(req.Mode, "UNSUPPORTED_MODE", "mode not supported", routing.ErrUnsupportedMode)
	}

	body, err := json.Marshal(directionsRequest{
		Coordinates: [][2]float64{
			{req.Origin.Lon, req.Origin.Lat},
			{req.Destination.Lon, req.Destination.Lat},
		},
		Units:    "m",
		Language: "en",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/directions/%s/geojson", c.baseURL, profile)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Accept", "application/geo+json, application/json")

	c.logger.Debug().
		Str("profile", profile).
		Str("origin", req.Origin.Name).
		Str("destination", req.Destination.Name).
		Msg("requesting directions from ORS")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.newError(req.Mode, "REQUEST_FAILED", "failed to reach routing provider", fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.newError(req.Mode, "READ_FAILED", "failed to read response", routing.ErrProviderUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(req.Mode, resp.StatusCode, respBody)
	}

	var fc featureCollection
	if err := json.Unmarshal(respBody, &fc); err != nil {
		return nil, c.newError(req.Mode, "DECODE_FAILED", "malformed directions response", routing.ErrUpstreamFormat)
	}
	if len(fc.Features) == 0 {
		return nil, c.newError(req.Mode, "NO_FEATURES", "directions response has no route", routing.ErrUpstreamFormat)
	}

	f := fc.Features[0]
	est := &routing.Estimate{
		Mode:            req.Mode,
		Minutes:         routing.MinutesFromSeconds(f.Properties.Summary.Duration),
		DistanceKM:      routing.KilometersFromMeters(f.Properties.Summary.Distance),
		DurationSeconds: int(f.Properties.Summary.Duration),
		DistanceMeters:  int(f.Properties.Summary.Distance),
		Geometry:        f.Geometry.Coordinates,
		Provider:        ProviderName,
		FetchedAt:       time.Now(),
	}

	c.logger.Debug().
		Str("profile", profile).
		Int("minutes", est.Minutes).
		Msg("received directions from ORS")
	return est, nil
}

// errorFromResponse maps ORS error responses to routing errors.
func (c *Client) errorFromResponse(mode routing.Mode, status int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)

	switch {
	case status == http.StatusTooManyRequests:
		return c.newError(mode, "RATE_LIMIT", "API rate limit exceeded", routing.ErrRateLimitExceeded)
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return c.newError(mode, "FORBIDDEN", "API access denied", routing.ErrProviderUnavailable)
	case status == http.StatusNotFound,
		er.Error.Code == errorCodeRouteNotFound,
		er.Error.Code == errorCodePointNotFound:
		return c.newError(mode, "NO_ROUTE", "no route found between the given points", routing.ErrNoRouteFound)
	case status == http.StatusBadRequest:
		return c.newError(mode, "BAD_REQUEST", "request rejected by routing provider", routing.ErrInvalidCoordinates)
	case status >= 500:
		return c.newError(mode, fmt.Sprintf("SERVER_%d", status), "routing provider is temporarily unavailable", routing.ErrProviderUnavailable)
	default:
		return c.newError(mode, fmt.Sprintf("HTTP_%d", status), "unexpected routing provider status", routing.ErrProviderUnavailable)
	}
}

func (c *Client) newError(mode routing.Mode, code, msg string, err error) *routing.Error {
	return &routing.Error{Provider: ProviderName, Mode: mode, Code: code, Message: msg, Err: err}
}
