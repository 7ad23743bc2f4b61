// Package tmap provides a routing client for the SK open API TMAP car,
// pedestrian and public transit route endpoints.
package tmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/provider/resilience"
	"github.com/kkokki/kkokki/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "tmap_routes"

	// DefaultBaseURL is the TMAP API base URL.
	DefaultBaseURL = "https://apis.openapi.sk.com/tmap"

	// DefaultTransitURL is the TMAP public transit route endpoint.
	DefaultTransitURL = "https://apis.openapi.sk.com/transit/routes/sub/"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	coordType       = "WGS84GEO"
	transitCount    = 10
	searchDttmStyle = "200601021504"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the TMAP routing client.
type ClientConfig struct {
	// APIKey is the SK open API app key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to TMAP API).
	BaseURL string

	// TransitURL is the transit endpoint (optional).
	TransitURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client without retries; the polling loop
	// already retries on its next tick.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a TMAP routing API client.
type Client struct {
	apiKey     string
	baseURL    string
	transitURL string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new TMAP routing client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	transitURL := cfg.TransitURL
	if transitURL == "" {
		transitURL = DefaultTransitURL
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
		transitURL: transitURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// SupportedModes returns the supported transport modes.
func (c *Client) SupportedModes() []routing.Mode {
	return routing.Modes
}

// Route computes an estimate for req.Mode.
func (c *Client) Route(ctx context.Context, req routing.Request) (*routing.Estimate, error) {
	var (
		est *routing.Estimate
		err error
	)
	switch req.Mode {
	case routing.ModeCar:
		est, err = c.car(ctx, req)
	case routing.ModeWalk:
		est, err = c.walk(ctx, req)
	case routing.ModeTransit:
		est, err = c.transit(ctx, req)
	default:
		return nil, &routing.Error{
			Provider: ProviderName,
			Mode:     req.Mode,
			Code:     "UNSUPPORTED_MODE",
			Message:  "mode not supported",
			Err:      routing.ErrUnsupportedMode,
		}
	}
	if err != nil {
		return nil, err
	}

	est.Provider = ProviderName
	est.FetchedAt = time.Now()
	return est, nil
}

func (c *Client) car(ctx context.Context, req routing.Request) (*routing.Estimate, error) {
	body := carRequest{
		StartX:       req.Origin.Lon,
		StartY:       req.Origin.Lat,
		EndX:         req.Destination.Lon,
		EndY:         req.Destination.Lat,
		ReqCoordType: coordType,
		ResCoordType: coordType,
		SearchOption: "0",
		TrafficInfo:  "Y",
	}

	var fc featureCollection
	if err := c.post(ctx, routing.ModeCar, c.baseURL+"/routes?version=1&format=json", body, &fc); err != nil {
		return nil, err
	}
	return toEstimate(routing.ModeCar, &fc)
}

func (c *Client) walk(ctx context.Context, req routing.Request) (*routing.Estimate, error) {
	body := walkRequest{
		StartX:       formatCoord(req.Origin.Lon),
		StartY:       formatCoord(req.Origin.Lat),
		EndX:         formatCoord(req.Destination.Lon),
		EndY:         formatCoord(req.Destination.Lat),
		ReqCoordType: coordType,
		ResCoordType: coordType,
		StartName:    nameOr(req.Origin.Name, "Start"),
		EndName:      nameOr(req.Destination.Name, "End"),
	}

	var fc featureCollection
	if err := c.post(ctx, routing.ModeWalk, c.baseURL+"/routes/pedestrian?version=1&format=json", body, &fc); err != nil {
		return nil, err
	}
	return toEstimate(routing.ModeWalk, &fc)
}

func (c *Client) transit(ctx context.Context, req routing.Request) (*routing.Estimate, error) {
	departAt := req.DepartAt
	if departAt.IsZero() {
		departAt = time.Now()
	}
	body := transitRequest{
		StartX:     formatCoord(req.Origin.Lon),
		StartY:     formatCoord(req.Origin.Lat),
		EndX:       formatCoord(req.Destination.Lon),
		EndY:       formatCoord(req.Destination.Lat),
		Format:     "json",
		Count:      transitCount,
		SearchDttm: departAt.Format(searchDttmStyle),
	}

	var tr transitResponse
	if err := c.post(ctx, routing.ModeTransit, c.transitURL, body, &tr); err != nil {
		return nil, err
	}

	if tr.MetaData == nil || tr.MetaData.Plan == nil {
		msg := "transit response has no plan"
		if tr.Result != nil && tr.Result.Message != "" {
			msg = tr.Result.Message
		}
		return nil, &routing.Error{
			Provider: ProviderName,
			Mode:     routing.ModeTransit,
			Code:     "NO_PLAN",
			Message:  msg,
			Err:      routing.ErrUpstreamFormat,
		}
	}

	its := make([]routing.Itinerary, 0, len(tr.MetaData.Plan.Itineraries))
	for _, it := range tr.MetaData.Plan.Itineraries {
		its = append(its, routing.Itinerary{
			TotalSeconds:   it.TotalTime,
			DistanceMeters: it.TotalDistance,
			WalkSeconds:    it.TotalWalkTime,
			Transfers:      it.TransferCount,
			Fare:           it.Fare.Regular.TotalFare,
			PathType:       it.PathType,
		})
	}

	est, err := routing.TransitEstimate(its)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Mode:     routing.ModeTransit,
			Code:     "NO_ROUTE",
			Message:  "no transit itineraries found",
			Err:      err,
		}
	}

	c.logger.Debug().
		Int("itineraries", len(its)).
		Int("minutes", est.Minutes).
		Msg("received transit routes from TMAP")
	return est, nil
}

func (c *Client) post(ctx context.Context, mode routing.Mode, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("appKey", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug().
		Str("mode", string(mode)).
		Str("url", url).
		Msg("requesting route from TMAP")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &routing.Error{
			Provider: ProviderName,
			Mode:     mode,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(mode, resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &routing.Error{
			Provider: ProviderName,
			Mode:     mode,
			Code:     "DECODE_FAILED",
			Message:  "unexpected routing provider response",
			Err:      fmt.Errorf("%w: %w", routing.ErrUpstreamFormat, err),
		}
	}
	return nil
}

// handleErrorResponse maps TMAP error responses to domain errors.
func handleErrorResponse(mode routing.Mode, statusCode int, body []byte) error {
	var tmErr errorResponse
	_ = json.Unmarshal(body, &tmErr)
	message := tmErr.Error.Message

	newErr := func(code, fallback string, sentinel error) error {
		if message == "" {
			message = fallback
		}
		return &routing.Error{Provider: ProviderName, Mode: mode, Code: code, Message: message, Err: sentinel}
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return newErr("RATE_LIMIT", "API rate limit exceeded, please try again later", routing.ErrRateLimitExceeded)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return newErr("FORBIDDEN", "API access denied - check API key configuration", routing.ErrProviderUnavailable)
	case statusCode == http.StatusNotFound:
		return newErr("NO_ROUTE", "no route found between the given points", routing.ErrNoRouteFound)
	case statusCode == http.StatusBadRequest:
		return newErr("BAD_REQUEST", "routing provider rejected the coordinates", routing.ErrInvalidCoordinates)
	case statusCode >= 500:
		return newErr(fmt.Sprintf("SERVER_%d", statusCode), "routing provider is temporarily unavailable", routing.ErrProviderUnavailable)
	default:
		return newErr(fmt.Sprintf("HTTP_%d", statusCode), fmt.Sprintf("routing provider returned status %d", statusCode), routing.ErrProviderUnavailable)
	}
}

// toEstimate reads totals from the first feature and collects the geometry.
func toEstimate(mode routing.Mode, fc *featureCollection) (*routing.Estimate, error) {
	if len(fc.Features) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Mode:     mode,
			Code:     "NO_FEATURES",
			Message:  "route response has no features",
			Err:      routing.ErrUpstreamFormat,
		}
	}

	props := fc.Features[0].Properties
	if props.TotalTime == nil || props.TotalDistance == nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Mode:     mode,
			Code:     "NO_TOTALS",
			Message:  "route response has no totals",
			Err:      routing.ErrUpstreamFormat,
		}
	}

	var path [][2]float64
	for _, f := range fc.Features {
		pts, err := f.Geometry.points()
		if err != nil {
			return nil, &routing.Error{
				Provider: ProviderName,
				Mode:     mode,
				Code:     "BAD_GEOMETRY",
				Message:  "route geometry is malformed",
				Err:      fmt.Errorf("%w: %w", routing.ErrUpstreamFormat, err),
			}
		}
		path = append(path, pts...)
	}

	return &routing.Estimate{
		Mode:            mode,
		Minutes:         routing.MinutesFromSeconds(*props.TotalTime),
		DistanceKM:      routing.KilometersFromMeters(*props.TotalDistance),
		DurationSeconds: int(*props.TotalTime),
		DistanceMeters:  int(*props.TotalDistance),
		Geometry:        path,
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
