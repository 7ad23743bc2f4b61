// Package tmap provides a location client for the SK open API TMAP POI and
// reverse geocoding endpoints.
package tmap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/location"
	"github.com/kkokki/kkokki/internal/provider/resilience"
)

const (
	// ProviderName identifies this location provider.
	ProviderName = "tmap_location"

	// DefaultBaseURL is the TMAP API base URL.
	DefaultBaseURL = "https://apis.openapi.sk.com/tmap"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	coordType   = "WGS84GEO"
	searchLimit = 10
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the TMAP location client.
type ClientConfig struct {
	// APIKey is the SK open API app key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to TMAP API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a TMAP location API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new TMAP location client.
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

// Resolve returns the first POI matching keyword.
func (c *Client) Resolve(ctx context.Context, keyword string) (location.Location, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return location.Location{}, location.ErrEmptyKeyword
	}

	params := url.Values{}
	params.Set("version", "1")
	params.Set("format", "json")
	params.Set("searchKeyword", keyword)
	params.Set("resCoordType", coordType)
	params.Set("count", "1")

	var resp poiResponse
	if err := c.get(ctx, "/pois", params, &resp); err != nil {
		return location.Location{}, err
	}

	pois := resp.SearchPoiInfo.Pois.Poi
	if len(pois) == 0 {
		return location.Location{}, &location.Error{
			Provider: ProviderName,
			Code:     "NOT_FOUND",
			Message:  fmt.Sprintf("cannot find location: %s", keyword),
			Err:      location.ErrNotFound,
		}
	}

	poi := pois[0]
	lat, errLat := parseCoord(poi.FrontLat)
	lon, errLon := parseCoord(poi.FrontLon)
	if errLat != nil || errLon != nil {
		return location.Location{}, &location.Error{
			Provider: ProviderName,
			Code:     "BAD_COORDINATES",
			Message:  fmt.Sprintf("unreadable coordinates for %s", keyword),
			Err:      location.ErrProviderUnavailable,
		}
	}

	loc := location.Location{Name: poi.Name, Lat: lat, Lon: lon}
	c.logger.Debug().
		Str("keyword", keyword).
		Str("name", loc.Name).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("resolved POI")
	return loc, nil
}

// Search returns up to ten candidates for keyword. Upstream failures are
// logged and produce an empty list.
func (c *Client) Search(ctx context.Context, keyword string) ([]location.Candidate, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []location.Candidate{}, nil
	}

	params := url.Values{}
	params.Set("version", "1")
	params.Set("format", "json")
	params.Set("searchKeyword", keyword)
	params.Set("reqCoordType", coordType)
	params.Set("resCoordType", coordType)
	params.Set("count", strconv.Itoa(searchLimit))

	var resp poiResponse
	if err := c.get(ctx, "/pois", params, &resp); err != nil {
		c.logger.Warn().Err(err).Str("keyword", keyword).Msg("POI search failed")
		return []location.Candidate{}, nil
	}

	results := make([]location.Candidate, 0, len(resp.SearchPoiInfo.Pois.Poi))
	for _, poi := range resp.SearchPoiInfo.Pois.Poi {
		lat, errLat := parseCoord(poi.NoorLat)
		lon, errLon := parseCoord(poi.NoorLon)
		if errLat != nil || errLon != nil {
			continue
		}
		results = append(results, location.Candidate{
			Location: location.Location{Name: poi.Name, Lat: lat, Lon: lon},
			Address:  poi.address(),
		})
	}
	return results, nil
}

// ReverseGeocode returns the building name and full address for a point.
// Failures fall back to the coordinate string.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) location.Address {
	params := url.Values{}
	params.Set("version", "1")
	params.Set("format", "json")
	params.Set("coordType", coordType)
	params.Set("addressType", "A10")
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))

	var resp reverseResponse
	if err := c.get(ctx, "/geo/reversegeocoding", params, &resp); err != nil {
		c.logger.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("reverse geocoding failed")
		return location.FallbackAddress(lat, lon)
	}

	addr := location.FallbackAddress(lat, lon)
	if resp.AddressInfo.BuildingName != "" {
		addr.Name = resp.AddressInfo.BuildingName
	}
	if resp.AddressInfo.FullAddress != "" {
		addr.Address = resp.AddressInfo.FullAddress
	}
	return addr
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("appKey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &location.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach location provider",
			Err:      fmt.Errorf("%w: %w", location.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	// TMAP answers a POI search without hits with 204 and an empty body.
	if resp.StatusCode == http.StatusNoContent || (resp.StatusCode == http.StatusOK && len(body) == 0) {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return &location.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  fmt.Sprintf("location provider returned status %d", resp.StatusCode),
			Err:      location.ErrProviderUnavailable,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &location.Error{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "unexpected location provider response",
			Err:      fmt.Errorf("%w: %w", location.ErrProviderUnavailable, err),
		}
	}
	return nil
}

func parseCoord(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
