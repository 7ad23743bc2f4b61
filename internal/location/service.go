package location

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/cache"
)

// ServiceConfig holds configuration for the location service.
type ServiceConfig struct {
	// Provider is the upstream lookup service.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long resolved keywords are kept (default: 10 minutes).
	CacheTTL time.Duration

	// NearbyRadius is how close a known place must be for reverse geocoding
	// to answer from the index (default: 30 meters).
	NearbyRadius float64

	// Index is the place index to use (optional, a fresh one is created).
	Index *PlaceIndex
}

// Service resolves locations with a keyword cache and a spatial index of
// known places in front of the provider.
type Service struct {
	provider     Provider
	logger       zerolog.Logger
	cache        *cache.Cache[Location]
	index        *PlaceIndex
	nearbyRadius float64
}

// NewService creates a new location service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	radius := cfg.NearbyRadius
	if radius == 0 {
		radius = 30
	}
	index := cfg.Index
	if index == nil {
		index = NewPlaceIndex()
	}

	return &Service{
		provider:     cfg.Provider,
		logger:       cfg.Logger,
		cache:        cache.New[Location](ttl),
		index:        index,
		nearbyRadius: radius,
	}
}

// Close releases the keyword cache.
func (s *Service) Close() {
	s.cache.Close()
}

// Resolve returns the best match for keyword.
func (s *Service) Resolve(ctx context.Context, keyword string) (Location, error) {
	key := cacheKey(keyword)
	if key == "" {
		return Location{}, ErrEmptyKeyword
	}

	if loc, ok := s.cache.Get(key); ok {
		s.logger.Debug().Str("keyword", keyword).Msg("location cache hit")
		return loc, nil
	}

	loc, err := s.provider.Resolve(ctx, keyword)
	if err != nil {
		return Location{}, err
	}

	s.cache.Set(key, loc)
	s.index.Add(Place{Location: loc, Address: loc.Name})
	return loc, nil
}

// ResolveEndpoint returns the endpoint's coordinates, looking the keyword
// up only when the endpoint is not already resolved.
func (s *Service) ResolveEndpoint(ctx context.Context, e Endpoint) (Location, error) {
	if e.IsResolved() {
		loc := *e.Resolved
		if err := loc.Validate(); err != nil {
			return Location{}, err
		}
		return loc, nil
	}
	return s.Resolve(ctx, e.Keyword)
}

// Search returns candidate places for keyword. Blank keywords return nothing.
func (s *Service) Search(ctx context.Context, keyword string) []Candidate {
	if strings.TrimSpace(keyword) == "" {
		return []Candidate{}
	}

	results, err := s.provider.Search(ctx, keyword)
	if err != nil {
		s.logger.Warn().Err(err).Str("keyword", keyword).Msg("location search failed")
		return []Candidate{}
	}
	for _, c := range results {
		s.index.Add(Place{Location: c.Location, Address: c.Address})
	}
	return results
}

// ReverseGeocode returns a name and address for the point. It never fails.
func (s *Service) ReverseGeocode(ctx context.Context, lat, lon float64) Address {
	if err := (Location{Lat: lat, Lon: lon}).Validate(); err != nil {
		return FallbackAddress(lat, lon)
	}

	if p, ok := s.index.Nearest(lat, lon, s.nearbyRadius); ok && p.Address != "" {
		s.logger.Debug().
			Float64("lat", lat).
			Float64("lon", lon).
			Str("place", p.Name).
			Msg("reverse geocode answered from place index")
		return Address{Name: p.Name, Address: p.Address}
	}

	addr := s.provider.ReverseGeocode(ctx, lat, lon)
	if addr.Name != FallbackName || addr.Address != CoordinateString(lat, lon) {
		s.index.Add(Place{Location: Location{Name: addr.Name, Lat: lat, Lon: lon}, Address: addr.Address})
	}
	return addr
}

// IsNotFound reports whether err means the keyword matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func cacheKey(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}
