package weather

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/cache"
)

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL defaults to 10 minutes. A session polls far more often than
	// conditions change.
	CacheTTL time.Duration
}

// Service looks up conditions at a session origin with caching. Lookups
// for points that round to the same two decimal places (about 1 km) share
// one upstream call.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	cache    *cache.Cache[Conditions]
}

// NewService creates a weather service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		cache:    cache.New[Conditions](ttl),
	}
}

// Close stops the cache janitor.
func (s *Service) Close() {
	s.cache.Close()
}

// Current returns conditions near lat/lon.
func (s *Service) Current(ctx context.Context, lat, lon float64) (Conditions, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Conditions{}, ErrInvalidCoordinates
	}

	key := fmt.Sprintf("%.2f,%.2f", round2(lat), round2(lon))
	if c, ok := s.cache.Get(key); ok {
		return c, nil
	}

	c, err := s.provider.Current(ctx, lat, lon)
	if err != nil {
		return Conditions{}, fmt.Errorf("%s: %w", s.provider.Name(), err)
	}
	s.cache.Set(key, c)
	s.logger.Debug().
		Str("key", key).
		Str("condition", string(c.Condition)).
		Float64("precipitation_mm", c.PrecipitationMM).
		Msg("weather cached")
	return c, nil
}

// TravelImpact returns the delay current weather adds at a location.
// Failures are logged and count as no delay.
func (s *Service) TravelImpact(ctx context.Context, lat, lon float64) Impact {
	c, err := s.Current(ctx, lat, lon)
	if err != nil {
		s.logger.Warn().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("weather lookup failed, assuming no delay")
		return ImpactOf(ConditionUnknown)
	}
	return ImpactOf(c.Condition)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
