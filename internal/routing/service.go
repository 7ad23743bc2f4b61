package routing

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kkokki/kkokki/internal/routing"

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Fallback is tried when Provider fails with a retryable error and
	// supports the requested mode (optional).
	Fallback Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Now returns the current time (optional, defaults to time.Now).
	Now func() time.Time
}

// Service validates route requests and traces every provider call.
// Estimates are never cached; traffic changes between polls.
type Service struct {
	provider Provider
	fallback Provider
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		provider: cfg.Provider,
		fallback: cfg.Fallback,
		logger:   cfg.Logger,
		tracer:   otel.Tracer(tracerName),
		now:      now,
	}
}

// Calculate returns a normalized estimate between two resolved locations.
func (s *Service) Calculate(ctx context.Context, req Request) (*Estimate, error) {
	ctx, span := s.tracer.Start(ctx, "routing.Calculate",
		trace.WithAttributes(
			attribute.String("routing.mode", string(req.Mode)),
			attribute.String("routing.provider", s.provider.Name()),
		),
	)
	defer span.End()

	if err := s.validate(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if req.DepartAt.IsZero() {
		req.DepartAt = s.now()
	}

	est, err := s.provider.Route(ctx, req)
	if err != nil && s.canFallBack(ctx, req.Mode, err) {
		span.AddEvent("routing.fallback", trace.WithAttributes(
			attribute.String("routing.fallback_provider", s.fallback.Name()),
		))
		s.logger.Warn().Err(err).
			Str("mode", string(req.Mode)).
			Str("fallback", s.fallback.Name()).
			Msg("primary route provider failed, trying fallback")

		fbEst, fbErr := s.fallback.Route(ctx, req)
		if fbErr == nil {
			est, err = fbEst, nil
		} else {
			s.logger.Warn().Err(fbErr).Str("mode", string(req.Mode)).Msg("fallback route provider failed")
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).
			Str("mode", string(req.Mode)).
			Str("origin", req.Origin.Name).
			Str("destination", req.Destination.Name).
			Msg("route calculation failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("routing.served_by", est.Provider),
		attribute.Int("routing.minutes", est.Minutes),
		attribute.Float64("routing.distance_km", est.DistanceKM),
	)
	s.logger.Debug().
		Str("mode", string(req.Mode)).
		Int("minutes", est.Minutes).
		Float64("distance_km", est.DistanceKM).
		Msg("route calculated")

	return est, nil
}

// canFallBack reports whether err is transient and the fallback can route mode.
func (s *Service) canFallBack(ctx context.Context, mode Mode, err error) bool {
	if s.fallback == nil || ctx.Err() != nil {
		return false
	}
	transient := errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrRateLimitExceeded)
	return transient && slices.Contains(s.fallback.SupportedModes(), mode)
}

func (s *Service) validate(req Request) error {
	if !slices.Contains(s.provider.SupportedModes(), req.Mode) {
		return &Error{
			Provider: s.provider.Name(),
			Mode:     req.Mode,
			Code:     "UNSUPPORTED_MODE",
			Message:  "provider cannot route this mode",
			Err:      ErrUnsupportedMode,
		}
	}
	if req.Origin.Validate() != nil {
		return &Error{
			Provider: s.provider.Name(),
			Mode:     req.Mode,
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if req.Destination.Validate() != nil {
		return &Error{
			Provider: s.provider.Name(),
			Mode:     req.Mode,
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	return nil
}
