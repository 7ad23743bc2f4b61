// Package api assembles the Kkokki HTTP API.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/api/handler"
	"github.com/kkokki/kkokki/internal/api/middleware"
	"github.com/kkokki/kkokki/internal/monitor"
	"github.com/kkokki/kkokki/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	Logger      zerolog.Logger
	Metrics     *middleware.Metrics
	RequireTLS  bool

	Supervisor      handler.Supervisor
	SessionDefaults monitor.Settings
	Locations       handler.EndpointResolver
	Lookup          handler.LocationLookup
	Routes          handler.RouteCalculator

	Registry          *resilience.Registry
	RequiredProviders []string
	NotifierName      string
	GeneratorName     string
}

// NewRouter creates the chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "kkokki-api"
	}

	// Order matters: request ID first so every later layer can log it.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:           cfg.Version,
		BuildTime:         cfg.BuildTime,
		Registry:          cfg.Registry,
		Monitor:           cfg.Supervisor,
		RequiredProviders: cfg.RequiredProviders,
		NotifierName:      cfg.NotifierName,
		GeneratorName:     cfg.GeneratorName,
	})
	monitorHandler := handler.NewMonitorHandler(cfg.Supervisor, cfg.SessionDefaults)
	routeHandler := handler.NewRouteHandler(cfg.Locations, cfg.Routes, cfg.Logger)
	locationHandler := handler.NewLocationHandler(cfg.Lookup)

	controlRateLimit := middleware.RateLimitByIP(middleware.ControlRateLimit)
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/monitor", func(r chi.Router) {
			r.With(controlRateLimit, middleware.RequireJSON).Post("/start", monitorHandler.Start)
			r.With(controlRateLimit).Post("/stop", monitorHandler.Stop)
			r.With(standardRateLimit).Get("/status", monitorHandler.Status)
		})

		r.With(expensiveRateLimit, middleware.RequireJSON).Post("/routes:compute", routeHandler.ComputeRoutes)

		r.Route("/locations", func(r chi.Router) {
			r.Use(expensiveRateLimit)
			r.Get("/search", locationHandler.Search)
			r.Get("/reverse", locationHandler.Reverse)
		})
	})

	return r
}
