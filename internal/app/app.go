// Package app builds the provider graph shared by the API server and the
// operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/alert"
	"github.com/kkokki/kkokki/internal/alert/gemini"
	alertpubsub "github.com/kkokki/kkokki/internal/alert/pubsub"
	"github.com/kkokki/kkokki/internal/alert/slack"
	"github.com/kkokki/kkokki/internal/config"
	"github.com/kkokki/kkokki/internal/location"
	locationtmap "github.com/kkokki/kkokki/internal/location/tmap"
	"github.com/kkokki/kkokki/internal/monitor"
	"github.com/kkokki/kkokki/internal/provider/resilience"
	"github.com/kkokki/kkokki/internal/routing"
	"github.com/kkokki/kkokki/internal/routing/openrouteservice"
	routingtmap "github.com/kkokki/kkokki/internal/routing/tmap"
	"github.com/kkokki/kkokki/internal/weather"
	"github.com/kkokki/kkokki/internal/weather/openweathermap"
)

// ErrMissingAPIKey is returned when SK_API_KEY is not set.
var ErrMissingAPIKey = errors.New("SK_API_KEY is required")

// Providers is the wired provider graph.
type Providers struct {
	Registry   *resilience.Registry
	Locations  *location.Service
	Routes     *routing.Service
	Dispatcher *alert.Dispatcher

	// Weather is nil when no OpenWeatherMap key is configured.
	Weather monitor.WeatherEstimator

	NotifierName  string
	GeneratorName string

	closers []func() error
}

// RequiredProviders lists the providers /ready depends on.
func (p *Providers) RequiredProviders() []string {
	return []string{locationtmap.ProviderName, routingtmap.ProviderName}
}

// Close releases caches and broker connections.
func (p *Providers) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build wires every provider cfg enables. Missing optional keys degrade
// features instead of failing.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Providers, error) {
	if cfg.TMAP.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	p := &Providers{Registry: resilience.NewRegistry(), NotifierName: "none", GeneratorName: "none"}

	locClient := locationtmap.NewClient(locationtmap.ClientConfig{
		APIKey:   cfg.TMAP.APIKey,
		BaseURL:  cfg.TMAP.BaseURL,
		Timeout:  cfg.TMAP.Timeout,
		Registry: p.Registry,
		Logger:   log.With().Str("provider", locationtmap.ProviderName).Logger(),
	})
	p.Locations = location.NewService(location.ServiceConfig{
		Provider: locClient,
		Logger:   log.With().Str("component", "location").Logger(),
		CacheTTL: cfg.Monitor.POICacheTTL,
	})
	p.closers = append(p.closers, func() error { p.Locations.Close(); return nil })

	routeClient := routingtmap.NewClient(routingtmap.ClientConfig{
		APIKey:     cfg.TMAP.APIKey,
		BaseURL:    cfg.TMAP.BaseURL,
		TransitURL: cfg.TMAP.TransitURL,
		Timeout:    cfg.TMAP.Timeout,
		Registry:   p.Registry,
		Logger:     log.With().Str("provider", routingtmap.ProviderName).Logger(),
	})
	routeCfg := routing.ServiceConfig{
		Provider: routeClient,
		Logger:   log.With().Str("component", "routing").Logger(),
	}
	if cfg.ORS.APIKey != "" {
		routeCfg.Fallback = openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.ORS.APIKey,
			BaseURL:  cfg.ORS.BaseURL,
			Timeout:  cfg.TMAP.Timeout,
			Registry: p.Registry,
			Logger:   log.With().Str("provider", openrouteservice.ProviderName).Logger(),
		})
	}
	p.Routes = routing.NewService(routeCfg)

	var generator alert.Generator
	if cfg.Gemini.APIKey != "" {
		generator = gemini.New(gemini.Config{
			APIKey:   cfg.Gemini.APIKey,
			Model:    cfg.Gemini.Model,
			BaseURL:  cfg.Gemini.BaseURL,
			Registry: p.Registry,
			Logger:   log.With().Str("provider", gemini.ProviderName).Logger(),
		})
		p.GeneratorName = gemini.ProviderName
	} else {
		log.Warn().Msg("GOOGLE_API_KEY not set, late alerts use the fixed template")
	}

	notifier, err := buildNotifier(ctx, cfg, log, p)
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	p.Dispatcher = alert.NewDispatcher(alert.DispatcherConfig{
		Generator: generator,
		Notifier:  notifier,
		Logger:    log.With().Str("component", "alert").Logger(),
	})

	if cfg.Weather.OpenWeatherMapAPIKey != "" {
		svc := weather.NewService(weather.ServiceConfig{
			Provider: openweathermap.NewClient(openweathermap.ClientConfig{
				APIKey:   cfg.Weather.OpenWeatherMapAPIKey,
				Registry: p.Registry,
				Logger:   log.With().Str("provider", openweathermap.ProviderName).Logger(),
			}),
			Logger: log.With().Str("component", "weather").Logger(),
		})
		p.Weather = svc
		p.closers = append(p.closers, func() error { svc.Close(); return nil })
	}

	return p, nil
}

// buildNotifier returns nil with no error when no alert channel is set up.
func buildNotifier(ctx context.Context, cfg *config.Config, log zerolog.Logger, p *Providers) (alert.Notifier, error) {
	if cfg.AlertsViaPubSub() {
		publisher, err := alertpubsub.NewTopicPublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.AlertTopic)
		if err != nil {
			return nil, fmt.Errorf("alert topic: %w", err)
		}
		p.closers = append(p.closers, publisher.Close)
		p.NotifierName = "pubsub"
		return alertpubsub.New(alertpubsub.Config{
			Publisher: publisher,
			Logger:    log.With().Str("component", "alert_publisher").Logger(),
		}), nil
	}

	n, err := slack.New(slack.Config{
		WebhookURL: cfg.Slack.WebhookURL,
		Logger:     log.With().Str("provider", "slack").Logger(),
	})
	if errors.Is(err, alert.ErrNotConfigured) {
		log.Warn().Msg("Slack Webhook URL not set.")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.NotifierName = "slack"
	return n, nil
}

// SessionDefaults converts configured defaults to monitor settings.
func SessionDefaults(cfg *config.Config) monitor.Settings {
	s := monitor.DefaultSettings()
	s.PrepMinutes = cfg.Defaults.PrepMinutes
	s.BufferMinutes = cfg.Defaults.BufferMinutes
	s.EarlyWarningMinutes = cfg.Defaults.EarlyWarningMinutes
	return s
}

// NewSupervisor builds a supervisor over p using the monitor settings in cfg.
func NewSupervisor(cfg *config.Config, p *Providers, log zerolog.Logger, onLog func(string)) (*monitor.Supervisor, error) {
	return monitor.NewSupervisor(monitor.Config{
		Locations:      p.Locations,
		Routes:         p.Routes,
		Dispatcher:     p.Dispatcher,
		Weather:        p.Weather,
		Logger:         log,
		PollInterval:   cfg.Monitor.PollInterval,
		StopTimeout:    cfg.Monitor.StopTimeout,
		LogCapacity:    cfg.Monitor.LogCapacity,
		StatusLogLimit: cfg.Monitor.StatusLogLimit,
		OnLog:          onLog,
	})
}
