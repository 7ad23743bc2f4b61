package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/alert"
	"github.com/kkokki/kkokki/internal/app"
	"github.com/kkokki/kkokki/internal/config"
	"github.com/kkokki/kkokki/internal/location"
	"github.com/kkokki/kkokki/internal/logging"
	"github.com/kkokki/kkokki/internal/monitor"
	"github.com/kkokki/kkokki/internal/routing"
)

type locationLookup interface {
	ResolveEndpoint(ctx context.Context, e location.Endpoint) (location.Location, error)
	Search(ctx context.Context, keyword string) []location.Candidate
	ReverseGeocode(ctx context.Context, lat, lon float64) location.Address
}

type routeCalculator interface {
	Calculate(ctx context.Context, req routing.Request) (*routing.Estimate, error)
}

// backend is what the network commands need.
type backend struct {
	Locations  locationLookup
	Routes     routeCalculator
	Dispatcher *alert.Dispatcher
	Weather    monitor.WeatherEstimator
	Defaults   monitor.Settings
	Logger     zerolog.Logger

	PollInterval time.Duration
	StopTimeout  time.Duration

	Close func()
}

type backendFactory func(ctx context.Context) (*backend, error)

func defaultClock() time.Time { return time.Now() }

// openBackend loads the environment configuration and wires real providers.
// Logs go to stderr in console format so stdout stays clean.
func openBackend(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if level == "info" {
		level = "warn"
	}
	log := logging.New(logging.Options{
		Level:   level,
		Format:  "console",
		Service: "kkokki-cli",
		Version: Version,
		Output:  stderr,
	})

	p, err := app.Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	b := &backend{
		Locations:    p.Locations,
		Routes:       p.Routes,
		Dispatcher:   p.Dispatcher,
		Weather:      p.Weather,
		Defaults:     app.SessionDefaults(cfg),
		Logger:       log,
		PollInterval: cfg.Monitor.PollInterval,
		StopTimeout:  cfg.Monitor.StopTimeout,
		Close: func() {
			if err := p.Close(); err != nil {
				log.Warn().Err(err).Msg("closing providers")
			}
		},
	}
	return b, nil
}
