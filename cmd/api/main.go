// Package main provides the entrypoint for the Kkokki API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kkokki/kkokki/internal/api"
	"github.com/kkokki/kkokki/internal/api/middleware"
	"github.com/kkokki/kkokki/internal/app"
	"github.com/kkokki/kkokki/internal/config"
	"github.com/kkokki/kkokki/internal/logging"
	"github.com/kkokki/kkokki/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "kkokki-api"

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(logging.Options{Service: serviceName, Version: Version})
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: serviceName,
		Version: Version,
	})

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Server.Env).
		Msg("starting Kkokki API")

	ctx := context.Background()

	tel, err := telemetry.Start(ctx,
		telemetry.Service{Name: serviceName, Version: Version, Environment: cfg.Server.Env},
		cfg.Telemetry,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tel.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tel.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	providers, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build providers")
		os.Exit(1)
	}
	defer func() {
		if closeErr := providers.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close providers")
		}
	}()
	log.Info().
		Str("notifier", providers.NotifierName).
		Str("generator", providers.GeneratorName).
		Bool("weather", providers.Weather != nil).
		Msg("providers initialized")

	supervisor, err := app.NewSupervisor(cfg, providers, log, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to create supervisor")
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Version:           Version,
		BuildTime:         BuildTime,
		ServiceName:       serviceName,
		Logger:            log,
		Metrics:           metrics,
		RequireTLS:        cfg.Server.RequireTLS,
		Supervisor:        supervisor,
		SessionDefaults:   app.SessionDefaults(cfg),
		Locations:         providers.Locations,
		Lookup:            providers.Locations,
		Routes:            providers.Routes,
		Registry:          providers.Registry,
		RequiredProviders: providers.RequiredProviders(),
		NotifierName:      providers.NotifierName,
		GeneratorName:     providers.GeneratorName,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop the session first so no alert fires mid-shutdown.
	supervisor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
