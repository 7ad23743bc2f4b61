// Package main provides the entrypoint for the Kkokki alert relay worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kkokki/kkokki/internal/alert/slack"
	"github.com/kkokki/kkokki/internal/api/models"
	"github.com/kkokki/kkokki/internal/api/response"
	"github.com/kkokki/kkokki/internal/config"
	"github.com/kkokki/kkokki/internal/logging"
	"github.com/kkokki/kkokki/internal/telemetry"
	"github.com/kkokki/kkokki/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "kkokki-worker"

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
	log.Info().Str("build_time", BuildTime).Msg("starting Kkokki worker")

	if cfg.PubSub.ProjectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	notifier, err := slack.New(slack.Config{
		WebhookURL: cfg.Slack.WebhookURL,
		Logger:     log.With().Str("provider", "slack").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Slack Webhook URL not set.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tel, err := telemetry.Start(ctx,
		telemetry.Service{Name: serviceName, Version: Version, Environment: cfg.Server.Env},
		cfg.Telemetry,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := tel.Shutdown(flushCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	relay := worker.NewRelay(worker.RelayConfig{
		Notifier: notifier,
		Logger:   log.With().Str("component", "relay").Logger(),
	})
	subscriber, err := worker.NewSubscriber(ctx, worker.SubscriberConfig{
		ProjectID:        cfg.PubSub.ProjectID,
		SubscriptionName: cfg.PubSub.Subscription,
		Relay:            relay,
		Logger:           log.With().Str("component", "subscriber").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create subscriber")
	}
	defer subscriber.Close()

	// Cloud Run needs a listening port even for a pull worker.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, models.Health{
			Status:  models.HealthStatusOK,
			Time:    models.Timestamp(time.Now()),
			Details: map[string]any{"version": Version},
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := subscriber.Start(ctx); err != nil {
			log.Error().Err(err).Msg("subscriber stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-done:
	}

	log.Info().Msg("shutting down worker")
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
