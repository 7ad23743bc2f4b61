// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full configuration for the Kkokki binaries.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	TMAP      TMAPConfig
	ORS       ORSConfig
	Gemini    GeminiConfig
	Slack     SlackConfig
	PubSub    PubSubConfig
	Weather   WeatherConfig
	Monitor   MonitorConfig
	Defaults  SessionDefaults
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       string `env:"APP_PORT" envDefault:"8080"`
	Env        string `env:"APP_ENV" envDefault:"development"`
	RequireTLS bool   `env:"REQUIRE_TLS" envDefault:"false"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled      bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	SampleRatio  float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// TMAPConfig holds SK open API settings used for POI search and routing.
type TMAPConfig struct {
	APIKey     string        `env:"SK_API_KEY"`
	BaseURL    string        `env:"TMAP_BASE_URL" envDefault:"https://apis.openapi.sk.com/tmap"`
	TransitURL string        `env:"TMAP_TRANSIT_URL" envDefault:"https://apis.openapi.sk.com/transit/routes/sub/"`
	Timeout    time.Duration `env:"TMAP_TIMEOUT" envDefault:"10s"`
}

// ORSConfig holds the optional OpenRouteService fallback for car and walk
// routes. The fallback is off when APIKey is empty.
type ORSConfig struct {
	APIKey  string `env:"OPENROUTESERVICE_API_KEY"`
	BaseURL string `env:"OPENROUTESERVICE_BASE_URL" envDefault:"https://api.openrouteservice.org"`
}

// GeminiConfig holds settings for the late-message generator.
type GeminiConfig struct {
	APIKey  string `env:"GOOGLE_API_KEY"`
	Model   string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-lite"`
	BaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
}

// SlackConfig holds the incoming webhook used for late alerts.
type SlackConfig struct {
	WebhookURL string `env:"SLACK_WEBHOOK_URL"`
}

// PubSubConfig holds the alert topic settings. Alerts go through Pub/Sub
// only when ProjectID is set.
type PubSubConfig struct {
	ProjectID    string `env:"PUBSUB_PROJECT_ID"`
	AlertTopic   string `env:"PUBSUB_ALERT_TOPIC" envDefault:"late-alerts"`
	Subscription string `env:"PUBSUB_ALERT_SUBSCRIPTION" envDefault:"late-alerts-relay"`
}

// WeatherConfig holds the optional weather provider key.
type WeatherConfig struct {
	OpenWeatherMapAPIKey string `env:"OPENWEATHERMAP_API_KEY"`
}

// MonitorConfig tunes the polling loop and its log trail.
type MonitorConfig struct {
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
	StopTimeout    time.Duration `env:"STOP_TIMEOUT" envDefault:"2s"`
	LogCapacity    int           `env:"LOG_CAPACITY" envDefault:"50"`
	StatusLogLimit int           `env:"STATUS_LOG_LIMIT" envDefault:"10"`
	POICacheTTL    time.Duration `env:"POI_CACHE_TTL" envDefault:"10m"`
}

// SessionDefaults are applied to start requests that omit a setting.
type SessionDefaults struct {
	PrepMinutes         int `env:"DEFAULT_PREP_MINUTES" envDefault:"30"`
	BufferMinutes       int `env:"DEFAULT_BUFFER_MINUTES" envDefault:"10"`
	EarlyWarningMinutes int `env:"DEFAULT_EARLY_WARNING_MINUTES" envDefault:"5"`
}

// Load reads an optional .env file and parses the environment into Config.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Monitor.PollInterval <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL must be positive"))
	}
	if c.Monitor.StopTimeout <= 0 {
		errs = append(errs, errors.New("STOP_TIMEOUT must be positive"))
	}
	if c.Monitor.LogCapacity <= 0 {
		errs = append(errs, errors.New("LOG_CAPACITY must be positive"))
	}
	if c.Monitor.StatusLogLimit <= 0 {
		errs = append(errs, errors.New("STATUS_LOG_LIMIT must be positive"))
	}
	if c.Defaults.PrepMinutes < 0 || c.Defaults.BufferMinutes < 0 || c.Defaults.EarlyWarningMinutes < 0 {
		errs = append(errs, errors.New("default session minutes must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// AlertsViaPubSub reports whether late alerts should be published to Pub/Sub
// instead of being posted to Slack directly.
func (c *Config) AlertsViaPubSub() bool {
	return c.PubSub.ProjectID != "" && c.PubSub.AlertTopic != ""
}
