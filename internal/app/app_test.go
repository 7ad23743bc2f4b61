package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkokki/kkokki/internal/app"
	"github.com/kkokki/kkokki/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.TMAP.APIKey = "sk-test"
	cfg.TMAP.BaseURL = "http://127.0.0.1:1/tmap"
	cfg.Monitor.PollInterval = time.Minute
	cfg.Monitor.StopTimeout = 2 * time.Second
	cfg.Monitor.LogCapacity = 50
	cfg.Monitor.StatusLogLimit = 10
	cfg.Defaults.PrepMinutes = 25
	cfg.Defaults.BufferMinutes = 5
	cfg.Defaults.EarlyWarningMinutes = 7
	return cfg
}

func TestBuild_RequiresTMAPKey(t *testing.T) {
	cfg := baseConfig()
	cfg.TMAP.APIKey = ""
	_, err := app.Build(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, app.ErrMissingAPIKey)
}

func TestBuild_MinimalConfig(t *testing.T) {
	p, err := app.Build(context.Background(), baseConfig(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, "none", p.NotifierName)
	assert.Equal(t, "none", p.GeneratorName)
	assert.Nil(t, p.Weather)
	assert.NotNil(t, p.Dispatcher)
	assert.ElementsMatch(t, p.RequiredProviders(), p.Registry.Names())
}

func TestBuild_OptionalProviders(t *testing.T) {
	cfg := baseConfig()
	cfg.Slack.WebhookURL = "https://hooks.slack.com/services/T000/B000/XXXX"
	cfg.Gemini.APIKey = "g-test"
	cfg.Weather.OpenWeatherMapAPIKey = "owm-test"
	cfg.ORS.APIKey = "ors-test"

	p, err := app.Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, "slack", p.NotifierName)
	assert.Equal(t, "gemini", p.GeneratorName)
	assert.NotNil(t, p.Weather)
	assert.Contains(t, p.Registry.Names(), "openweathermap")
	assert.Contains(t, p.Registry.Names(), "openrouteservice")
}

func TestSessionDefaults(t *testing.T) {
	s := app.SessionDefaults(baseConfig())
	assert.Equal(t, 25, s.PrepMinutes)
	assert.Equal(t, 5, s.BufferMinutes)
	assert.Equal(t, 7, s.EarlyWarningMinutes)
	assert.True(t, s.UrgentAlertEnabled)
	assert.False(t, s.EarlyWarningEnabled)
}

func TestNewSupervisor(t *testing.T) {
	cfg := baseConfig()
	p, err := app.Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	sup, err := app.NewSupervisor(cfg, p, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.False(t, sup.Status().Running)
}
