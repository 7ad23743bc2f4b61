package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkokki/kkokki/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SK_API_KEY", "sk-test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.TMAP.APIKey)
	assert.Equal(t, "https://apis.openapi.sk.com/tmap", cfg.TMAP.BaseURL)
	assert.Equal(t, "https://api.openrouteservice.org", cfg.ORS.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Monitor.StopTimeout)
	assert.Equal(t, 50, cfg.Monitor.LogCapacity)
	assert.Equal(t, 10, cfg.Monitor.StatusLogLimit)
	assert.Equal(t, 30, cfg.Defaults.PrepMinutes)
	assert.Equal(t, 10, cfg.Defaults.BufferMinutes)
	assert.Equal(t, 5, cfg.Defaults.EarlyWarningMinutes)
	assert.False(t, cfg.AlertsViaPubSub())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "15s")
	t.Setenv("DEFAULT_PREP_MINUTES", "45")
	t.Setenv("PUBSUB_PROJECT_ID", "kkokki-dev")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 45, cfg.Defaults.PrepMinutes)
	assert.True(t, cfg.AlertsViaPubSub())
	assert.Equal(t, "late-alerts", cfg.PubSub.AlertTopic)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("LOG_CAPACITY", "many")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*config.Config) {},
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *config.Config) { c.Monitor.PollInterval = 0 },
			wantErr: "POLL_INTERVAL",
		},
		{
			name:    "negative prep minutes",
			mutate:  func(c *config.Config) { c.Defaults.PrepMinutes = -1 },
			wantErr: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Monitor: config.MonitorConfig{
					PollInterval:   time.Minute,
					StopTimeout:    2 * time.Second,
					LogCapacity:    50,
					StatusLogLimit: 10,
				},
				Defaults: config.SessionDefaults{PrepMinutes: 30, BufferMinutes: 10, EarlyWarningMinutes: 5},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
