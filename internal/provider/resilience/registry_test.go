package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkokki/kkokki/internal/provider/resilience"
)

func newRegisteredClient(t *testing.T, registry *resilience.Registry, name string) *resilience.Client {
	t.Helper()
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	cfg.NoRetry = true
	return resilience.NewClient(cfg)
}

func TestRegistry_RegisterOnConstruction(t *testing.T) {
	registry := resilience.NewRegistry()
	client := newRegisteredClient(t, registry, "tmap_routes")

	assert.Equal(t, []string{"tmap_routes"}, registry.Names())
	assert.Equal(t, "tmap_routes", client.Name())

	h, ok := registry.Lookup("tmap_routes")
	require.True(t, ok)
	assert.Equal(t, gobreaker.StateClosed, h.State)
	assert.Equal(t, resilience.LevelOK, h.Level())
	assert.True(t, h.LastSuccess.IsZero())
	assert.True(t, h.LastFailure.IsZero())
	assert.Zero(t, h.Requests)
}

func TestRegistry_RecordsRequestOutcomes(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := newRegisteredClient(t, registry, "gemini")

	send := func() {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
		require.NoError(t, err)
		resp, _ := client.Do(req)
		if resp != nil {
			resp.Body.Close()
		}
	}

	send()
	h, _ := registry.Lookup("gemini")
	assert.WithinDuration(t, time.Now(), h.LastSuccess, time.Second)
	assert.True(t, h.LastFailure.IsZero())

	status.Store(http.StatusBadGateway)
	send()
	h, _ = registry.Lookup("gemini")
	assert.False(t, h.LastFailure.IsZero())
	assert.Contains(t, h.LastError, "Bad Gateway")
	assert.Equal(t, uint64(2), h.Requests)
	assert.Equal(t, uint64(1), h.Failures)
}

func TestRegistry_UnknownNamesIgnored(t *testing.T) {
	registry := resilience.NewRegistry()

	registry.RecordSuccess("nonexistent")
	registry.RecordFailure("nonexistent", assert.AnError)

	_, ok := registry.Lookup("nonexistent")
	assert.False(t, ok)
	assert.Empty(t, registry.Snapshot())
}

func TestRegistry_ReRegisterResetsHistory(t *testing.T) {
	registry := resilience.NewRegistry()
	_ = newRegisteredClient(t, registry, "openweathermap")
	registry.RecordFailure("openweathermap", assert.AnError)

	_ = newRegisteredClient(t, registry, "openweathermap")

	h, ok := registry.Lookup("openweathermap")
	require.True(t, ok)
	assert.Empty(t, h.LastError)
	assert.Zero(t, h.Failures)
}

func TestRegistry_SnapshotOrdered(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"tmap_transit", "gemini", "tmap_pois"} {
		_ = newRegisteredClient(t, registry, name)
	}

	assert.Equal(t, []string{"gemini", "tmap_pois", "tmap_transit"}, registry.Names())

	all := registry.Snapshot()
	require.Len(t, all, 3)
	assert.Equal(t, "gemini", all[0].Name)
	assert.Equal(t, "tmap_transit", all[2].Name)
}

func TestRegistry_Down(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	_ = newRegisteredClient(t, registry, "tmap_routes")

	cb := resilience.DefaultCircuitBreakerConfig("tmap_pois")
	cb.ReadyToTrip = func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 1 }
	cfg := resilience.DefaultClientConfig("tmap_pois")
	cfg.NoRetry = true
	cfg.CircuitBreaker = &cb
	cfg.Registry = registry
	client := resilience.NewClient(cfg)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	resp, _ := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}

	assert.Equal(t, []string{"tmap_pois"}, registry.Down("tmap_routes", "tmap_pois", "missing"))
	h, _ := registry.Lookup("tmap_pois")
	assert.Equal(t, resilience.LevelDown, h.Level())
}

func TestHealth_Level(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  resilience.Level
	}{
		{gobreaker.StateClosed, resilience.LevelOK},
		{gobreaker.StateHalfOpen, resilience.LevelDegraded},
		{gobreaker.StateOpen, resilience.LevelDown},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, resilience.Health{State: tt.state}.Level())
		})
	}
}
