// Package handler holds the HTTP handlers of the Kkokki API.
package handler

import (
	"net/http"
	"time"

	"github.com/kkokki/kkokki/internal/api/models"
	"github.com/kkokki/kkokki/internal/api/response"
	"github.com/kkokki/kkokki/internal/monitor"
	"github.com/kkokki/kkokki/internal/provider/resilience"
)

// StatusReader exposes the monitor snapshot.
type StatusReader interface {
	Status() monitor.Snapshot
}

// OpsConfig holds the dependencies of OpsHandler.
type OpsConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Monitor   StatusReader

	// RequiredProviders must not have an open circuit for /ready to pass.
	RequiredProviders []string

	// NotifierName and GeneratorName describe the alert path ("none" when unset).
	NotifierName  string
	GeneratorName string
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
	now func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.NotifierName == "" {
		cfg.NotifierName = "none"
	}
	if cfg.GeneratorName == "" {
		cfg.GeneratorName = "none"
	}
	return &OpsHandler{cfg: cfg, now: time.Now}
}

// HealthCheck handles GET /v1/ops/health (liveness).
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. It fails while a required
// provider's circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	var down []string
	if h.cfg.Registry != nil {
		down = h.cfg.Registry.Down(h.cfg.RequiredProviders...)
	}

	if len(down) > 0 {
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status:  models.HealthStatusFail,
			Time:    models.Timestamp(h.now()),
			Details: map[string]any{"providersDown": down},
		})
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
	})
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(h.now()),
		Alerts:    models.AlertsSummary{Notifier: h.cfg.NotifierName, Generator: h.cfg.GeneratorName},
		Providers: []models.ProviderStatus{},
	}

	if h.cfg.Monitor != nil {
		snap := h.cfg.Monitor.Status()
		status.Monitor = models.MonitorSummary{Running: snap.Running, State: string(snap.State)}
		if snap.State == monitor.StateFatalError {
			status.Status = models.HealthStatusDegraded
		}
	}

	if h.cfg.Registry != nil {
		for _, ph := range h.cfg.Registry.Snapshot() {
			ps := toProviderStatus(ph)
			status.Providers = append(status.Providers, ps)
			switch {
			case ps.Status == models.HealthStatusFail:
				status.Status = models.HealthStatusFail
			case ps.Status == models.HealthStatusDegraded && status.Status == models.HealthStatusOK:
				status.Status = models.HealthStatusDegraded
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

var levelStatus = map[resilience.Level]models.HealthStatus{
	resilience.LevelOK:       models.HealthStatusOK,
	resilience.LevelDegraded: models.HealthStatusDegraded,
	resilience.LevelDown:     models.HealthStatusFail,
}

func toProviderStatus(ph resilience.Health) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            ph.Name,
		Status:              levelStatus[ph.Level()],
		CircuitState:        ph.State.String(),
		ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
		TotalRequests:       ph.Requests,
		TotalFailures:       ph.Failures,
		LastError:           ph.LastError,
	}
	if !ph.LastSuccess.IsZero() {
		ts := models.Timestamp(ph.LastSuccess)
		ps.LastSuccessAt = &ts
	}
	if !ph.LastFailure.IsZero() {
		ts := models.Timestamp(ph.LastFailure)
		ps.LastFailureAt = &ts
	}
	return ps
}
