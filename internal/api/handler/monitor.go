package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kkokki/kkokki/internal/api/models"
	"github.com/kkokki/kkokki/internal/api/response"
	"github.com/kkokki/kkokki/internal/deadline"
	"github.com/kkokki/kkokki/internal/monitor"
	"github.com/kkokki/kkokki/internal/routing"
)

// Supervisor is the monitoring session owner used by MonitorHandler.
type Supervisor interface {
	Start(req monitor.Request) (bool, error)
	Stop()
	Status() monitor.Snapshot
}

// MonitorHandler handles the session control endpoints.
type MonitorHandler struct {
	supervisor Supervisor
	defaults   monitor.Settings
}

// NewMonitorHandler creates a MonitorHandler. defaults fill settings the
// start request leaves out.
func NewMonitorHandler(supervisor Supervisor, defaults monitor.Settings) *MonitorHandler {
	return &MonitorHandler{supervisor: supervisor, defaults: defaults}
}

// Start handles POST /v1/monitor/start.
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	var input models.MonitorStartRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	req, fieldErrs := h.buildRequest(input)
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid monitoring request", fieldErrs)
		return
	}

	accepted, err := h.supervisor.Start(req)
	if err != nil {
		if errors.Is(err, monitor.ErrInvalidRequest) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		response.InternalError(w, r, "could not start monitoring")
		return
	}

	if !accepted {
		response.Accepted(w, r, models.MonitorStartResponse{Accepted: false, Message: "Already running."})
		return
	}
	response.Accepted(w, r, models.MonitorStartResponse{
		Accepted:  true,
		Message:   "Monitoring started.",
		SessionID: h.supervisor.Status().SessionID,
	})
}

func (h *MonitorHandler) buildRequest(in models.MonitorStartRequest) (monitor.Request, []models.FieldError) {
	var errs []models.FieldError
	req := monitor.Request{
		Start:    toEndpoint(in.Start),
		End:      toEndpoint(in.End),
		Settings: h.defaults,
	}

	if req.Start.IsZero() {
		errs = append(errs, models.FieldError{Field: "start", Message: "required", Code: "REQUIRED"})
	}
	if req.End.IsZero() {
		errs = append(errs, models.FieldError{Field: "end", Message: "required", Code: "REQUIRED"})
	}

	if in.Time == "" {
		errs = append(errs, models.FieldError{Field: "time", Message: "required", Code: "REQUIRED"})
	} else if tod, err := deadline.ParseTimeOfDay(in.Time); err != nil {
		errs = append(errs, models.FieldError{Field: "time", Message: "must be HH:MM", Code: "INVALID_FORMAT"})
	} else {
		req.Arrival = tod
	}

	mode, err := routing.ParseMode(in.Transport)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "transport", Message: "must be car, walk or transit", Code: "INVALID_VALUE"})
	}
	req.Mode = mode

	s := &req.Settings
	setInt := func(field string, src *int, dst *int) {
		if src == nil {
			return
		}
		if *src < 0 {
			errs = append(errs, models.FieldError{Field: field, Message: "must not be negative", Code: "OUT_OF_RANGE"})
			return
		}
		*dst = *src
	}
	setInt("prepTime", in.PrepTime, &s.PrepMinutes)
	setInt("bufferTime", in.BufferTime, &s.BufferMinutes)
	setInt("earlyWarningMinutes", in.EarlyWarningMinutes, &s.EarlyWarningMinutes)
	if in.EarlyWarning != nil {
		s.EarlyWarningEnabled = *in.EarlyWarning
	}
	if in.UrgentAlert != nil {
		s.UrgentAlertEnabled = *in.UrgentAlert
	}
	if in.WeatherAdjustment != nil {
		s.WeatherAdjustment = *in.WeatherAdjustment
	}

	return req, errs
}

// Stop handles POST /v1/monitor/stop. Stopping with no session is not an error.
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.supervisor.Stop()
	response.JSON(w, r, http.StatusOK, models.MonitorStopResponse{Message: "Monitoring stopped."})
}

// Status handles GET /v1/monitor/status.
func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, toMonitorStatus(h.supervisor.Status()))
}
