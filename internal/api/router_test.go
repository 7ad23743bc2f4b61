package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkokki/kkokki/internal/api"
	"github.com/kkokki/kkokki/internal/api/models"
	"github.com/kkokki/kkokki/internal/location"
	"github.com/kkokki/kkokki/internal/monitor"
	"github.com/kkokki/kkokki/internal/provider/resilience"
	"github.com/kkokki/kkokki/internal/routing"
)

type fakeSupervisor struct {
	running  atomic.Bool
	starts   atomic.Int32
	stops    atomic.Int32
	lastReq  monitor.Request
	snapshot monitor.Snapshot
}

func (f *fakeSupervisor) Start(req monitor.Request) (bool, error) {
	f.starts.Add(1)
	if err := req.Validate(); err != nil {
		return false, err
	}
	if f.running.Load() {
		return false, nil
	}
	f.running.Store(true)
	f.lastReq = req
	return true, nil
}

func (f *fakeSupervisor) Stop() {
	f.stops.Add(1)
	f.running.Store(false)
}

func (f *fakeSupervisor) Status() monitor.Snapshot {
	s := f.snapshot
	s.Running = f.running.Load()
	return s
}

type fakeLocations struct {
	notFound bool
	err      error
}

func (f *fakeLocations) ResolveEndpoint(_ context.Context, e location.Endpoint) (location.Location, error) {
	if f.notFound {
		return location.Location{}, &location.Error{Provider: "fake", Code: "NOT_FOUND", Err: location.ErrNotFound}
	}
	if f.err != nil {
		return location.Location{}, f.err
	}
	if e.Resolved != nil {
		return *e.Resolved, nil
	}
	return location.Location{Name: e.Keyword, Lat: 37.4979, Lon: 127.0276}, nil
}

func (f *fakeLocations) Search(_ context.Context, keyword string) []location.Candidate {
	if strings.TrimSpace(keyword) == "" {
		return []location.Candidate{}
	}
	return []location.Candidate{{Location: location.Location{Name: keyword, Lat: 37.4979, Lon: 127.0276}, Address: "서울 강남구 역삼동"}}
}

func (f *fakeLocations) ReverseGeocode(_ context.Context, lat, lon float64) location.Address {
	return location.FallbackAddress(lat, lon)
}

type fakeRoutes struct {
	err error
}

func (f *fakeRoutes) Calculate(_ context.Context, req routing.Request) (*routing.Estimate, error) {
	if f.err != nil {
		return nil, f.err
	}
	est := &routing.Estimate{
		Mode:            req.Mode,
		Minutes:         31,
		DistanceKM:      11.4,
		DurationSeconds: 1889,
		DistanceMeters:  11437,
		Provider:        "fake",
	}
	if req.Mode == routing.ModeTransit {
		est.Transit = &routing.TransitDetails{Fare: 1500, PathType: 1, PathLabel: "Subway", Alternatives: []routing.Alternative{{Index: 1, Minutes: 31, Type: "Subway"}}}
	} else {
		est.Geometry = [][2]float64{{127.0276, 37.4979}, {127.1112, 37.3947}}
	}
	return est, nil
}

type testServer struct {
	sup       *fakeSupervisor
	locations *fakeLocations
	routes    *fakeRoutes
	registry  *resilience.Registry
	handler   http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		sup:       &fakeSupervisor{snapshot: monitor.Snapshot{State: monitor.StateIdle}},
		locations: &fakeLocations{},
		routes:    &fakeRoutes{},
		registry:  resilience.NewRegistry(),
	}
	ts.handler = api.NewRouter(api.RouterConfig{
		Version:           "test",
		Logger:            zerolog.Nop(),
		Supervisor:        ts.sup,
		SessionDefaults:   monitor.DefaultSettings(),
		Locations:         ts.locations,
		Lookup:            ts.locations,
		Routes:            ts.routes,
		Registry:          ts.registry,
		RequiredProviders: []string{"tmap_routes"},
		NotifierName:      "slack",
	})
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestOpsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/v1/ops/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = ts.do(http.MethodGet, "/v1/ops/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/v1/ops/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.SystemStatus](t, rec)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Equal(t, "IDLE", status.Monitor.State)
	assert.Equal(t, "slack", status.Alerts.Notifier)
	assert.Equal(t, "none", status.Alerts.Generator)
}

func TestOpsStatus_ListsProviders(t *testing.T) {
	ts := newTestServer(t)
	cfg := resilience.DefaultClientConfig("tmap_routes")
	cfg.Registry = ts.registry
	resilience.NewClient(cfg)
	ts.registry.RecordFailure("tmap_routes", errors.New("timeout"))

	status := decode[models.SystemStatus](t, ts.do(http.MethodGet, "/v1/ops/status", ""))
	require.Len(t, status.Providers, 1)
	p := status.Providers[0]
	assert.Equal(t, "tmap_routes", p.Provider)
	assert.Equal(t, models.HealthStatusOK, p.Status)
	assert.Equal(t, "closed", p.CircuitState)
	assert.Equal(t, "timeout", p.LastError)
	assert.NotNil(t, p.LastFailureAt)
	assert.Nil(t, p.LastSuccessAt)
	assert.Equal(t, uint64(1), p.TotalFailures)
}

func TestMonitorStart_Accepted(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/monitor/start", `{"start":"강남역","end":{"name":"Office","lat":37.3947,"lon":127.1112},"time":"09:00","transport":"transit","prepTime":20,"earlyWarning":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode[models.MonitorStartResponse](t, rec)
	assert.True(t, body.Accepted)

	req := ts.sup.lastReq
	assert.Equal(t, "강남역", req.Start.Keyword)
	require.NotNil(t, req.End.Resolved)
	assert.Equal(t, "Office", req.End.Resolved.Name)
	assert.Equal(t, routing.ModeTransit, req.Mode)
	assert.Equal(t, 9, req.Arrival.Hour)
	assert.Equal(t, 20, req.Settings.PrepMinutes)
	assert.Equal(t, 10, req.Settings.BufferMinutes)
	assert.True(t, req.Settings.EarlyWarningEnabled)
	assert.True(t, req.Settings.UrgentAlertEnabled)
	assert.False(t, req.Settings.WeatherAdjustment)
}

func TestMonitorStart_AlreadyRunning(t *testing.T) {
	ts := newTestServer(t)
	ts.sup.running.Store(true)

	rec := ts.do(http.MethodPost, "/v1/monitor/start", `{"start":"A","end":"B","time":"09:00"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode[models.MonitorStartResponse](t, rec)
	assert.False(t, body.Accepted)
	assert.Equal(t, "Already running.", body.Message)
}

func TestMonitorStart_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing start", `{"end":"B","time":"09:00"}`, "start"},
		{"missing time", `{"start":"A","end":"B"}`, "time"},
		{"bad time", `{"start":"A","end":"B","time":"25:00"}`, "time"},
		{"bad transport", `{"start":"A","end":"B","time":"09:00","transport":"bike"}`, "transport"},
		{"negative prep", `{"start":"A","end":"B","time":"09:00","prepTime":-5}`, "prepTime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(http.MethodPost, "/v1/monitor/start", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			p := decode[models.Problem](t, rec)
			fields := make([]string, 0, len(p.Errors))
			for _, e := range p.Errors {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
			assert.Equal(t, int32(0), ts.sup.starts.Load())
		})
	}
}

func TestMonitorStart_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/v1/monitor/start", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonitorStart_WrongContentType(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/monitor/start", strings.NewReader("start=A"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestMonitorStopAndStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.sup.running.Store(true)
	ts.sup.snapshot = monitor.Snapshot{
		State:     monitor.StateLateRisk,
		SessionID: "sess-1",
		Mode:      routing.ModeCar,
		Logs:      []string{"[07:00] Tmap: LATE RISK! 40min overdue"},
		Latest: &monitor.LatestResult{
			Timestamp:     time.Date(2026, 3, 2, 7, 0, 5, 0, time.UTC),
			Mode:          routing.ModeCar,
			TravelMinutes: 30,
			RouteMinutes:  30,
			WakeUpTime:    time.Date(2026, 3, 2, 6, 20, 0, 0, time.UTC),
			LeaveTime:     time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
			ArrivalTime:   time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC),
			PrepMinutes:   30,
			BufferMinutes: 10,
			IsLate:        true,
			DelayMinutes:  40,
		},
	}

	rec := ts.do(http.MethodGet, "/v1/monitor/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.MonitorStatus](t, rec)
	assert.True(t, status.Running)
	assert.Equal(t, "LATE_RISK", status.State)
	require.NotNil(t, status.LatestResult)
	assert.Equal(t, "07:00:05", status.LatestResult.Timestamp)
	assert.Equal(t, "06:20", status.LatestResult.WakeUpTime)
	assert.Equal(t, "07:30", status.LatestResult.ArrivalTime)
	assert.Equal(t, 40, status.LatestResult.Delay)
	assert.Len(t, status.Logs, 1)

	rec = ts.do(http.MethodPost, "/v1/monitor/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Monitoring stopped.", decode[models.MonitorStopResponse](t, rec).Message)
	assert.Equal(t, int32(1), ts.sup.stops.Load())

	// Stopping again is harmless.
	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/v1/monitor/stop", "").Code)
}

func TestMonitorStatus_IdleHasEmptyLogs(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/v1/monitor/status", "")
	assert.Contains(t, rec.Body.String(), `"logs":[]`)
	assert.Contains(t, rec.Body.String(), `"latestResult":null`)
}

func TestComputeRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/routes:compute", `{"start":"강남역","end":"판교역"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[models.RouteComputeResponse](t, rec)
	assert.Equal(t, "car", body.Route.Transport)
	assert.Equal(t, "Driving", body.Route.Label)
	assert.Equal(t, 31, body.Route.Minutes)
	assert.Equal(t, "강남역", body.Route.Origin.Name)
	assert.NotEmpty(t, body.Route.Polyline)
	assert.Nil(t, body.Route.Transit)

	rec = ts.do(http.MethodPost, "/v1/routes:compute", `{"start":"강남역","end":"판교역","transport":"transit"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[models.RouteComputeResponse](t, rec)
	assert.Empty(t, body.Route.Polyline)
	require.NotNil(t, body.Route.Transit)
	assert.Equal(t, "Subway", body.Route.Transit.PathLabel)
}

func TestComputeRoute_Errors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*testServer)
		body   string
		status int
	}{
		{"missing end", func(*testServer) {}, `{"start":"A"}`, http.StatusBadRequest},
		{"location not found", func(ts *testServer) { ts.locations.notFound = true }, `{"start":"A","end":"B"}`, http.StatusNotFound},
		{"location upstream", func(ts *testServer) { ts.locations.err = location.ErrProviderUnavailable }, `{"start":"A","end":"B"}`, http.StatusBadGateway},
		{"route upstream", func(ts *testServer) {
			ts.routes.err = &routing.Error{Provider: "tmap_routes", Mode: routing.ModeCar, Code: "SERVER_500", Message: "raw upstream body", Err: routing.ErrProviderUnavailable}
		}, `{"start":"A","end":"B"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			tt.setup(ts)
			rec := ts.do(http.MethodPost, "/v1/routes:compute", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotContains(t, rec.Body.String(), "raw upstream body")
		})
	}
}

func TestLocationSearch(t *testing.T) {
	ts := newTestServer(t)

	body := decode[models.LocationSearchResponse](t, ts.do(http.MethodGet, "/v1/locations/search?keyword=%EA%B0%95%EB%82%A8%EC%97%AD", ""))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "강남역", body.Results[0].Name)
	assert.Equal(t, "서울 강남구 역삼동", body.Results[0].Address)

	rec := ts.do(http.MethodGet, "/v1/locations/search?keyword=", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestLocationReverse(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/v1/locations/reverse?lat=37.5&lon=127.0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[models.ReverseGeocodeResponse](t, rec)
	assert.Equal(t, location.FallbackName, body.Name)
	assert.Equal(t, "37.500000, 127.000000", body.Address)

	for _, q := range []string{"", "?lat=37.5", "?lat=abc&lon=127", "?lat=91&lon=127"} {
		rec := ts.do(http.MethodGet, "/v1/locations/reverse"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/v1/me", "").Code)
}
