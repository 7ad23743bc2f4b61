package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kkokki/kkokki/internal/alert"
	"github.com/kkokki/kkokki/internal/deadline"
	"github.com/kkokki/kkokki/internal/location"
	"github.com/kkokki/kkokki/internal/routing"
	"github.com/kkokki/kkokki/internal/weather"
)

// EndpointResolver turns a trip endpoint into coordinates.
type EndpointResolver interface {
	ResolveEndpoint(ctx context.Context, e location.Endpoint) (location.Location, error)
}

// RouteCalculator computes a travel estimate.
type RouteCalculator interface {
	Calculate(ctx context.Context, req routing.Request) (*routing.Estimate, error)
}

// WeatherEstimator returns the weather delay at a point.
type WeatherEstimator interface {
	TravelImpact(ctx context.Context, lat, lon float64) weather.Impact
}

// Config holds configuration for the supervisor.
type Config struct {
	Locations  EndpointResolver
	Routes     RouteCalculator
	Dispatcher *alert.Dispatcher
	// Weather is optional; sessions asking for weather adjustment get none
	// when it is nil.
	Weather WeatherEstimator
	Logger  zerolog.Logger

	// Now returns the current time (optional, defaults to time.Now).
	Now func() time.Time

	// PollInterval is the time between polls (default: 60s).
	PollInterval time.Duration

	// StopTimeout bounds how long Stop waits for the loop (default: 2s).
	StopTimeout time.Duration

	// LogCapacity is the session log size (default: 50).
	LogCapacity int

	// StatusLogLimit is how many log lines Status returns (default: 10).
	StatusLogLimit int

	// OnLog is called with every stored log line (optional).
	OnLog func(line string)
}

// Supervisor owns at most one monitoring session at a time.
type Supervisor struct {
	locations  EndpointResolver
	routes     RouteCalculator
	dispatcher *alert.Dispatcher
	weather    WeatherEstimator
	logger     zerolog.Logger
	now        func() time.Time
	metrics    *metrics

	pollInterval   time.Duration
	stopTimeout    time.Duration
	statusLogLimit int
	onLog          func(string)

	logs *LogBuffer

	// mu serializes Start and Stop.
	mu      sync.Mutex
	session *session

	// writeMu serializes view replacement; readers only Load.
	writeMu sync.Mutex
	view    atomic.Pointer[view]
}

type view struct {
	running   bool
	state     State
	sessionID string
	start     string
	end       string
	mode      routing.Mode
	latest    *LatestResult
}

type session struct {
	id       string
	req      Request
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopping atomic.Bool
	latch    alert.Latch

	// Only touched by the loop goroutine.
	earlyWarned bool
}

func (s *session) active() bool {
	if s == nil || s.stopping.Load() {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(cfg Config) (*Supervisor, error) {
	if cfg.Locations == nil || cfg.Routes == nil {
		return nil, errors.New("monitor: locations and routes are required")
	}

	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating monitor metrics: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 60 * time.Second
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 2 * time.Second
	}
	statusLogLimit := cfg.StatusLogLimit
	if statusLogLimit <= 0 {
		statusLogLimit = 10
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = alert.NewDispatcher(alert.DispatcherConfig{Logger: cfg.Logger})
	}

	s := &Supervisor{
		locations:      cfg.Locations,
		routes:         cfg.Routes,
		dispatcher:     dispatcher,
		weather:        cfg.Weather,
		logger:         cfg.Logger.With().Str("component", "session").Logger(),
		now:            now,
		metrics:        m,
		pollInterval:   pollInterval,
		stopTimeout:    stopTimeout,
		statusLogLimit: statusLogLimit,
		onLog:          cfg.OnLog,
		logs:           NewLogBuffer(cfg.LogCapacity, now),
	}
	s.view.Store(&view{state: StateIdle})
	return s, nil
}

// Start begins a session. It returns false without error when a session is
// already running; the running session is left untouched.
func (s *Supervisor) Start(req Request) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, err
	}
	req.Mode, _ = routing.ParseMode(string(req.Mode))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.active() {
		s.log("Already running.")
		return false, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:     uuid.NewString(),
		req:    req,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.session = sess

	s.replace(func(v *view) {
		*v = view{
			running:   true,
			state:     StateResolving,
			sessionID: sess.id,
			start:     req.Start.String(),
			end:       req.End.String(),
			mode:      req.Mode,
		}
	})
	s.log(fmt.Sprintf("Tmap: Route set [%s]", req.Mode.Label()))
	s.logger.Info().
		Str("session_id", sess.id).
		Str("mode", string(req.Mode)).
		Str("arrival", req.Arrival.String()).
		Msg("monitoring session started")

	go s.run(sess)
	return true, nil
}

// Stop cancels the running session and waits briefly for the loop to exit.
// Calling it with no running session only logs a notice.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session
	if !sess.active() {
		s.log("No active monitoring.")
		return
	}

	sess.stopping.Store(true)
	sess.cancel()
	s.replace(func(v *view) {
		v.running = false
		v.state = StateStopped
	})

	timer := time.NewTimer(s.stopTimeout)
	defer timer.Stop()
	select {
	case <-sess.done:
	case <-timer.C:
		s.logger.Warn().
			Str("session_id", sess.id).
			Dur("timeout", s.stopTimeout).
			Msg("monitoring loop did not exit before stop timeout")
	}

	s.log("Kkokki: Monitoring stopped.")
	s.replace(func(v *view) { v.state = StateIdle })
	s.logger.Info().Str("session_id", sess.id).Msg("monitoring session stopped")
}

// Status returns the current snapshot without waiting on the loop.
func (s *Supervisor) Status() Snapshot {
	v := s.view.Load()
	return Snapshot{
		Running:   v.running,
		State:     v.state,
		SessionID: v.sessionID,
		Start:     v.start,
		End:       v.end,
		Mode:      v.mode,
		Logs:      s.logs.Recent(s.statusLogLimit),
		Latest:    v.latest,
	}
}

// Logs returns the full session log, oldest first.
func (s *Supervisor) Logs() []string {
	return s.logs.Recent(0)
}

func (s *Supervisor) run(sess *session) {
	defer close(sess.done)
	defer func() {
		if r := recover(); r != nil {
			fe := &FatalError{Value: r, Stack: debug.Stack()}
			s.logger.Error().
				Str("session_id", sess.id).
				Str("stack", string(fe.Stack)).
				Err(fe).
				Msg("monitoring loop panicked")
			s.log(fmt.Sprintf("Fatal error: %v", r))
			s.replaceFor(sess, func(v *view) {
				v.running = false
				v.state = StateFatalError
			})
		}
	}()

	ctx := sess.ctx
	start, end, err := s.resolve(ctx, sess)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Err(err).Str("session_id", sess.id).Msg("location resolution failed")
		s.log(fmt.Sprintf("Location error: %v", err))
		s.replaceFor(sess, func(v *view) {
			v.running = false
			v.state = StateLocationError
		})
		return
	}

	s.log(fmt.Sprintf("Tmap: %s -> %s", start.Name, end.Name))
	s.replaceFor(sess, func(v *view) {
		v.state = StatePolling
		v.start = start.Name
		v.end = end.Name
	})

	for {
		s.poll(ctx, sess, start, end)

		timer := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Supervisor) resolve(ctx context.Context, sess *session) (location.Location, location.Location, error) {
	s.log("Tmap: Resolving locations...")
	start, err := s.locations.ResolveEndpoint(ctx, sess.req.Start)
	if err != nil {
		return location.Location{}, location.Location{}, fmt.Errorf("start %q: %w", sess.req.Start.String(), err)
	}
	end, err := s.locations.ResolveEndpoint(ctx, sess.req.End)
	if err != nil {
		return location.Location{}, location.Location{}, fmt.Errorf("end %q: %w", sess.req.End.String(), err)
	}
	return named(start, "Start"), named(end, "End"), nil
}

// named labels an unnamed location so logs and alerts never show a blank.
func named(loc location.Location, label string) location.Location {
	if strings.TrimSpace(loc.Name) == "" {
		loc.Name = label
	}
	return loc
}

func (s *Supervisor) poll(ctx context.Context, sess *session, start, end location.Location) {
	req := sess.req
	attrs := metric.WithAttributes(attribute.String("mode", string(req.Mode)))
	s.metrics.polls.Add(ctx, 1, attrs)

	est, err := s.routes.Calculate(ctx, routing.Request{
		Origin:      start,
		Destination: end,
		Mode:        req.Mode,
		DepartAt:    s.now(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.metrics.pollErrors.Add(ctx, 1, attrs)
		s.logger.Warn().Err(err).
			Str("session_id", sess.id).
			Str("mode", string(req.Mode)).
			Str("start", start.Name).
			Str("end", end.Name).
			Msg("route poll failed")
		s.log(fmt.Sprintf("Monitor error: %v", err))
		return
	}

	var impact weather.Impact
	if req.Settings.WeatherAdjustment && s.weather != nil {
		impact = s.weather.TravelImpact(ctx, start.Lat, start.Lon)
	}
	travel := est.Minutes + impact.ExtraMinutes
	s.metrics.travelMinutes.Record(ctx, int64(travel), attrs)

	now := s.now()
	res := deadline.Calculate(deadline.Input{
		Arrival:             req.Arrival,
		Now:                 now,
		TravelMinutes:       travel,
		PrepMinutes:         req.Settings.PrepMinutes,
		BufferMinutes:       req.Settings.BufferMinutes,
		EarlyWarningEnabled: req.Settings.EarlyWarningEnabled,
		EarlyWarningMinutes: req.Settings.EarlyWarningMinutes,
	})

	latest := &LatestResult{
		Timestamp:             now,
		Mode:                  req.Mode,
		TravelMinutes:         travel,
		RouteMinutes:          est.Minutes,
		WeatherMinutes:        impact.ExtraMinutes,
		WeatherSummary:        impact.Summary,
		DistanceKM:            est.DistanceKM,
		WakeUpTime:            res.Wake,
		LeaveTime:             res.Departure,
		ArrivalTime:           res.Target,
		PrepMinutes:           req.Settings.PrepMinutes,
		BufferMinutes:         req.Settings.BufferMinutes,
		IsLate:                res.IsLate,
		DelayMinutes:          res.DelayMinutes,
		SecondsUntilDeparture: res.SecondsUntilDeparture,
		SecondsUntilWake:      res.SecondsUntilWake,
		EarlyWarningActive:    res.EarlyWarningActive,
		Transit:               est.Transit,
	}
	state := StatePolling
	if res.IsLate {
		state = StateLateRisk
	}
	if !s.replaceFor(sess, func(v *view) {
		v.state = state
		v.latest = latest
	}) {
		return
	}

	s.logger.Debug().
		Str("session_id", sess.id).
		Int("travel_minutes", travel).
		Int("seconds_until_wake", res.RawSecondsUntilWake).
		Msg("poll completed")

	if res.IsLate {
		s.log(fmt.Sprintf("Tmap: LATE RISK! %dmin overdue", res.DelayMinutes))
		s.alert(ctx, sess, start, end, res)
		return
	}
	s.log(fmt.Sprintf("Tmap: %dmin travel | Wake %s", travel, res.Wake.Format("15:04")))

	if res.EarlyWarningActive && !sess.earlyWarned {
		sess.earlyWarned = true
		s.log(fmt.Sprintf("Early warning: wake up in %d min", int(math.Ceil(float64(res.SecondsUntilWake)/60))))
	}
}

func (s *Supervisor) alert(ctx context.Context, sess *session, start, end location.Location, res deadline.Result) {
	out := s.dispatcher.MaybeAlert(ctx, &sess.latch, sess.req.Settings.UrgentAlertEnabled, alert.Context{
		Origin:       start.Name,
		Destination:  end.Name,
		ArrivalTime:  sess.req.Arrival.String(),
		DelayMinutes: res.DelayMinutes,
	})
	if !out.Attempted {
		return
	}
	s.metrics.alerts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("delivered", out.Delivered)))

	switch {
	case errors.Is(out.Err, alert.ErrNotConfigured):
		s.log("Slack Webhook URL not set.")
	case out.Delivered:
		s.log("Slack: Message sent!")
		s.log("Kkokki: Late alert sent!")
	default:
		s.log(fmt.Sprintf("Slack send failed: %v", out.Err))
	}
}

// replace swaps in a modified copy of the current view.
func (s *Supervisor) replace(fn func(v *view)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	next := *s.view.Load()
	fn(&next)
	s.view.Store(&next)
}

// replaceFor is replace for writes coming from a session's loop. Writes from
// a cancelled or superseded session are dropped.
func (s *Supervisor) replaceFor(sess *session, fn func(v *view)) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	cur := s.view.Load()
	if sess.ctx.Err() != nil || cur.sessionID != sess.id {
		return false
	}
	next := *cur
	fn(&next)
	s.view.Store(&next)
	return true
}

func (s *Supervisor) log(msg string) {
	line := s.logs.Add(msg)
	s.logger.Info().Msg(msg)
	if s.onLog != nil {
		s.onLog(line)
	}
}
