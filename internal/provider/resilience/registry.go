package resilience

import (
	"slices"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Level is the operator-facing summary of an upstream's breaker.
type Level string

const (
	LevelOK       Level = "OK"
	LevelDegraded Level = "DEGRADED"
	LevelDown     Level = "DOWN"
)

// Health is a point-in-time view of one upstream.
type Health struct {
	Name   string
	State  gobreaker.State
	Counts gobreaker.Counts

	// Requests and Failures are lifetime totals. Breaker counts reset on
	// every state change, these do not.
	Requests uint64
	Failures uint64

	// LastSuccess and LastFailure are zero until the first such outcome.
	LastSuccess time.Time
	LastFailure time.Time
	LastError   string
}

// Level maps the breaker state: open is down, half-open is degraded.
func (h Health) Level() Level {
	switch h.State {
	case gobreaker.StateOpen:
		return LevelDown
	case gobreaker.StateHalfOpen:
		return LevelDegraded
	default:
		return LevelOK
	}
}

// Registry collects the resilient clients of a process so readiness and
// status endpoints can report on them.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	client      *Client
	requests    uint64
	failures    uint64
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry), now: time.Now}
}

// Register adds client under name, replacing any earlier client and its
// history.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{client: client}
}

// RecordSuccess notes a successful request. Unknown names are ignored.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.requests++
		e.lastSuccess = r.now()
	}
}

// RecordFailure notes a failed request. Unknown names are ignored.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.requests++
		e.failures++
		e.lastFailure = r.now()
		if err != nil {
			e.lastError = err.Error()
		}
	}
}

// Lookup returns the health of one upstream.
func (r *Registry) Lookup(name string) (Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Health{}, false
	}
	return e.health(name), true
}

// Snapshot returns the health of every upstream, ordered by name.
func (r *Registry) Snapshot() []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Health, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, e.health(name))
	}
	slices.SortFunc(out, func(a, b Health) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Names returns the registered upstream names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Down returns those of names whose breaker is open, in the given order.
// Names that were never registered are not reported.
func (r *Registry) Down(names ...string) []string {
	var down []string
	for _, name := range names {
		if h, ok := r.Lookup(name); ok && h.Level() == LevelDown {
			down = append(down, name)
		}
	}
	return down
}

func (e *entry) health(name string) Health {
	return Health{
		Name:        name,
		State:       e.client.CircuitBreakerState(),
		Counts:      e.client.CircuitBreakerCounts(),
		Requests:    e.requests,
		Failures:    e.failures,
		LastSuccess: e.lastSuccess,
		LastFailure: e.lastFailure,
		LastError:   e.lastError,
	}
}
