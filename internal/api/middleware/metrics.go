package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/kkokki/kkokki/internal/api/middleware"

// Metrics records per-route request latency and counts problem responses.
type Metrics struct {
	duration metric.Float64Histogram
	problems metric.Int64Counter
}

// NewMetrics creates the instruments on mp, or on the global provider when
// mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	duration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("request duration histogram: %w", err)
	}
	problems, err := meter.Int64Counter(
		"kkokki.api.problems",
		metric.WithDescription("Responses with a 4xx or 5xx status"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, fmt.Errorf("problem counter: %w", err)
	}
	return &Metrics{duration: duration, problems: problems}, nil
}

// Middleware records each request once the handler returns. The route
// label is the chi pattern, so path parameters do not explode cardinality.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			route := attribute.String("http.route", routePattern(r))
			method := attribute.String("http.method", r.Method)
			status := attribute.String("http.status_code", strconv.Itoa(rec.statusCode))

			m.duration.Record(r.Context(), time.Since(start).Seconds(), metric.WithAttributes(method, route, status))
			if rec.statusCode >= http.StatusBadRequest {
				m.problems.Add(r.Context(), 1, metric.WithAttributes(route, status))
			}
		})
	}
}
