package monitor

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/kkokki/kkokki/internal/monitor"

type metrics struct {
	polls         metric.Int64Counter
	pollErrors    metric.Int64Counter
	alerts        metric.Int64Counter
	travelMinutes metric.Int64Histogram
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter(meterName)

	polls, err := meter.Int64Counter(
		"monitor.polls",
		metric.WithDescription("Number of route polls made by the monitoring loop"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, err
	}

	pollErrors, err := meter.Int64Counter(
		"monitor.poll_errors",
		metric.WithDescription("Number of route polls that failed"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, err
	}

	alerts, err := meter.Int64Counter(
		"monitor.alerts",
		metric.WithDescription("Number of late alerts attempted"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	travelMinutes, err := meter.Int64Histogram(
		"monitor.travel_minutes",
		metric.WithDescription("Estimated travel time per poll"),
		metric.WithUnit("min"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		polls:         polls,
		pollErrors:    pollErrors,
		alerts:        alerts,
		travelMinutes: travelMinutes,
	}, nil
}
