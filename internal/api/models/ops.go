package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus combines the monitor state with upstream provider health.
type SystemStatus struct {
	Status    HealthStatus     `json:"status"`
	Time      Timestamp        `json:"time"`
	Monitor   MonitorSummary   `json:"monitor"`
	Alerts    AlertsSummary    `json:"alerts"`
	Providers []ProviderStatus `json:"providers"`
}

// MonitorSummary is the monitor part of SystemStatus.
type MonitorSummary struct {
	Running bool   `json:"running"`
	State   string `json:"state"`
}

// AlertsSummary reports which alert paths are configured.
type AlertsSummary struct {
	Notifier  string `json:"notifier"`
	Generator string `json:"generator"`
}

// ProviderStatus is the circuit breaker view of one upstream.
type ProviderStatus struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	TotalRequests       uint64       `json:"totalRequests"`
	TotalFailures       uint64       `json:"totalFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	LastError           string       `json:"lastError,omitempty"`
}
