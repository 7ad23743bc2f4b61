package models

// MonitorStartRequest starts a monitoring session. Omitted settings take the
// server defaults.
type MonitorStartRequest struct {
	Start               *EndpointInput `json:"start"`
	End                 *EndpointInput `json:"end"`
	Time                string         `json:"time"`
	Transport           string         `json:"transport,omitempty"`
	PrepTime            *int           `json:"prepTime,omitempty"`
	BufferTime          *int           `json:"bufferTime,omitempty"`
	EarlyWarning        *bool          `json:"earlyWarning,omitempty"`
	EarlyWarningMinutes *int           `json:"earlyWarningMinutes,omitempty"`
	UrgentAlert         *bool          `json:"urgentAlert,omitempty"`
	WeatherAdjustment   *bool          `json:"weatherAdjustment,omitempty"`
}

// MonitorStartResponse reports whether the session was started.
type MonitorStartResponse struct {
	Accepted  bool   `json:"accepted"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// MonitorStopResponse acknowledges a stop request.
type MonitorStopResponse struct {
	Message string `json:"message"`
}

// MonitorStatus is the observable session state.
type MonitorStatus struct {
	Running      bool          `json:"running"`
	State        string        `json:"state"`
	SessionID    string        `json:"sessionId,omitempty"`
	Start        string        `json:"start,omitempty"`
	End          string        `json:"end,omitempty"`
	Transport    string        `json:"transport,omitempty"`
	Logs         []string      `json:"logs"`
	LatestResult *LatestResult `json:"latestResult"`
}

// LatestResult is the outcome of the most recent poll. Clock fields are
// local wall times: timestamp as HH:MM:SS, the rest as HH:MM.
type LatestResult struct {
	Timestamp             string       `json:"timestamp"`
	Transport             string       `json:"transport"`
	TravelMinutes         int          `json:"travelMinutes"`
	RouteMinutes          int          `json:"routeMinutes"`
	WeatherMinutes        int          `json:"weatherMinutes"`
	WeatherSummary        string       `json:"weatherSummary,omitempty"`
	DistanceKM            float64      `json:"distanceKm"`
	WakeUpTime            string       `json:"wakeUpTime"`
	LeaveTime             string       `json:"leaveTime"`
	ArrivalTime           string       `json:"arrivalTime"`
	PrepTime              int          `json:"prepTime"`
	BufferTime            int          `json:"bufferTime"`
	IsLate                bool         `json:"isLate"`
	Delay                 int          `json:"delay"`
	SecondsUntilDeparture int          `json:"secondsUntilDeparture"`
	SecondsUntilWake      int          `json:"secondsUntilWake"`
	EarlyWarningActive    bool         `json:"earlyWarningActive"`
	Transit               *TransitInfo `json:"transit,omitempty"`
}
