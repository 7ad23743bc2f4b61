package models

// RouteComputeRequest asks for a one-off travel estimate.
type RouteComputeRequest struct {
	Start     *EndpointInput `json:"start"`
	End       *EndpointInput `json:"end"`
	Transport string         `json:"transport,omitempty"`
}

// RouteComputeResponse wraps the computed route.
type RouteComputeResponse struct {
	Route       Route     `json:"route"`
	GeneratedAt Timestamp `json:"generatedAt"`
}

// Route is a normalized travel estimate between two resolved places.
type Route struct {
	Transport       string       `json:"transport"`
	Label           string       `json:"label"`
	Minutes         int          `json:"minutes"`
	DistanceKM      float64      `json:"distanceKm"`
	DurationSeconds int          `json:"durationSeconds"`
	DistanceMeters  int          `json:"distanceMeters"`
	Origin          Place        `json:"origin"`
	Destination     Place        `json:"destination"`
	Polyline        string       `json:"polyline,omitempty"`
	Provider        string       `json:"provider"`
	Transit         *TransitInfo `json:"transit,omitempty"`
}

// TransitInfo describes the chosen transit itinerary.
type TransitInfo struct {
	Fare          int                  `json:"fare"`
	TransferCount int                  `json:"transferCount"`
	WalkMinutes   int                  `json:"walkMinutes"`
	PathType      int                  `json:"pathType"`
	PathLabel     string               `json:"pathLabel"`
	Alternatives  []TransitAlternative `json:"alternatives,omitempty"`
}

// TransitAlternative is one ranked itinerary; index 1 is the fastest.
type TransitAlternative struct {
	Index       int    `json:"index"`
	Minutes     int    `json:"minutes"`
	Transfers   int    `json:"transfers"`
	Fare        int    `json:"fare"`
	Type        string `json:"type"`
	WalkMinutes int    `json:"walkMinutes"`
}
