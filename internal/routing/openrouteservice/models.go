package openrouteservice

// directionsRequest is the body of POST /v2/directions/{profile}/geojson.
type directionsRequest struct {
	// [lon, lat] pairs, origin first.
	Coordinates [][2]float64 `json:"coordinates"`
	Units       string       `json:"units"`
	Language    string       `json:"language"`
}

// featureCollection is the GeoJSON directions response.
type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   lineString        `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type lineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

type featureProperties struct {
	Summary routeSummary `json:"summary"`
}

type routeSummary struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
}

// errorResponse is the ORS error envelope.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ORS routing error codes.
const (
	errorCodeRouteNotFound = 2009
	errorCodePointNotFound = 2010
)
