package models

// LocationSearchResponse lists keyword search candidates.
type LocationSearchResponse struct {
	Results []LocationCandidate `json:"results"`
}

// LocationCandidate is one search result.
type LocationCandidate struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address"`
}

// ReverseGeocodeResponse names a coordinate.
type ReverseGeocodeResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}
