package tmap

import (
	"encoding/json"
	"fmt"
)

// Request bodies.

type carRequest struct {
	StartX       float64 `json:"startX"`
	StartY       float64 `json:"startY"`
	EndX         float64 `json:"endX"`
	EndY         float64 `json:"endY"`
	ReqCoordType string  `json:"reqCoordType"`
	ResCoordType string  `json:"resCoordType"`
	SearchOption string  `json:"searchOption"`
	TrafficInfo  string  `json:"trafficInfo"`
}

type walkRequest struct {
	StartX       string `json:"startX"`
	StartY       string `json:"startY"`
	EndX         string `json:"endX"`
	EndY         string `json:"endY"`
	ReqCoordType string `json:"reqCoordType"`
	ResCoordType string `json:"resCoordType"`
	StartName    string `json:"startName"`
	EndName      string `json:"endName"`
}

type transitRequest struct {
	StartX     string `json:"startX"`
	StartY     string `json:"startY"`
	EndX       string `json:"endX"`
	EndY       string `json:"endY"`
	Format     string `json:"format"`
	Count      int    `json:"count"`
	SearchDttm string `json:"searchDttm"`
}

// Car and pedestrian responses are GeoJSON feature collections.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   geometry          `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type featureProperties struct {
	TotalTime     *float64 `json:"totalTime"`
	TotalDistance *float64 `json:"totalDistance"`
}

// points decodes the geometry into [lon, lat] pairs.
func (g geometry) points() ([][2]float64, error) {
	switch g.Type {
	case "LineString":
		var coords [][2]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("decoding LineString: %w", err)
		}
		return coords, nil
	case "Point":
		var coord [2]float64
		if err := json.Unmarshal(g.Coordinates, &coord); err != nil {
			return nil, fmt.Errorf("decoding Point: %w", err)
		}
		return [][2]float64{coord}, nil
	default:
		return nil, nil
	}
}

// Transit response.

type transitResponse struct {
	MetaData *struct {
		Plan *struct {
			Itineraries []itinerary `json:"itineraries"`
		} `json:"plan"`
	} `json:"metaData"`
	Result *struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"result"`
}

type itinerary struct {
	TotalTime     *float64 `json:"totalTime"`
	TotalDistance float64  `json:"totalDistance"`
	TotalWalkTime float64  `json:"totalWalkTime"`
	TransferCount int      `json:"transferCount"`
	PathType      int      `json:"pathType"`
	Fare          struct {
		Regular struct {
			TotalFare int `json:"totalFare"`
		} `json:"regular"`
	} `json:"fare"`
}

// TMAP error body: {"error": {"id": "...", "category": "...", "code": "...", "message": "..."}}.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
