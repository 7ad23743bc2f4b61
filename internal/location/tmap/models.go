package tmap

import "strings"

// TMAP location API response types.

type poiResponse struct {
	SearchPoiInfo struct {
		TotalCount string `json:"totalCount"`
		Count      string `json:"count"`
		Pois       struct {
			Poi []poi `json:"poi"`
		} `json:"pois"`
	} `json:"searchPoiInfo"`
}

type poi struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FrontLat       string `json:"frontLat"`
	FrontLon       string `json:"frontLon"`
	NoorLat        string `json:"noorLat"`
	NoorLon        string `json:"noorLon"`
	UpperAddrName  string `json:"upperAddrName"`
	MiddleAddrName string `json:"middleAddrName"`
	LowerAddrName  string `json:"lowerAddrName"`
	DetailAddrName string `json:"detailAddrName"`
}

func (p poi) address() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.UpperAddrName, p.MiddleAddrName, p.LowerAddrName, p.DetailAddrName} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

type reverseResponse struct {
	AddressInfo struct {
		FullAddress  string `json:"fullAddress"`
		AddressType  string `json:"addressType"`
		BuildingName string `json:"buildingName"`
	} `json:"addressInfo"`
}
