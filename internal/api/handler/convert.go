package handler

import (
	"github.com/kkokki/kkokki/internal/api/models"
	"github.com/kkokki/kkokki/internal/location"
	"github.com/kkokki/kkokki/internal/monitor"
	"github.com/kkokki/kkokki/internal/routing"
)

func toEndpoint(in *models.EndpointInput) location.Endpoint {
	if in == nil {
		return location.Endpoint{}
	}
	if in.Place != nil {
		return location.ResolvedEndpoint(location.Location{Name: in.Place.Name, Lat: in.Place.Lat, Lon: in.Place.Lon})
	}
	return location.KeywordEndpoint(in.Keyword)
}

func toPlace(l location.Location) models.Place {
	return models.Place{Name: l.Name, Lat: l.Lat, Lon: l.Lon}
}

func toTransitInfo(t *routing.TransitDetails) *models.TransitInfo {
	if t == nil {
		return nil
	}
	info := &models.TransitInfo{
		Fare:          t.Fare,
		TransferCount: t.TransferCount,
		WalkMinutes:   t.WalkMinutes,
		PathType:      t.PathType,
		PathLabel:     t.PathLabel,
	}
	for _, a := range t.Alternatives {
		info.Alternatives = append(info.Alternatives, models.TransitAlternative{
			Index:       a.Index,
			Minutes:     a.Minutes,
			Transfers:   a.Transfers,
			Fare:        a.Fare,
			Type:        a.Type,
			WalkMinutes: a.WalkMinutes,
		})
	}
	return info
}

func toMonitorStatus(s monitor.Snapshot) models.MonitorStatus {
	logs := s.Logs
	if logs == nil {
		logs = []string{}
	}
	return models.MonitorStatus{
		Running:      s.Running,
		State:        string(s.State),
		SessionID:    s.SessionID,
		Start:        s.Start,
		End:          s.End,
		Transport:    string(s.Mode),
		Logs:         logs,
		LatestResult: toLatestResult(s.Latest),
	}
}

func toLatestResult(r *monitor.LatestResult) *models.LatestResult {
	if r == nil {
		return nil
	}
	return &models.LatestResult{
		Timestamp:             r.Timestamp.Format("15:04:05"),
		Transport:             string(r.Mode),
		TravelMinutes:         r.TravelMinutes,
		RouteMinutes:          r.RouteMinutes,
		WeatherMinutes:        r.WeatherMinutes,
		WeatherSummary:        r.WeatherSummary,
		DistanceKM:            r.DistanceKM,
		WakeUpTime:            r.WakeUpTime.Format("15:04"),
		LeaveTime:             r.LeaveTime.Format("15:04"),
		ArrivalTime:           r.ArrivalTime.Format("15:04"),
		PrepTime:              r.PrepMinutes,
		BufferTime:            r.BufferMinutes,
		IsLate:                r.IsLate,
		Delay:                 r.DelayMinutes,
		SecondsUntilDeparture: r.SecondsUntilDeparture,
		SecondsUntilWake:      r.SecondsUntilWake,
		EarlyWarningActive:    r.EarlyWarningActive,
		Transit:               toTransitInfo(r.Transit),
	}
}
