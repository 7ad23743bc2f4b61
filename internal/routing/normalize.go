package routing

import (
	"math"
	"sort"
)

// MaxAlternatives is how many ranked transit itineraries are surfaced.
const MaxAlternatives = 5

// MinutesFromSeconds rounds a duration in seconds to whole minutes, halves
// to even.
func MinutesFromSeconds(seconds float64) int {
	return int(math.RoundToEven(seconds / 60))
}

// KilometersFromMeters converts meters to kilometers rounded to one decimal.
func KilometersFromMeters(meters float64) float64 {
	return math.Round(meters/100) / 10
}

// PathTypeLabel maps a transit path type code to its display label.
func PathTypeLabel(code int) string {
	switch code {
	case 1:
		return "Subway"
	case 2:
		return "Bus"
	case 3:
		return "Bus+Subway"
	default:
		return "Transit"
	}
}

// Itinerary is one provider-neutral transit itinerary.
type Itinerary struct {
	TotalSeconds   *float64 // nil when the provider omitted it
	DistanceMeters float64
	WalkSeconds    float64
	Transfers      int
	Fare           int
	PathType       int
}

// RankItineraries sorts itineraries by total time ascending. Ties keep their
// input order and itineraries without a total time go last.
func RankItineraries(its []Itinerary) []Itinerary {
	ranked := make([]Itinerary, len(its))
	copy(ranked, its)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].TotalSeconds, ranked[j].TotalSeconds
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return ranked
}

// TransitEstimate builds the primary estimate from the fastest itinerary and
// up to MaxAlternatives ranked alternatives, the fastest included.
func TransitEstimate(its []Itinerary) (*Estimate, error) {
	if len(its) == 0 {
		return nil, ErrNoRouteFound
	}

	ranked := RankItineraries(its)
	best := ranked[0]

	alts := make([]Alternative, 0, MaxAlternatives)
	for i, it := range ranked {
		if i == MaxAlternatives {
			break
		}
		alts = append(alts, Alternative{
			Index:       i + 1,
			Minutes:     MinutesFromSeconds(it.totalSeconds()),
			Transfers:   it.Transfers,
			Fare:        it.Fare,
			Type:        PathTypeLabel(it.PathType),
			WalkMinutes: MinutesFromSeconds(it.WalkSeconds),
		})
	}

	total := best.totalSeconds()
	return &Estimate{
		Mode:            ModeTransit,
		Minutes:         MinutesFromSeconds(total),
		DistanceKM:      KilometersFromMeters(best.DistanceMeters),
		DurationSeconds: int(total),
		DistanceMeters:  int(best.DistanceMeters),
		Transit: &TransitDetails{
			Fare:          best.Fare,
			TransferCount: best.Transfers,
			WalkMinutes:   MinutesFromSeconds(best.WalkSeconds),
			PathType:      best.PathType,
			PathLabel:     PathTypeLabel(best.PathType),
			Alternatives:  alts,
		},
	}, nil
}

func (it Itinerary) totalSeconds() float64 {
	if it.TotalSeconds == nil {
		return 0
	}
	return *it.TotalSeconds
}
