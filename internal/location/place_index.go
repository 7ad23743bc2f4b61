package location

import (
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"
)

const (
	indexDimensions  = 2
	indexMinChildren = 25
	indexMaxChildren = 50
	pointTolerance   = 1e-6
	earthRadiusM     = 6371000.0
)

// Place is a location with a known address.
type Place struct {
	Location
	Address string
}

type indexedPlace struct {
	place Place
	rect  *rtreego.Rect
}

func (p *indexedPlace) Bounds() *rtreego.Rect {
	return p.rect
}

// PlaceIndex is an in-memory R-tree of places seen during this process.
// It lets reverse geocoding answer from memory for points near a known place.
type PlaceIndex struct {
	mu    sync.RWMutex
	tree  *rtreego.Rtree
	count int
}

// NewPlaceIndex creates an empty index.
func NewPlaceIndex() *PlaceIndex {
	return &PlaceIndex{
		tree: rtreego.NewTree(indexDimensions, indexMinChildren, indexMaxChildren),
	}
}

// Add indexes a place. Places with invalid coordinates are ignored.
func (x *PlaceIndex) Add(p Place) {
	if p.Validate() != nil {
		return
	}
	item := &indexedPlace{
		place: p,
		rect:  rtreego.Point{p.Lat, p.Lon}.ToRect(pointTolerance),
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.tree.Insert(item)
	x.count++
}

// Nearest returns the closest place within radiusMeters of the point.
func (x *PlaceIndex) Nearest(lat, lon, radiusMeters float64) (Place, bool) {
	deg := (radiusMeters / earthRadiusM) * (180 / math.Pi)
	// Longitude degrees shrink with latitude; widen the box accordingly.
	lonDeg := deg / math.Max(math.Cos(lat*math.Pi/180), 0.01)

	bounds, err := rtreego.NewRect(
		rtreego.Point{lat - deg, lon - lonDeg},
		[]float64{2 * deg, 2 * lonDeg},
	)
	if err != nil {
		return Place{}, false
	}

	x.mu.RLock()
	results := x.tree.SearchIntersect(bounds)
	x.mu.RUnlock()

	best := Place{}
	bestDist := math.Inf(1)
	for _, r := range results {
		item, ok := r.(*indexedPlace)
		if !ok {
			continue
		}
		d := haversineMeters(lat, lon, item.place.Lat, item.place.Lon)
		if d <= radiusMeters && d < bestDist {
			best, bestDist = item.place, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

// Size returns the number of indexed places.
func (x *PlaceIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.count
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
