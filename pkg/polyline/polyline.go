// Package polyline encodes route geometry with Google's polyline algorithm
// at five decimal places.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// FromLonLat converts GeoJSON-ordered [lon, lat] pairs, as returned by route
// providers, into coordinates.
func FromLonLat(pairs [][2]float64) []Coordinate {
	if len(pairs) == 0 {
		return nil
	}
	coords := make([]Coordinate, len(pairs))
	for i, p := range pairs {
		coords[i] = Coordinate{Lat: p[1], Lon: p[0]}
	}
	return coords
}

// EncodeLonLat encodes [lon, lat] pairs, dropping consecutive duplicates
// that TMAP emits where LineString features meet.
func EncodeLonLat(pairs [][2]float64) string {
	coords := FromLonLat(pairs)
	out := coords[:0]
	for i, c := range coords {
		if i > 0 && c == coords[i-1] {
			continue
		}
		out = append(out, c)
	}
	return Encode(out)
}

// Decode decodes a polyline string into coordinates.
func Decode(encoded string) []Coordinate {
	if encoded == "" {
		return nil
	}

	var coords []Coordinate
	index, lat, lon := 0, 0, 0
	for index < len(encoded) {
		var d int
		d, index = decodeValue(encoded, index)
		lat += d
		d, index = decodeValue(encoded, index)
		lon += d

		coords = append(coords, Coordinate{
			Lat: float64(lat) / 1e5,
			Lon: float64(lon) / 1e5,
		})
	}
	return coords
}

func decodeValue(encoded string, index int) (int, int) {
	shift, result := 0, 0
	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode encodes coordinates into a polyline string.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(coords)*4)
	prevLat, prevLon := 0, 0
	for _, c := range coords {
		lat := int(math.Round(c.Lat * 1e5))
		lon := int(math.Round(c.Lon * 1e5))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}
	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}
