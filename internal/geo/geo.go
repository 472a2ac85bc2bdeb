// Package geo holds the great-circle distance helpers used for proximity
// filtering and nearest-first ranking of places.
package geo

import (
	"math"
	"slices"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371

// Point is a WGS 84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceKm returns the haversine distance in kilometers between two
// coordinates. Inputs are not range checked.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	dlat := lat2Rad - lat1Rad
	dlon := toRadians(lon2) - toRadians(lon1)

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	// Rounding can push a a hair past 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance is DistanceKm over points.
func Distance(a, b Point) float64 {
	return DistanceKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

// WithinRadius reports whether p lies at most radiusKm from origin.
func WithinRadius(origin, p Point, radiusKm float64) bool {
	return Distance(origin, p) <= radiusKm
}

// Ranked pairs an item with its full precision distance from an origin.
type Ranked[T any] struct {
	Item       T
	DistanceKm float64
}

// RankByDistance orders items nearest first. Items at equal distance keep
// their input order.
func RankByDistance[T any](origin Point, items []T, coord func(T) Point) []Ranked[T] {
	ranked := measure(origin, items, coord)
	slices.SortStableFunc(ranked, func(a, b Ranked[T]) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

// FilterWithinRadius keeps the items within radiusKm of origin, in input order.
func FilterWithinRadius[T any](origin Point, items []T, coord func(T) Point, radiusKm float64) []Ranked[T] {
	out := make([]Ranked[T], 0, len(items))
	for _, r := range measure(origin, items, coord) {
		if r.DistanceKm <= radiusKm {
			out = append(out, r)
		}
	}
	return out
}

func measure[T any](origin Point, items []T, coord func(T) Point) []Ranked[T] {
	out := make([]Ranked[T], len(items))
	for i, item := range items {
		out[i] = Ranked[T]{Item: item, DistanceKm: Distance(origin, coord(item))}
	}
	return out
}

// RoundKm rounds a distance to two decimals for display.
func RoundKm(d float64) float64 {
	return math.Round(d*100) / 100
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
