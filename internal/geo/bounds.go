package geo

import "math"

// boxMarginDeg pads the box so points sitting on the radius survive the
// storage pre-filter despite float error.
const boxMarginDeg = 1e-6

// BoundingBox is a latitude/longitude rectangle in decimal degrees.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether p falls inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// BoundingBoxAround returns a box holding every point within radiusKm of
// origin. Near the poles or across the antimeridian the longitude range
// is widened to [-180, 180]; the box is only a pre-filter and callers must
// still apply WithinRadius.
func BoundingBoxAround(origin Point, radiusKm float64) BoundingBox {
	full := BoundingBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	angular := radiusKm / EarthRadiusKm
	if radiusKm < 0 || angular >= math.Pi {
		return full
	}

	dLat := angular * 180 / math.Pi
	box := BoundingBox{
		MinLat: origin.Lat - dLat - boxMarginDeg,
		MaxLat: origin.Lat + dLat + boxMarginDeg,
		MinLon: -180,
		MaxLon: 180,
	}
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		return box
	}

	ratio := math.Sin(angular) / math.Cos(toRadians(origin.Lat))
	if ratio >= 1 {
		return box
	}
	dLon := math.Asin(ratio) * 180 / math.Pi
	minLon := origin.Lon - dLon - boxMarginDeg
	maxLon := origin.Lon + dLon + boxMarginDeg
	if minLon < -180 || maxLon > 180 {
		return box
	}
	box.MinLon = minLon
	box.MaxLon = maxLon
	return box
}
