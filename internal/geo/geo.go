package geo

import (
	"errors"
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000

// Point is a geographic coordinate in decimal degrees, WGS84.
type Point struct {
	Lat float64
	Lng float64
}

// Shape answers containment for one geofence geometry. Implementations are
// pure and safe for concurrent use.
type Shape interface {
	Contains(p Point) bool
}

var (
	ErrMissingRadius = errors.New("circle has no radius")
	ErrBadRing       = errors.New("polygon ring needs at least 3 distinct vertices")
	ErrOutOfRange    = errors.New("coordinate out of range")
)

// ValidPoint reports whether lat/lng are real numbers inside the geographic
// ranges. Callers reject invalid input before any evaluation or write.
func ValidPoint(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Circle is a center point plus a radius in meters.
type Circle struct {
	Center  Point
	RadiusM float64
}

func NewCircle(center Point, radiusM float64) (Circle, error) {
	if !ValidPoint(center.Lat, center.Lng) {
		return Circle{}, fmt.Errorf("%w: center lat=%v lng=%v", ErrOutOfRange, center.Lat, center.Lng)
	}
	if radiusM <= 0 || math.IsNaN(radiusM) {
		return Circle{}, ErrMissingRadius
	}
	return Circle{Center: center, RadiusM: radiusM}, nil
}

// Contains uses great-circle distance, not planar distance. A point exactly
// at radius distance counts as inside (boundary inclusive).
func (c Circle) Contains(p Point) bool {
	return Haversine(c.Center, p) <= c.RadiusM
}

// Polygon is a single closed ring. Holes are unsupported; only the first
// ring of a stored boundary is evaluated.
type Polygon struct {
	ring []Point
}

// NewPolygon builds a polygon from an ordered ring. A duplicate closing
// vertex is tolerated and dropped. Fewer than 3 distinct vertices, or any
// vertex outside the geographic ranges, is an error so that bad shapes are
// rejected or skipped, never evaluated.
func NewPolygon(ring []Point) (Polygon, error) {
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return Polygon{}, ErrBadRing
	}
	for i, v := range ring {
		if !ValidPoint(v.Lat, v.Lng) {
			return Polygon{}, fmt.Errorf("%w: vertex %d lat=%v lng=%v", ErrOutOfRange, i, v.Lat, v.Lng)
		}
	}
	return Polygon{ring: ring}, nil
}

// Contains runs a ray cast along constant latitude. Points exactly on an
// edge are not guaranteed either way; the stored shapes come from map
// tooling where that case does not occur at meaningful precision.
func (pg Polygon) Contains(p Point) bool {
	inside := false
	n := len(pg.ring)
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := pg.ring[i], pg.ring[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			crossLng := (b.Lng-a.Lng)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lng
			if p.Lng < crossLng {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
