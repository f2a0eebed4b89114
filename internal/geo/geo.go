// Package geo holds the geographic primitives shared by the graph builder
// and its callers: named points and great-circle distances.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Point is a named location in WGS84 degrees.
type Point struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Orb returns the point in orb's [lon, lat] order.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Valid reports whether the coordinates are finite and inside the WGS84 range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func (p Point) String() string {
	return fmt.Sprintf("%s (%.6f, %.6f)", p.Name, p.Lat, p.Lon)
}

// DistanceKm returns the haversine great-circle distance between a and b in
// kilometers. The result does not depend on argument order.
func DistanceKm(a, b Point) float64 {
	return geo.DistanceHaversine(a.Orb(), b.Orb()) / 1000
}
