package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// windowPad widens search windows slightly so rounding in the distance
// formula can never push a qualifying neighbor outside them.
const (
	windowPadRel = 1e-9
	windowPadDeg = 1e-9
)

// SearchWindows returns lon/lat bounds that together contain every valid
// point whose haversine distance to center is below km. The bounds may
// contain points that are farther away; callers still check the exact
// distance.
//
// A window that crosses the antimeridian is split in two. A window that
// reaches a pole covers every longitude.
func SearchWindows(center Point, km float64) []orb.Bound {
	world := orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}
	if !(km > 0) {
		return nil
	}

	// Angular radius on the sphere used by the distance formula.
	delta := km * 1000 / orb.EarthRadius
	if delta >= math.Pi {
		return []orb.Bound{world}
	}
	delta *= 1 + windowPadRel
	deltaDeg := rad2deg(delta) + windowPadDeg

	minLat := center.Lat - deltaDeg
	maxLat := center.Lat + deltaDeg
	if minLat <= -90 || maxLat >= 90 {
		return []orb.Bound{{
			Min: orb.Point{-180, math.Max(minLat, -90)},
			Max: orb.Point{180, math.Min(maxLat, 90)},
		}}
	}

	// Every point in the window has |lat| <= phi, so the haversine term
	// cos(lat1)cos(lat2)sin²(dLon/2) is at least cos²(phi)sin²(dLon/2).
	phi := deg2rad(math.Max(math.Abs(minLat), math.Abs(maxLat)))
	s := math.Sin(delta/2) / math.Cos(phi)
	if s >= 1 {
		return []orb.Bound{{Min: orb.Point{-180, minLat}, Max: orb.Point{180, maxLat}}}
	}
	dLon := rad2deg(2*math.Asin(s))*(1+windowPadRel) + windowPadDeg
	if dLon >= 180 {
		return []orb.Bound{{Min: orb.Point{-180, minLat}, Max: orb.Point{180, maxLat}}}
	}

	minLon := center.Lon - dLon
	maxLon := center.Lon + dLon
	switch {
	case minLon < -180:
		return []orb.Bound{
			{Min: orb.Point{-180, minLat}, Max: orb.Point{maxLon, maxLat}},
			{Min: orb.Point{minLon + 360, minLat}, Max: orb.Point{180, maxLat}},
		}
	case maxLon > 180:
		return []orb.Bound{
			{Min: orb.Point{minLon, minLat}, Max: orb.Point{180, maxLat}},
			{Min: orb.Point{-180, minLat}, Max: orb.Point{maxLon - 360, maxLat}},
		}
	}
	return []orb.Bound{{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}}
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
