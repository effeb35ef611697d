package heatmap

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371008.8

// LatLng converts l to an s2 coordinate.
func (l Location) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(l.Lat, l.Lng)
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Location) float64 {
	return a.LatLng().Distance(b.LatLng()).Radians() * EarthRadiusMeters
}

// MetersToDegrees converts a ground distance to the central angle in
// degrees, the unit a heat layer needs for its radius.
func MetersToDegrees(meters float64) float64 {
	return s1.Angle(meters / EarthRadiusMeters).Degrees()
}

// Offset returns the point reached by travelling meters from l along
// bearing (degrees, 0 = north, clockwise).
func Offset(l Location, bearing, meters float64) Location {
	p := l.LatLng()
	brg := bearing * math.Pi / 180
	ang := meters / EarthRadiusMeters

	lat1 := p.Lat.Radians()
	lng1 := p.Lng.Radians()

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brg))
	lng2 := lng1 + math.Atan2(math.Sin(brg)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	out := s2.LatLng{Lat: s1.Angle(lat2), Lng: s1.Angle(lng2)}.Normalized()
	return Location{Lat: out.Lat.Degrees(), Lng: out.Lng.Degrees()}
}

// Bounds returns the smallest lat/lng rectangle containing every location.
func Bounds(locs []Location) s2.Rect {
	r := s2.EmptyRect()
	for _, l := range locs {
		r = r.AddPoint(l.LatLng())
	}
	return r
}
