package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by every distance computation in this package.
const EarthRadiusMeters = 6371000.0

// Point is a WGS-84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewPoint creates a Point from latitude and longitude.
func NewPoint(lat, lng float64) Point {
	return Point{Lat: lat, Lng: lng}
}

// IsValid reports whether the point lies within the latitude/longitude ranges.
func (p Point) IsValid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// Route is an ordered sequence of points along a road path.
type Route []Point

// HasShape reports whether the route carries direction and shape information.
// A route with fewer than two points never matches anything.
func (r Route) HasShape() bool {
	return len(r) >= 2
}

// Start returns the first point of the route. The route must not be empty.
func (r Route) Start() Point {
	return r[0]
}

// End returns the last point of the route. The route must not be empty.
func (r Route) End() Point {
	return r[len(r)-1]
}

// Length returns the sum of great-circle distances between consecutive points, in meters.
func (r Route) Length() float64 {
	total := 0.0
	for i := 1; i < len(r); i++ {
		total += Haversine(r[i-1], r[i])
	}
	return total
}
