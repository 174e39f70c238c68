package geo

import "math"

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	if a == b {
		return 0
	}

	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// PointToSegmentDistance returns the distance in meters from p to the segment [a, b].
//
// The projection is computed on the planar lat/lng parameterization of the segment, which is
// accurate enough at city scale; the parameter is clamped to [0, 1] and the distance to the
// clamped point is measured on the sphere.
func PointToSegmentDistance(p, a, b Point) float64 {
	dLat := b.Lat - a.Lat
	dLng := b.Lng - a.Lng
	lenSq := dLat*dLat + dLng*dLng
	if lenSq == 0 {
		return Haversine(p, a)
	}

	t := ((p.Lat-a.Lat)*dLat + (p.Lng-a.Lng)*dLng) / lenSq
	t = math.Max(0, math.Min(1, t))

	return Haversine(p, Interpolate(a, b, t))
}

// Interpolate returns the point at fraction t along the straight lat/lng line from a to b.
func Interpolate(a, b Point, t float64) Point {
	return Point{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lng: a.Lng + t*(b.Lng-a.Lng),
	}
}

// Midpoint returns the planar midpoint of a and b.
func Midpoint(a, b Point) Point {
	return Interpolate(a, b, 0.5)
}

// Bearing returns the initial forward azimuth from a to b in degrees, in [0, 360).
// https://www.movable-type.co.uk/scripts/latlong.html
func Bearing(a, b Point) float64 {
	dLng := degreesToRadians(b.Lng - a.Lng)
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	brng := math.Mod(radiansToDegrees(math.Atan2(y, x))+360, 360)
	if brng >= 360 {
		brng = 0
	}
	return brng
}

// BearingDifference returns the absolute angular difference between two bearings, in [0, 180].
func BearingDifference(b1, b2 float64) float64 {
	diff := math.Abs(math.Mod(b1-b2, 360))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}
