package matching

import (
	"math"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
)

const (
	minResampleInterval = 30.0
	maxResampleInterval = 100.0
	resampleDivisor     = 20.0

	// minShapeTolerance is the shape distance, in meters, at which similarity bottoms out for
	// short routes. Longer routes use shapeToleranceRatio of their average length instead.
	minShapeTolerance   = 1500.0
	shapeToleranceRatio = 0.15
)

// ResampleInterval returns the point spacing used to compare two routes of the given lengths.
func ResampleInterval(lengthA, lengthB float64) float64 {
	interval := math.Max(lengthA, lengthB) / resampleDivisor
	return math.Max(minResampleInterval, math.Min(maxResampleInterval, interval))
}

// Resample returns the route with points spaced every interval meters along its length.
// The first and last points are always kept. Routes without shape are returned unchanged.
func Resample(route geo.Route, interval float64) geo.Route {
	if !route.HasShape() || interval <= 0 {
		return route
	}

	out := make(geo.Route, 0, int(route.Length()/interval)+2)
	out = append(out, route[0])

	walked := 0.0
	next := interval
	for i := 1; i < len(route); i++ {
		a, b := route[i-1], route[i]
		seg := geo.Haversine(a, b)
		for seg > 0 && walked+seg >= next {
			out = append(out, geo.Interpolate(a, b, (next-walked)/seg))
			next += interval
		}
		walked += seg
	}

	end := route.End()
	if geo.Haversine(out[len(out)-1], end) < 0.01 {
		out[len(out)-1] = end
	} else {
		out = append(out, end)
	}
	return out
}

// FrechetDistance returns the discrete Fréchet distance between p and q in meters.
// The coupling table is filled row by row in a flat slice indexed i*m+j.
func FrechetDistance(p, q geo.Route) float64 {
	n, m := len(p), len(q)
	if n == 0 || m == 0 {
		return 0
	}

	ca := make([]float64, n*m)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			d := geo.Haversine(p[i], q[j])
			switch {
			case i == 0 && j == 0:
				ca[0] = d
			case i == 0:
				ca[j] = max(ca[j-1], d)
			case j == 0:
				ca[i*m] = max(ca[(i-1)*m], d)
			default:
				ca[i*m+j] = max(min(ca[(i-1)*m+j], ca[(i-1)*m+j-1], ca[i*m+j-1]), d)
			}
		}
	}
	return ca[n*m-1]
}

// ShapeSimilarity compares the shapes of two routes after resampling them to a common spacing.
// It returns the Fréchet distance in meters and a similarity percentage relative to a tolerance
// that grows with route length. Routes without shape yield (0, 0).
func ShapeSimilarity(a, b geo.Route) (distance, similarity float64) {
	if !a.HasShape() || !b.HasShape() {
		return 0, 0
	}

	lengthA, lengthB := a.Length(), b.Length()
	interval := ResampleInterval(lengthA, lengthB)
	distance = FrechetDistance(Resample(a, interval), Resample(b, interval))

	tolerance := math.Max(minShapeTolerance, shapeToleranceRatio*(lengthA+lengthB)/2)
	similarity = math.Max(0, 100-distance/tolerance*100)
	return distance, similarity
}
