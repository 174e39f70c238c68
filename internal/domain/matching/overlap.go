package matching

import (
	"math"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
)

type segment struct {
	start   geo.Point
	end     geo.Point
	mid     geo.Point
	length  float64
	bearing float64
}

func buildSegments(route geo.Route) []segment {
	segments := make([]segment, 0, len(route))
	for i := 1; i < len(route); i++ {
		length := geo.Haversine(route[i-1], route[i])
		if length == 0 {
			continue
		}
		segments = append(segments, segment{
			start:   route[i-1],
			end:     route[i],
			mid:     geo.Midpoint(route[i-1], route[i]),
			length:  length,
			bearing: geo.Bearing(route[i-1], route[i]),
		})
	}
	return segments
}

func totalLength(segments []segment) float64 {
	total := 0.0
	for _, s := range segments {
		total += s.length
	}
	return total
}

// coverage accumulates the length of from whose segment midpoints lie within buffer of to,
// appending one bearing agreement sample in [0, 1] per covered segment.
func coverage(from, to []segment, buffer float64, samples []float64) (float64, []float64) {
	covered := 0.0
	for _, s := range from {
		nearest := -1
		nearestDist := math.Inf(1)
		for k, o := range to {
			d := geo.PointToSegmentDistance(s.mid, o.start, o.end)
			if d < nearestDist {
				nearest, nearestDist = k, d
			}
		}
		if nearest < 0 || nearestDist > buffer {
			continue
		}

		covered += s.length
		diff := geo.BearingDifference(s.bearing, to[nearest].bearing)
		samples = append(samples, math.Max(0, (180-diff)/180))
	}
	return covered, samples
}

// Overlap measures how much of each route lies within bufferMeters of the other and how well
// their directions agree where they do. Both routes are resampled to a common spacing first.
func Overlap(a, b geo.Route, bufferMeters float64) OverlapAnalysis {
	if !a.HasShape() || !b.HasShape() {
		return OverlapAnalysis{}
	}

	interval := ResampleInterval(a.Length(), b.Length())
	segA := buildSegments(Resample(a, interval))
	segB := buildSegments(Resample(b, interval))
	totalA, totalB := totalLength(segA), totalLength(segB)
	if totalA == 0 || totalB == 0 {
		return OverlapAnalysis{}
	}

	samples := make([]float64, 0, len(segA)+len(segB))
	coveredA, samples := coverage(segA, segB, bufferMeters, samples)
	coveredB, samples := coverage(segB, segA, bufferMeters, samples)

	overlap := (coveredA/totalA + coveredB/totalB) / 2 * 100

	directional := 0.0
	if len(samples) > 0 {
		sum := 0.0
		for _, s := range samples {
			sum += s
		}
		directional = sum / float64(len(samples)) * 100
	}

	detour := 0.0
	if direct := geo.Haversine(a.Start(), a.End()); direct > 0 {
		detour = math.Max(0, (totalA-direct)/direct*100)
	}

	return OverlapAnalysis{
		OverlapPercent:        math.Max(0, math.Min(100, overlap)),
		DirectionalSimilarity: directional,
		SharedDistance:        (coveredA + coveredB) / 2,
		Detour:                detour,
	}
}

// EndpointProximity scores how close the starts and ends of two routes are, each against its own
// tolerance radius, and blends them 30% start / 70% end.
func EndpointProximity(a, b geo.Route, pickupRadius, destinationRadius float64) Proximity {
	if !a.HasShape() || !b.HasShape() {
		return Proximity{}
	}

	startDist := geo.Haversine(a.Start(), b.Start())
	endDist := geo.Haversine(a.End(), b.End())
	startScore := math.Max(0, 100-startDist/pickupRadius*100)
	endScore := math.Max(0, 100-endDist/destinationRadius*100)

	return Proximity{
		StartDistance: startDist,
		EndDistance:   endDist,
		StartScore:    startScore,
		EndScore:      endScore,
		Score:         0.3*startScore + 0.7*endScore,
	}
}
