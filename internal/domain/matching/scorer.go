package matching

import (
	"math"
	"time"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
)

// Scorer compares route pairs and decides whether they are a viable shared ride.
// It holds only immutable configuration and is safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer after validating cfg.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// CalculateMatch decodes two encoded geometries and compares them.
// A malformed geometry returns a *geo.DecodeError.
func (s *Scorer) CalculateMatch(geometryA, geometryB string, distanceA, distanceB float64, timeA, timeB *time.Time) (MatchResult, error) {
	routeA, err := geo.Decode(geometryA)
	if err != nil {
		return MatchResult{}, err
	}
	routeB, err := geo.Decode(geometryB)
	if err != nil {
		return MatchResult{}, err
	}

	return s.Compare(ComparisonInput{
		RouteA:    routeA,
		RouteB:    routeB,
		DistanceA: distanceA,
		DistanceB: distanceB,
		TimeA:     timeA,
		TimeB:     timeB,
	}), nil
}

// Compare scores candidate route B against base route A.
func (s *Scorer) Compare(in ComparisonInput) MatchResult {
	a, b := in.RouteA, in.RouteB
	if !a.HasShape() || !b.HasShape() {
		return MatchResult{RouteType: Different}
	}
	if s.isSelfMatch(in) {
		return MatchResult{RouteType: SelfMatch}
	}

	proximity := EndpointProximity(a, b, s.cfg.PickupRadiusMeters, s.cfg.DestinationRadiusMeters)
	rel := s.classify(proximity)

	shapeDistance, shapeSimilarity := ShapeSimilarity(a, b)
	overlap := Overlap(a, b, s.cfg.BufferMeters)

	extra := (in.DistanceB - in.DistanceA) / math.Max(in.DistanceA, 1) * 100
	penalty := math.Max(0, extra)

	var score float64
	if rel.SharesDestination() {
		score = destinationScore(shapeSimilarity, overlap.OverlapPercent, penalty, proximity.Score, (in.DistanceA+in.DistanceB)/2)
	} else {
		score = generalScore(shapeSimilarity, overlap.OverlapPercent, penalty, proximity.Score)
	}

	if in.TimeA != nil && in.TimeB != nil {
		timeScore := TimeCompatibility(*in.TimeA, *in.TimeB, s.cfg.TimeWindow)
		score = score*(1-s.cfg.TimeWeight) + timeScore*s.cfg.TimeWeight
	}
	score = math.Max(0, math.Min(100, score))

	t := s.cfg.ThresholdsFor(rel)
	overlapOK := overlap.OverlapPercent >= t.MinOverlap
	if rel.SharesDestination() {
		overlapOK = overlapOK || shapeSimilarity >= t.MinOverlap
	}

	return MatchResult{
		OverlapPercent:        overlap.OverlapPercent,
		ExtraDistancePercent:  extra,
		Score:                 score,
		Valid:                 overlapOK && penalty <= t.MaxExtraDistance && score >= t.MinScore,
		ShapeDistance:         shapeDistance,
		ShapeSimilarity:       shapeSimilarity,
		DirectionalSimilarity: overlap.DirectionalSimilarity,
		DestinationMatch:      rel.SharesDestination(),
		RouteType:             rel,
	}
}

func (s *Scorer) isSelfMatch(in ComparisonInput) bool {
	if math.Abs(in.DistanceA-in.DistanceB) >= s.cfg.SelfMatchDistanceMeters {
		return false
	}
	return geo.Haversine(in.RouteA.Start(), in.RouteB.Start()) < s.cfg.SelfMatchEndpointMeters &&
		geo.Haversine(in.RouteA.End(), in.RouteB.End()) < s.cfg.SelfMatchEndpointMeters
}

func (s *Scorer) classify(p Proximity) Relationship {
	sameDest := p.EndDistance <= s.cfg.DestinationRadiusMeters
	sameOrigin := p.StartDistance <= s.cfg.PickupRadiusMeters

	switch {
	case sameDest && sameOrigin:
		return SameOriginAndDestination
	case sameDest:
		return SameDestination
	case sameOrigin:
		return SameOrigin
	default:
		return Different
	}
}

// destinationScore weights shape and corridor overlap and rewards longer shared trips.
func destinationScore(shapeSimilarity, overlap, penalty, deviation, avgDistance float64) float64 {
	distanceScore := math.Max(0, 100-math.Min(penalty*1.5, 40))

	lengthBonus := 5.0
	switch {
	case avgDistance > 15000:
		lengthBonus = 15
	case avgDistance > 5000:
		lengthBonus = 10
	}

	return 0.3*shapeSimilarity + 0.4*overlap + 0.2*distanceScore + 0.1*deviation + lengthBonus
}

func generalScore(shapeSimilarity, overlap, penalty, deviation float64) float64 {
	distanceScore := math.Max(0, 100-math.Min(penalty*2, 50))
	return 0.4*overlap + 0.25*distanceScore + 0.25*deviation + 0.1*shapeSimilarity
}

// TimeCompatibility decays linearly from 100 at equal departures to 0 at window apart.
func TimeCompatibility(a, b time.Time, window time.Duration) float64 {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	if diff >= window {
		return 0
	}
	return 100 * (1 - float64(diff)/float64(window))
}
