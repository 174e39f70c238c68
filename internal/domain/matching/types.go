package matching

import (
	"errors"
	"time"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
)

// ErrInvalidRoute reports a route with fewer than two points.
var ErrInvalidRoute = errors.New("route must have at least two points")

// Relationship classifies how two routes relate at their endpoints.
type Relationship string

const (
	SameDestination          Relationship = "same-destination"
	SameOrigin               Relationship = "same-origin"
	SameOriginAndDestination Relationship = "same-origin-dest"
	Different                Relationship = "different"
	// SelfMatch tags a pair rejected as the same physical trip.
	SelfMatch Relationship = "self-match"
)

// SharesDestination reports whether the relationship is scored with the destination formula.
func (r Relationship) SharesDestination() bool {
	return r == SameDestination || r == SameOriginAndDestination
}

// String returns the wire tag.
func (r Relationship) String() string {
	return string(r)
}

// ComparisonInput is one pairwise comparison. Route A is the base trip, route B the candidate.
type ComparisonInput struct {
	RouteA    geo.Route
	RouteB    geo.Route
	DistanceA float64
	DistanceB float64
	TimeA     *time.Time
	TimeB     *time.Time
}

// MatchResult is the outcome of comparing a base route with a candidate route.
type MatchResult struct {
	OverlapPercent        float64      `json:"overlap"`
	ExtraDistancePercent  float64      `json:"extra_distance"`
	Score                 float64      `json:"score"`
	Valid                 bool         `json:"valid"`
	ShapeDistance         float64      `json:"shape_distance"`
	ShapeSimilarity       float64      `json:"shape_similarity"`
	DirectionalSimilarity float64      `json:"directional_similarity"`
	DestinationMatch      bool         `json:"destination_match"`
	RouteType             Relationship `json:"route_type"`
}

// OverlapAnalysis reports the buffer overlap between two routes.
type OverlapAnalysis struct {
	// OverlapPercent is the mean of both routes' covered-length ratios, in [0, 100].
	OverlapPercent float64
	// DirectionalSimilarity is the mean bearing agreement of overlapping segment pairs, in [0, 100].
	DirectionalSimilarity float64
	// SharedDistance is the mean covered length of both routes, in meters.
	SharedDistance float64
	// Detour is how much longer route A is than the straight line between its endpoints, in percent.
	Detour float64
}

// Proximity reports how close two routes start and end.
type Proximity struct {
	StartDistance float64
	EndDistance   float64
	StartScore    float64
	EndScore      float64
	// Score blends both ends, weighting the destination higher.
	Score float64
}
