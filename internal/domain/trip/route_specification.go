package trip

import (
	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
)

// RouteSpecification is the road route of a trip as returned by the routing provider.
type RouteSpecification struct {
	Geometry        string  `json:"geometry"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Route decodes the geometry.
func (r RouteSpecification) Route() (geo.Route, error) {
	return geo.Decode(r.Geometry)
}

// IsMatchable reports whether the route carries enough data to be compared with other routes.
func (r RouteSpecification) IsMatchable() bool {
	return r.Geometry != "" && r.DistanceMeters > 0
}
