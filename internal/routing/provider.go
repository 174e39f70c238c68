package routing

import (
	"context"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
)

// RouteData is a driving route between two points.
type RouteData struct {
	Geometry        string  `json:"geometry"`
	DistanceMeters  float64 `json:"distance"`
	DurationSeconds float64 `json:"duration"`
}

// Provider resolves the road route between a pickup and a drop point.
type Provider interface {
	Route(ctx context.Context, pickup, drop geo.Point) (*RouteData, error)
}
