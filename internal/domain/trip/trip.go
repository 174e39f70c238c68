package trip

import (
	"time"

	"github.com/google/uuid"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/domain"
)

// Trip is the aggregate root for a planned ride.
type Trip struct {
	id            uuid.UUID
	pickup        geo.Point
	drop          geo.Point
	departureTime time.Time
	route         RouteSpecification
	createdAt     time.Time
}

// NewTrip creates a Trip after validating its coordinates and route.
func NewTrip(pickup, drop geo.Point, departureTime time.Time, route RouteSpecification) (*Trip, error) {
	if !pickup.IsValid() {
		return nil, domain.NewValidationError("pickup coordinates are out of range")
	}
	if !drop.IsValid() {
		return nil, domain.NewValidationError("drop coordinates are out of range")
	}
	if pickup == drop {
		return nil, domain.NewValidationError("pickup and drop must differ")
	}
	if departureTime.IsZero() {
		return nil, domain.NewValidationError("departure time is required")
	}
	if !route.IsMatchable() {
		return nil, domain.NewValidationError("route geometry and a positive distance are required")
	}

	return &Trip{
		id:            uuid.New(),
		pickup:        pickup,
		drop:          drop,
		departureTime: departureTime.UTC(),
		route:         route,
		createdAt:     time.Now().UTC(),
	}, nil
}

// ReconstructTrip rebuilds a Trip from persistence data (no validation).
func ReconstructTrip(
	id uuid.UUID,
	pickup, drop geo.Point,
	departureTime time.Time,
	route RouteSpecification,
	createdAt time.Time,
) *Trip {
	return &Trip{
		id:            id,
		pickup:        pickup,
		drop:          drop,
		departureTime: departureTime,
		route:         route,
		createdAt:     createdAt,
	}
}

// ID returns the trip's unique identifier.
func (t *Trip) ID() uuid.UUID { return t.id }

// Pickup returns the pickup point.
func (t *Trip) Pickup() geo.Point { return t.pickup }

// Drop returns the drop point.
func (t *Trip) Drop() geo.Point { return t.drop }

// DepartureTime returns the planned departure.
func (t *Trip) DepartureTime() time.Time { return t.departureTime }

// Route returns the route specification.
func (t *Trip) Route() RouteSpecification { return t.route }

// CreatedAt returns the creation timestamp.
func (t *Trip) CreatedAt() time.Time { return t.createdAt }
