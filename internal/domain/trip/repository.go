package trip

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
)

// CandidateQuery selects trips that could share a ride with a base trip.
type CandidateQuery struct {
	// ExcludeID is the base trip, never returned as its own candidate.
	ExcludeID uuid.UUID
	// PickupBox bounds the candidate pickup point.
	PickupBox geo.BoundingBox
	// DepartureFrom and DepartureTo bound the candidate departure time, inclusive.
	DepartureFrom time.Time
	DepartureTo   time.Time
	// Limit caps the number of candidates returned.
	Limit int
}

// Repository defines the persistence contract for trip aggregates.
type Repository interface {
	// FindByID retrieves a trip by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Trip, error)

	// FindCandidates retrieves matchable trips satisfying the query, ordered by departure time.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]*Trip, error)

	// List retrieves trips with pagination, newest first.
	List(ctx context.Context, page, limit int) ([]*Trip, int64, error)

	// Save persists a new trip.
	Save(ctx context.Context, trip *Trip) error
}
