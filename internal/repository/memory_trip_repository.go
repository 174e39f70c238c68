package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/rtree"

	tripDomain "github.com/Geethapranay1/coriding-matching-backend/internal/domain/trip"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/domain"
)

// MemoryTripRepository keeps trips in memory with an r-tree over pickup points.
// It backs local runs without a database and the service tests.
type MemoryTripRepository struct {
	mu    sync.RWMutex
	trips map[uuid.UUID]*tripDomain.Trip
	index rtree.RTreeG[uuid.UUID]
}

// NewMemoryTripRepository creates an empty MemoryTripRepository.
func NewMemoryTripRepository() *MemoryTripRepository {
	return &MemoryTripRepository{
		trips: make(map[uuid.UUID]*tripDomain.Trip),
	}
}

// FindByID retrieves a trip by its unique identifier.
func (r *MemoryTripRepository) FindByID(ctx context.Context, id uuid.UUID) (*tripDomain.Trip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trips[id]
	if !ok {
		return nil, domain.NewNotFoundError("Trip", id.String())
	}
	return t, nil
}

// FindCandidates searches the pickup index with the query box, then filters by departure
// window and matchability.
func (r *MemoryTripRepository) FindCandidates(ctx context.Context, q tripDomain.CandidateQuery) ([]*tripDomain.Trip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []*tripDomain.Trip
	for _, lng := range q.PickupBox.LngRanges() {
		r.index.Search(
			[2]float64{lng[0], q.PickupBox.MinLat()},
			[2]float64{lng[1], q.PickupBox.MaxLat()},
			func(_, _ [2]float64, id uuid.UUID) bool {
				t := r.trips[id]
				if id == q.ExcludeID || !t.Route().IsMatchable() {
					return true
				}
				dep := t.DepartureTime()
				if dep.Before(q.DepartureFrom) || dep.After(q.DepartureTo) {
					return true
				}
				found = append(found, t)
				return true
			},
		)
	}

	sort.Slice(found, func(i, j int) bool {
		di, dj := found[i].DepartureTime(), found[j].DepartureTime()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return found[i].ID().String() < found[j].ID().String()
	})
	if q.Limit > 0 && len(found) > q.Limit {
		found = found[:q.Limit]
	}
	return found, nil
}

// List retrieves trips with pagination, newest first.
func (r *MemoryTripRepository) List(ctx context.Context, page, limit int) ([]*tripDomain.Trip, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	all := make([]*tripDomain.Trip, 0, len(r.trips))
	for _, t := range r.trips {
		all = append(all, t)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		ci, cj := all[i].CreatedAt(), all[j].CreatedAt()
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return all[i].ID().String() < all[j].ID().String()
	})

	total := int64(len(all))
	offset := (page - 1) * limit
	if offset >= len(all) || offset < 0 {
		return []*tripDomain.Trip{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

// Save persists a new trip.
func (r *MemoryTripRepository) Save(ctx context.Context, t *tripDomain.Trip) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.trips[t.ID()]; exists {
		return domain.NewConflictError(fmt.Sprintf("trip %s already exists", t.ID()))
	}

	p := t.Pickup()
	point := [2]float64{p.Lng, p.Lat}
	r.index.Insert(point, point, t.ID())
	r.trips[t.ID()] = t
	return nil
}
