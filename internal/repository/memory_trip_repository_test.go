package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
	tripDomain "github.com/Geethapranay1/coriding-matching-backend/internal/domain/trip"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/domain"
)

var baseDeparture = time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

func newTrip(t *testing.T, pickup geo.Point, departure time.Time) *tripDomain.Trip {
	t.Helper()
	drop := geo.NewPoint(12.9716, 77.5946)
	route := tripDomain.RouteSpecification{
		Geometry:        geo.Encode(geo.Route{pickup, drop}),
		DistanceMeters:  geo.Haversine(pickup, drop),
		DurationSeconds: 900,
	}
	trip, err := tripDomain.NewTrip(pickup, drop, departure, route)
	require.NoError(t, err)
	return trip
}

func candidateQuery(base *tripDomain.Trip) tripDomain.CandidateQuery {
	return tripDomain.CandidateQuery{
		ExcludeID:     base.ID(),
		PickupBox:     geo.BoundingBoxAround(base.Pickup(), 0.5),
		DepartureFrom: base.DepartureTime().Add(-30 * time.Minute),
		DepartureTo:   base.DepartureTime().Add(30 * time.Minute),
		Limit:         50,
	}
}

func TestMemoryTripRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTripRepository()
	trip := newTrip(t, geo.NewPoint(12.90, 77.55), baseDeparture)
	require.NoError(t, repo.Save(ctx, trip))

	found, err := repo.FindByID(ctx, trip.ID())
	require.NoError(t, err)
	assert.Equal(t, trip.ID(), found.ID())

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}

func TestMemoryTripRepository_SaveDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTripRepository()
	trip := newTrip(t, geo.NewPoint(12.90, 77.55), baseDeparture)

	require.NoError(t, repo.Save(ctx, trip))
	err := repo.Save(ctx, trip)
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
}

func TestMemoryTripRepository_FindCandidates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTripRepository()

	base := newTrip(t, geo.NewPoint(12.90, 77.55), baseDeparture)
	nearEarly := newTrip(t, geo.NewPoint(12.95, 77.60), baseDeparture.Add(-20*time.Minute))
	nearLate := newTrip(t, geo.NewPoint(12.85, 77.50), baseDeparture.Add(30*time.Minute))
	farAway := newTrip(t, geo.NewPoint(13.60, 77.55), baseDeparture)
	tooLate := newTrip(t, geo.NewPoint(12.91, 77.56), baseDeparture.Add(31*time.Minute))
	noRoute := tripDomain.ReconstructTrip(uuid.New(), geo.NewPoint(12.92, 77.57), geo.NewPoint(12.97, 77.59),
		baseDeparture, tripDomain.RouteSpecification{}, time.Now().UTC())

	for _, trip := range []*tripDomain.Trip{base, nearEarly, nearLate, farAway, tooLate, noRoute} {
		require.NoError(t, repo.Save(ctx, trip))
	}

	candidates, err := repo.FindCandidates(ctx, candidateQuery(base))
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, nearEarly.ID(), candidates[0].ID())
	assert.Equal(t, nearLate.ID(), candidates[1].ID())
}

func TestMemoryTripRepository_FindCandidatesAcrossAntimeridian(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTripRepository()

	base := newTrip(t, geo.NewPoint(-16.5, 179.8), baseDeparture)
	east := newTrip(t, geo.NewPoint(-16.4, -179.9), baseDeparture.Add(5*time.Minute))
	west := newTrip(t, geo.NewPoint(-16.6, 179.5), baseDeparture.Add(10*time.Minute))
	outside := newTrip(t, geo.NewPoint(-16.5, -179.5), baseDeparture)
	for _, trip := range []*tripDomain.Trip{base, east, west, outside} {
		require.NoError(t, repo.Save(ctx, trip))
	}

	candidates, err := repo.FindCandidates(ctx, candidateQuery(base))
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, east.ID(), candidates[0].ID())
	assert.Equal(t, west.ID(), candidates[1].ID())
}

func TestMemoryTripRepository_FindCandidatesLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTripRepository()
	base := newTrip(t, geo.NewPoint(12.90, 77.55), baseDeparture)
	require.NoError(t, repo.Save(ctx, base))

	for i := 0; i < 8; i++ {
		trip := newTrip(t, geo.NewPoint(12.90+float64(i)*0.01, 77.55), baseDeparture.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Save(ctx, trip))
	}

	q := candidateQuery(base)
	q.Limit = 5
	candidates, err := repo.FindCandidates(ctx, q)
	require.NoError(t, err)
	assert.Len(t, candidates, 5)
}

func TestMemoryTripRepository_FindCandidatesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewMemoryTripRepository()
	_, err := repo.FindCandidates(ctx, tripDomain.CandidateQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryTripRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTripRepository()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, newTrip(t, geo.NewPoint(12.90, 77.55+float64(i)*0.01), baseDeparture)))
	}

	page, total, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page, 2)

	page, _, err = repo.List(ctx, 4, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}
