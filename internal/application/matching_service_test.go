package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Geethapranay1/coriding-matching-backend/internal/cache"
	"github.com/Geethapranay1/coriding-matching-backend/internal/config"
	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
	tripDomain "github.com/Geethapranay1/coriding-matching-backend/internal/domain/trip"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/domain"
	"github.com/Geethapranay1/coriding-matching-backend/internal/repository"
)

func newMatchingService(t *testing.T, repo tripDomain.Repository, c cache.Cache) *MatchingService {
	t.Helper()
	svc, err := NewMatchingService(repo, c, config.DefaultMatchingConfig(), zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestNewMatchingService_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultMatchingConfig()
	cfg.BatchSize = 0
	_, err := NewMatchingService(repository.NewMemoryTripRepository(), cache.NewMemoryCache(), cfg, zap.NewNop())
	assert.Error(t, err)

	cfg = config.DefaultMatchingConfig()
	cfg.Scorer.Different.MinScore = -1
	_, err = NewMatchingService(repository.NewMemoryTripRepository(), cache.NewMemoryCache(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestFindMatches_RanksValidCandidates(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryTripRepository()
	a, b := trunkRoutes()
	north := line(geo.NewPoint(13.05, 77.55), geo.NewPoint(13.05, 77.65), 10)

	base := tripOn(t, a, a.Length(), baseDeparture)
	twin := tripOn(t, a, a.Length()-500, baseDeparture.Add(10*time.Minute))
	merging := tripOn(t, b, b.Length(), baseDeparture.Add(5*time.Minute))
	unrelated := tripOn(t, north, north.Length(), baseDeparture)
	late := tripOn(t, b, b.Length(), baseDeparture.Add(45*time.Minute))
	for _, trip := range []*tripDomain.Trip{base, twin, merging, unrelated, late} {
		require.NoError(t, repo.Save(ctx, trip))
	}

	svc := newMatchingService(t, repo, cache.NewMemoryCache())
	matches, err := svc.FindMatches(ctx, base.ID())
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, twin.ID(), matches[0].Trip.ID)
	assert.Equal(t, merging.ID(), matches[1].Trip.ID)
	assert.Equal(t, 100.0, matches[0].Match.Score)
	assert.Greater(t, matches[0].Match.Score, matches[1].Match.Score)
	for _, m := range matches {
		assert.True(t, m.Match.Valid)
		assert.GreaterOrEqual(t, m.Match.OverlapPercent, 20.0)
		assert.NotEqual(t, base.ID(), m.Trip.ID)
	}
}

func TestFindMatches_CapsAtTopN(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryTripRepository()
	a, _ := trunkRoutes()

	base := tripOn(t, a, a.Length(), baseDeparture)
	require.NoError(t, repo.Save(ctx, base))
	for i := 0; i < 14; i++ {
		candidate := tripOn(t, a, a.Length()-200-float64(i), baseDeparture.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Save(ctx, candidate))
	}

	svc := newMatchingService(t, repo, cache.NewMemoryCache())
	matches, err := svc.FindMatches(ctx, base.ID())
	require.NoError(t, err)

	require.Len(t, matches, 10)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Match.Score, matches[i].Match.Score)
	}
}

func TestFindMatches_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	a, b := trunkRoutes()
	base := tripOn(t, a, a.Length(), baseDeparture)
	merging := tripOn(t, b, b.Length(), baseDeparture.Add(5*time.Minute))

	repo := new(mockRepository)
	repo.On("FindByID", mock.Anything, base.ID()).Return(base, nil)
	repo.On("FindCandidates", mock.Anything, mock.MatchedBy(func(q tripDomain.CandidateQuery) bool {
		return q.ExcludeID == base.ID() &&
			q.Limit == 50 &&
			q.DepartureFrom.Equal(baseDeparture.Add(-30*time.Minute)) &&
			q.DepartureTo.Equal(baseDeparture.Add(30*time.Minute)) &&
			q.PickupBox.Contains(merging.Pickup())
	})).Return([]*tripDomain.Trip{merging}, nil)

	c := cache.NewMemoryCache()
	svc := newMatchingService(t, repo, c)

	first, err := svc.FindMatches(ctx, base.ID())
	require.NoError(t, err)
	require.Len(t, first, 1)

	raw, err := c.Get(ctx, cache.KeyMatches(base.ID()))
	require.NoError(t, err)
	assert.NotNil(t, raw)

	second, err := svc.FindMatches(ctx, base.ID())
	require.NoError(t, err)
	require.Len(t, second, 1)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, raw, firstJSON)
	assert.Equal(t, firstJSON, secondJSON)

	repo.AssertNumberOfCalls(t, "FindCandidates", 1)
	repo.AssertNumberOfCalls(t, "FindByID", 2)
}

func TestFindTripMatches_LoadsBaseTripOnce(t *testing.T) {
	ctx := context.Background()
	a, b := trunkRoutes()
	base := tripOn(t, a, a.Length(), baseDeparture)
	merging := tripOn(t, b, b.Length(), baseDeparture.Add(5*time.Minute))

	repo := new(mockRepository)
	repo.On("FindByID", mock.Anything, base.ID()).Return(base, nil)
	repo.On("FindCandidates", mock.Anything, mock.Anything).Return([]*tripDomain.Trip{merging}, nil)

	svc := newMatchingService(t, repo, cache.NewMemoryCache())
	found, err := svc.FindTripMatches(ctx, base.ID())
	require.NoError(t, err)
	assert.Equal(t, ToTripDTO(base), found.Trip)
	require.Len(t, found.Matches, 1)
	assert.Equal(t, merging.ID(), found.Matches[0].Trip.ID)
	repo.AssertNumberOfCalls(t, "FindByID", 1)

	cached, err := svc.FindTripMatches(ctx, base.ID())
	require.NoError(t, err)
	assert.Equal(t, base.ID(), cached.Trip.ID)
	repo.AssertNumberOfCalls(t, "FindByID", 2)
	repo.AssertNumberOfCalls(t, "FindCandidates", 1)

	missing := uuid.New()
	repo.On("FindByID", mock.Anything, missing).Return(nil, domain.NewNotFoundError("Trip", missing.String()))
	_, err = svc.FindTripMatches(ctx, missing)
	assert.True(t, domain.IsNotFound(err))
}

func TestFindMatches_CacheFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	a, b := trunkRoutes()
	base := tripOn(t, a, a.Length(), baseDeparture)
	merging := tripOn(t, b, b.Length(), baseDeparture.Add(5*time.Minute))

	repo := new(mockRepository)
	repo.On("FindByID", mock.Anything, base.ID()).Return(base, nil)
	repo.On("FindCandidates", mock.Anything, mock.Anything).Return([]*tripDomain.Trip{merging}, nil)

	svc := newMatchingService(t, repo, failingCache{})
	for i := 0; i < 2; i++ {
		matches, err := svc.FindMatches(ctx, base.ID())
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	}
	repo.AssertNumberOfCalls(t, "FindCandidates", 2)
}

func TestFindMatches_TripNotFound(t *testing.T) {
	id := uuid.New()
	repo := new(mockRepository)
	repo.On("FindByID", mock.Anything, id).Return(nil, domain.NewNotFoundError("Trip", id.String()))

	svc := newMatchingService(t, repo, cache.NewMemoryCache())
	_, err := svc.FindMatches(context.Background(), id)
	assert.True(t, domain.IsNotFound(err))
	repo.AssertNotCalled(t, "FindCandidates", mock.Anything, mock.Anything)
}

func TestFindMatches_SkipsUnreadableCandidate(t *testing.T) {
	a, b := trunkRoutes()
	base := tripOn(t, a, a.Length(), baseDeparture)
	merging := tripOn(t, b, b.Length(), baseDeparture.Add(5*time.Minute))
	broken := tripDomain.ReconstructTrip(uuid.New(), hsrLayout, mgRoad, baseDeparture,
		tripDomain.RouteSpecification{Geometry: "_p~iF~ps|U_", DistanceMeters: 1000}, time.Now().UTC())

	repo := new(mockRepository)
	repo.On("FindByID", mock.Anything, base.ID()).Return(base, nil)
	repo.On("FindCandidates", mock.Anything, mock.Anything).Return([]*tripDomain.Trip{broken, merging}, nil)

	svc := newMatchingService(t, repo, cache.NewMemoryCache())
	matches, err := svc.FindMatches(context.Background(), base.ID())
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, merging.ID(), matches[0].Trip.ID)
}

func TestFindMatches_ContextCancelled(t *testing.T) {
	a, b := trunkRoutes()
	base := tripOn(t, a, a.Length(), baseDeparture)
	merging := tripOn(t, b, b.Length(), baseDeparture.Add(5*time.Minute))

	repo := new(mockRepository)
	repo.On("FindByID", mock.Anything, base.ID()).Return(base, nil)
	repo.On("FindCandidates", mock.Anything, mock.Anything).Return([]*tripDomain.Trip{merging}, nil)

	c := cache.NewMemoryCache()
	svc := newMatchingService(t, repo, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.FindMatches(ctx, base.ID())
	assert.ErrorIs(t, err, context.Canceled)

	raw, err := c.Get(context.Background(), cache.KeyMatches(base.ID()))
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestCalculateMatch(t *testing.T) {
	svc := newMatchingService(t, repository.NewMemoryTripRepository(), cache.NewMemoryCache())
	a, b := trunkRoutes()

	result, err := svc.CalculateMatch(CompareRequest{
		GeometryA: geo.Encode(a), GeometryB: geo.Encode(b),
		DistanceA: a.Length(), DistanceB: b.Length(),
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.True(t, result.DestinationMatch)

	_, err = svc.CalculateMatch(CompareRequest{GeometryA: "_p~iF~ps|U_", GeometryB: geo.Encode(b)})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	var decodeErr *geo.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestClearCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	svc := newMatchingService(t, repository.NewMemoryTripRepository(), c)

	first, second := uuid.New(), uuid.New()
	routeKey := cache.KeyRoute(hsrLayout, mgRoad)
	for _, key := range []string{cache.KeyMatches(first), cache.KeyMatches(second), routeKey} {
		require.NoError(t, c.Set(ctx, key, []byte("[]"), time.Minute))
	}

	require.NoError(t, svc.ClearCache(ctx, &first))
	raw, _ := c.Get(ctx, cache.KeyMatches(first))
	assert.Nil(t, raw)
	raw, _ = c.Get(ctx, cache.KeyMatches(second))
	assert.NotNil(t, raw)

	require.NoError(t, svc.ClearCache(ctx, nil))
	raw, _ = c.Get(ctx, cache.KeyMatches(second))
	assert.Nil(t, raw)
	raw, _ = c.Get(ctx, routeKey)
	assert.NotNil(t, raw)

	failing := newMatchingService(t, repository.NewMemoryTripRepository(), failingCache{})
	assert.Error(t, failing.ClearCache(ctx, nil))
	assert.Error(t, failing.ClearCache(ctx, &first))
}
