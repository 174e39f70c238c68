package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
	tripDomain "github.com/Geethapranay1/coriding-matching-backend/internal/domain/trip"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/kafka"
	"github.com/Geethapranay1/coriding-matching-backend/internal/routing"
)

var (
	hsrLayout   = geo.NewPoint(12.90, 77.55)
	koramangala = geo.NewPoint(12.90, 77.573)
	junction    = geo.NewPoint(12.91, 77.562)
	mgRoad      = geo.NewPoint(12.9716, 77.5946)

	baseDeparture = time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
)

func line(a, b geo.Point, n int) geo.Route {
	r := make(geo.Route, 0, n+1)
	for i := 0; i <= n; i++ {
		r = append(r, geo.Interpolate(a, b, float64(i)/float64(n)))
	}
	return r
}

func join(routes ...geo.Route) geo.Route {
	var out geo.Route
	for _, r := range routes {
		if len(out) > 0 && len(r) > 0 && out.End() == r.Start() {
			r = r[1:]
		}
		out = append(out, r...)
	}
	return out
}

// tripOn stores a trip that drives route and reports distance meters.
func tripOn(t *testing.T, route geo.Route, distance float64, departure time.Time) *tripDomain.Trip {
	t.Helper()
	trip, err := tripDomain.NewTrip(route.Start(), route.End(), departure, tripDomain.RouteSpecification{
		Geometry:        geo.Encode(route),
		DistanceMeters:  distance,
		DurationSeconds: distance / 10,
	})
	require.NoError(t, err)
	return trip
}

func trunkRoutes() (fromHSR, fromKoramangala geo.Route) {
	trunk := line(junction, mgRoad, 40)
	return join(line(hsrLayout, junction, 5), trunk), join(line(koramangala, junction, 5), trunk)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (*tripDomain.Trip, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*tripDomain.Trip), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) FindCandidates(ctx context.Context, q tripDomain.CandidateQuery) ([]*tripDomain.Trip, error) {
	args := m.Called(ctx, q)
	if t := args.Get(0); t != nil {
		return t.([]*tripDomain.Trip), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, page, limit int) ([]*tripDomain.Trip, int64, error) {
	args := m.Called(ctx, page, limit)
	if t := args.Get(0); t != nil {
		return t.([]*tripDomain.Trip), args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *mockRepository) Save(ctx context.Context, trip *tripDomain.Trip) error {
	return m.Called(ctx, trip).Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Route(ctx context.Context, pickup, drop geo.Point) (*routing.RouteData, error) {
	args := m.Called(ctx, pickup, drop)
	if r := args.Get(0); r != nil {
		return r.(*routing.RouteData), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEventWithKey(ctx context.Context, topic, key string, event kafka.CloudEvent) error {
	return m.Called(ctx, topic, key, event).Error(0)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingCache) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func (failingCache) DeletePattern(context.Context, string) error {
	return errors.New("connection refused")
}
