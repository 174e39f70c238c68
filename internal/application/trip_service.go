package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/matching"
	tripDomain "github.com/Geethapranay1/coriding-matching-backend/internal/domain/trip"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/domain"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/kafka"
	"github.com/Geethapranay1/coriding-matching-backend/internal/routing"
)

// ServiceName is the CloudEvent source of events published by this service.
const ServiceName = "service-matching"

// EventPublisher publishes CloudEvents to a topic.
type EventPublisher interface {
	PublishEventWithKey(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// CreateTripRequest holds the data needed to plan a new trip.
type CreateTripRequest struct {
	PickupLat     *float64  `json:"pickup_lat" binding:"required"`
	PickupLng     *float64  `json:"pickup_lng" binding:"required"`
	DropLat       *float64  `json:"drop_lat" binding:"required"`
	DropLng       *float64  `json:"drop_lng" binding:"required"`
	DepartureTime time.Time `json:"departure_time" binding:"required"`
}

// TripDTO is the response representation of a trip.
type TripDTO struct {
	ID            uuid.UUID `json:"id"`
	PickupLat     float64   `json:"pickup_lat"`
	PickupLng     float64   `json:"pickup_lng"`
	DropLat       float64   `json:"drop_lat"`
	DropLng       float64   `json:"drop_lng"`
	DepartureTime time.Time `json:"departure_time"`
	RouteGeometry string    `json:"route_geometry"`
	RouteDistance float64   `json:"route_distance"`
	RouteDuration float64   `json:"route_duration"`
	CreatedAt     time.Time `json:"created_at"`
}

// TripService is the application service orchestrating trip use cases.
type TripService struct {
	repo      tripDomain.Repository
	router    routing.Provider
	publisher EventPublisher
	logger    *zap.Logger
}

// NewTripService creates a new TripService. publisher may be nil when events are disabled.
func NewTripService(
	repo tripDomain.Repository,
	router routing.Provider,
	publisher EventPublisher,
	logger *zap.Logger,
) *TripService {
	return &TripService{
		repo:      repo,
		router:    router,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateTrip resolves the driving route between pickup and drop, stores the trip and
// announces it on the trip topic.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*TripDTO, error) {
	if req.PickupLat == nil || req.PickupLng == nil || req.DropLat == nil || req.DropLng == nil {
		return nil, domain.NewValidationError("pickup and drop coordinates are required")
	}
	pickup := geo.NewPoint(*req.PickupLat, *req.PickupLng)
	drop := geo.NewPoint(*req.DropLat, *req.DropLng)
	if !pickup.IsValid() || !drop.IsValid() {
		return nil, domain.NewValidationError("coordinates are out of range")
	}

	rd, err := s.router.Route(ctx, pickup, drop)
	if err != nil {
		return nil, err
	}

	decoded, err := geo.Decode(rd.Geometry)
	if err != nil {
		return nil, domain.NewUpstreamRouteError("routing provider returned an invalid geometry", err)
	}
	if !decoded.HasShape() {
		return nil, &domain.AppError{
			Code:    domain.CodeValidation,
			Message: "pickup and drop are too close to form a route",
			Err:     matching.ErrInvalidRoute,
		}
	}

	t, err := tripDomain.NewTrip(pickup, drop, req.DepartureTime, tripDomain.RouteSpecification{
		Geometry:        rd.Geometry,
		DistanceMeters:  rd.DistanceMeters,
		DurationSeconds: rd.DurationSeconds,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save trip: %w", err)
	}

	s.logger.Info("trip created",
		zap.String("trip_id", t.ID().String()),
		zap.Float64("distance_m", rd.DistanceMeters),
		zap.Time("departure_time", t.DepartureTime()),
	)

	s.publishEvent(ctx, tripDomain.TopicEvents, tripDomain.EventCreated, t.ID().String(), tripDomain.NewCreatedEvent(t))

	result := ToTripDTO(t)
	return &result, nil
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, id uuid.UUID) (*TripDTO, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := ToTripDTO(t)
	return &result, nil
}

// ListTrips retrieves trips with pagination, newest first.
func (s *TripService) ListTrips(ctx context.Context, page, limit int) (*domain.PaginatedResult[TripDTO], error) {
	trips, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}

	dtos := make([]TripDTO, 0, len(trips))
	for _, t := range trips {
		dtos = append(dtos, ToTripDTO(t))
	}
	return domain.NewPaginatedResult(dtos, total, page, limit), nil
}

func (s *TripService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	if s.publisher == nil {
		return
	}

	cloudEvent, err := kafka.NewCloudEvent(ServiceName, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEventWithKey(ctx, topic, key, cloudEvent); err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Warn("event publish cancelled", zap.String("event_type", eventType))
			return
		}
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// ToTripDTO converts a trip aggregate into its response representation.
func ToTripDTO(t *tripDomain.Trip) TripDTO {
	route := t.Route()
	return TripDTO{
		ID:            t.ID(),
		PickupLat:     t.Pickup().Lat,
		PickupLng:     t.Pickup().Lng,
		DropLat:       t.Drop().Lat,
		DropLng:       t.Drop().Lng,
		DepartureTime: t.DepartureTime(),
		RouteGeometry: route.Geometry,
		RouteDistance: route.DistanceMeters,
		RouteDuration: route.DurationSeconds,
		CreatedAt:     t.CreatedAt(),
	}
}
