package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
	tripDomain "github.com/Geethapranay1/coriding-matching-backend/internal/domain/trip"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/domain"
)

// TripModel is the GORM model for the trips table.
type TripModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	PickupLat     float64   `gorm:"not null;index:idx_trips_pickup,priority:1"`
	PickupLng     float64   `gorm:"not null;index:idx_trips_pickup,priority:2"`
	DropLat       float64   `gorm:"not null"`
	DropLng       float64   `gorm:"not null"`
	DepartureTime time.Time `gorm:"not null;index"`
	RoutePolyline string    `gorm:"type:text;not null"`
	RouteDistance float64   `gorm:"not null"`
	RouteDuration float64   `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (TripModel) TableName() string {
	return "trips"
}

// GormTripRepository is the GORM-based implementation of trip.Repository.
type GormTripRepository struct {
	db *gorm.DB
}

// NewGormTripRepository creates a new GormTripRepository.
func NewGormTripRepository(db *gorm.DB) *GormTripRepository {
	return &GormTripRepository{db: db}
}

// FindByID retrieves a trip by its unique identifier.
func (r *GormTripRepository) FindByID(ctx context.Context, id uuid.UUID) (*tripDomain.Trip, error) {
	var model TripModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Trip", id.String())
		}
		return nil, fmt.Errorf("failed to find trip by ID: %w", err)
	}
	return toDomainTrip(&model), nil
}

// FindCandidates retrieves matchable trips whose pickup lies in the query box and whose
// departure lies in the query window.
func (r *GormTripRepository) FindCandidates(ctx context.Context, q tripDomain.CandidateQuery) ([]*tripDomain.Trip, error) {
	ranges := q.PickupBox.LngRanges()
	lng := r.db.Where("pickup_lng BETWEEN ? AND ?", ranges[0][0], ranges[0][1])
	for _, rg := range ranges[1:] {
		lng = lng.Or("pickup_lng BETWEEN ? AND ?", rg[0], rg[1])
	}

	var models []TripModel
	if err := r.db.WithContext(ctx).
		Where("id <> ?", q.ExcludeID).
		Where("pickup_lat BETWEEN ? AND ?", q.PickupBox.MinLat(), q.PickupBox.MaxLat()).
		Where(lng).
		Where("departure_time BETWEEN ? AND ?", q.DepartureFrom, q.DepartureTo).
		Where("route_polyline <> ''").
		Where("route_distance > 0").
		Order("departure_time ASC, id ASC").
		Limit(q.Limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find candidate trips: %w", err)
	}

	trips := make([]*tripDomain.Trip, len(models))
	for i := range models {
		trips[i] = toDomainTrip(&models[i])
	}
	return trips, nil
}

// List retrieves trips with pagination, newest first.
func (r *GormTripRepository) List(ctx context.Context, page, limit int) ([]*tripDomain.Trip, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&TripModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	var models []TripModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}

	trips := make([]*tripDomain.Trip, len(models))
	for i := range models {
		trips[i] = toDomainTrip(&models[i])
	}
	return trips, total, nil
}

// Save persists a new trip.
func (r *GormTripRepository) Save(ctx context.Context, t *tripDomain.Trip) error {
	model := toTripModel(t)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError(fmt.Sprintf("trip %s already exists", t.ID()))
		}
		return fmt.Errorf("failed to save trip: %w", err)
	}
	return nil
}

func toDomainTrip(m *TripModel) *tripDomain.Trip {
	return tripDomain.ReconstructTrip(
		m.ID,
		geo.NewPoint(m.PickupLat, m.PickupLng),
		geo.NewPoint(m.DropLat, m.DropLng),
		m.DepartureTime.UTC(),
		tripDomain.RouteSpecification{
			Geometry:        m.RoutePolyline,
			DistanceMeters:  m.RouteDistance,
			DurationSeconds: m.RouteDuration,
		},
		m.CreatedAt.UTC(),
	)
}

func toTripModel(t *tripDomain.Trip) *TripModel {
	route := t.Route()
	return &TripModel{
		ID:            t.ID(),
		PickupLat:     t.Pickup().Lat,
		PickupLng:     t.Pickup().Lng,
		DropLat:       t.Drop().Lat,
		DropLng:       t.Drop().Lng,
		DepartureTime: t.DepartureTime(),
		RoutePolyline: route.Geometry,
		RouteDistance: route.DistanceMeters,
		RouteDuration: route.DurationSeconds,
		CreatedAt:     t.CreatedAt(),
		UpdatedAt:     t.CreatedAt(),
	}
}
