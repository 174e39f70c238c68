package trip

import (
	"time"

	"github.com/google/uuid"
)

// TopicEvents carries trip lifecycle events.
const TopicEvents = "trip.events"

// Event types published on TopicEvents.
const (
	EventCreated = "trip.created"
)

// CreatedEvent is published after a trip is stored.
type CreatedEvent struct {
	TripID        uuid.UUID `json:"trip_id"`
	PickupLat     float64   `json:"pickup_lat"`
	PickupLng     float64   `json:"pickup_lng"`
	DropLat       float64   `json:"drop_lat"`
	DropLng       float64   `json:"drop_lng"`
	DepartureTime time.Time `json:"departure_time"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewCreatedEvent builds the creation event for t.
func NewCreatedEvent(t *Trip) CreatedEvent {
	return CreatedEvent{
		TripID:        t.ID(),
		PickupLat:     t.Pickup().Lat,
		PickupLng:     t.Pickup().Lng,
		DropLat:       t.Drop().Lat,
		DropLng:       t.Drop().Lng,
		DepartureTime: t.DepartureTime(),
		OccurredAt:    time.Now().UTC(),
	}
}
