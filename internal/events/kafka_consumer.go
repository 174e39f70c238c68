package events

import (
	"context"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	tripDomain "github.com/Geethapranay1/coriding-matching-backend/internal/domain/trip"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/kafka"
)

// CacheClearer drops cached match lists. A nil trip clears every list.
type CacheClearer interface {
	ClearCache(ctx context.Context, tripID *uuid.UUID) error
}

// TripEventConsumer listens to trip events and invalidates cached match lists so newly
// created trips show up as candidates before the cache expires.
type TripEventConsumer struct {
	consumer *kafka.Consumer
	matches  CacheClearer
	logger   *zap.Logger
}

// NewTripEventConsumer creates a new TripEventConsumer.
func NewTripEventConsumer(
	brokers []string,
	groupID string,
	matches CacheClearer,
	logger *zap.Logger,
) *TripEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, tripDomain.TopicEvents, logger)
	return &TripEventConsumer{
		consumer: consumer,
		matches:  matches,
		logger:   logger,
	}
}

// Start begins consuming trip events. This blocks until the context is cancelled.
func (c *TripEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *TripEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *TripEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from trip topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	return c.handleEvent(ctx, cloudEvent)
}

func (c *TripEventConsumer) handleEvent(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	switch cloudEvent.Type {
	case tripDomain.EventCreated:
		return c.handleTripCreated(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled trip event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *TripEventConsumer) handleTripCreated(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt tripDomain.CreatedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse trip created event data",
			zap.Error(err),
		)
		return nil
	}

	// Any cached list whose window covers the new trip may now be incomplete.
	if err := c.matches.ClearCache(ctx, nil); err != nil {
		c.logger.Error("failed to clear match cache after trip creation",
			zap.String("trip_id", evt.TripID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("match cache invalidated for new trip",
		zap.String("trip_id", evt.TripID.String()),
	)
	return nil
}
