//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Geethapranay1/coriding-matching-backend/internal/application"
	"github.com/Geethapranay1/coriding-matching-backend/internal/cache"
	"github.com/Geethapranay1/coriding-matching-backend/internal/config"
	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
	tripDomain "github.com/Geethapranay1/coriding-matching-backend/internal/domain/trip"
	tripEvents "github.com/Geethapranay1/coriding-matching-backend/internal/events"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/database"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/domain"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/kafka"
	"github.com/Geethapranay1/coriding-matching-backend/internal/repository"
	"github.com/Geethapranay1/coriding-matching-backend/internal/routing"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// matchingStack holds wired-up trip and matching service components.
type matchingStack struct {
	Trips           *application.TripService
	Matches         *application.MatchingService
	Cache           cache.Cache
	Consumer        *tripEvents.TripEventConsumer
	CleanupProducer func()
}

// staticRouter serves fixed routes keyed by pickup point.
type staticRouter map[geo.Point]geo.Route

func (r staticRouter) Route(_ context.Context, pickup, _ geo.Point) (*routing.RouteData, error) {
	route, ok := r[pickup]
	if !ok {
		return nil, domain.NewUpstreamRouteError("no route found", nil)
	}
	return &routing.RouteData{
		Geometry:        geo.Encode(route),
		DistanceMeters:  route.Length(),
		DurationSeconds: route.Length() / 10,
	}, nil
}

func line(a, b geo.Point, n int) geo.Route {
	r := make(geo.Route, 0, n+1)
	for i := 0; i <= n; i++ {
		r = append(r, geo.Interpolate(a, b, float64(i)/float64(n)))
	}
	return r
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_matching",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	logger, _ := zap.NewDevelopment()
	pgConfig := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Int(),
		User:     "test",
		Password: "test",
		DBName:   "test_matching",
		SSLMode:  "disable",
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(pgConfig, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(&repository.TripModel{}))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, tripDomain.TopicEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupMatchingStack wires up the trip and matching services against the containers.
func setupMatchingStack(t *testing.T, db *gorm.DB, brokers []string, router routing.Provider) *matchingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	tripRepo := repository.NewGormTripRepository(db)
	resultCache := cache.NewMemoryCache()
	producer := kafka.NewProducer(brokers, logger)

	trips := application.NewTripService(tripRepo, router, producer, logger)
	matches, err := application.NewMatchingService(tripRepo, resultCache, config.DefaultMatchingConfig(), logger)
	require.NoError(t, err)

	groupID := fmt.Sprintf("test-matching-%s", uuid.New().String()[:8])
	consumer := tripEvents.NewTripEventConsumer(brokers, groupID, matches, logger)

	return &matchingStack{
		Trips:           trips,
		Matches:         matches,
		Cache:           resultCache,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
