package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Geethapranay1/coriding-matching-backend/internal/application"
	"github.com/Geethapranay1/coriding-matching-backend/internal/cache"
	"github.com/Geethapranay1/coriding-matching-backend/internal/config"
	tripDomain "github.com/Geethapranay1/coriding-matching-backend/internal/domain/trip"
	tripEvents "github.com/Geethapranay1/coriding-matching-backend/internal/events"
	"github.com/Geethapranay1/coriding-matching-backend/internal/handler"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/database"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/kafka"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/logger"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/middleware"
	"github.com/Geethapranay1/coriding-matching-backend/internal/repository"
	"github.com/Geethapranay1/coriding-matching-backend/internal/routing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, application.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+application.ServiceName,
		zap.String("port", cfg.Port),
		zap.String("store", cfg.Store),
	)

	checks := make(map[string]handler.HealthCheck)

	// Initialize trip repository
	var tripRepo tripDomain.Repository
	switch cfg.Store {
	case config.StoreMemory:
		tripRepo = repository.NewMemoryTripRepository()
		log.Warn("using in-memory trip store, trips are lost on restart")
	default:
		db, err := database.Connect(cfg.DB, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := db.AutoMigrate(&repository.TripModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed")

		sqlDB, err := db.DB()
		if err != nil {
			log.Fatal("failed to get sql.DB", zap.Error(err))
		}
		defer func() { _ = sqlDB.Close() }()
		checks["postgres"] = sqlDB.PingContext
		tripRepo = repository.NewGormTripRepository(db)
	}

	// Initialize cache
	var resultCache cache.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redisCache.Close() }()
		checks["redis"] = redisCache.Ping
		resultCache = redisCache
	} else {
		log.Warn("redis not configured, using in-process cache")
		resultCache = cache.NewMemoryCache()
	}

	// Initialize routing provider
	osrm := routing.NewOSRMClient(cfg.OSRM.URL, cfg.OSRM.Timeout, log)
	router := routing.NewCachedProvider(osrm, resultCache, cfg.OSRM.RouteCacheTTL, log)

	// Initialize Kafka producer
	var publisher application.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		publisher = kafkaProducer
	} else {
		log.Warn("kafka brokers not configured, trip events are disabled")
	}

	// Initialize application services
	tripService := application.NewTripService(tripRepo, router, publisher, log)
	matchingService, err := application.NewMatchingService(tripRepo, resultCache, cfg.Matching, log)
	if err != nil {
		log.Fatal("failed to create matching service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize and start trip event consumer in a goroutine
	if len(cfg.Kafka.Brokers) > 0 {
		groupID := cfg.Kafka.GroupPrefix + "matching-service"
		tripConsumer := tripEvents.NewTripEventConsumer(
			cfg.Kafka.Brokers,
			groupID,
			matchingService,
			log,
		)
		defer func() { _ = tripConsumer.Close() }()

		go func() {
			log.Info("starting trip event consumer")
			if err := tripConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("trip event consumer error", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	tripHandler := handler.NewTripHandler(tripService)
	matchHandler := handler.NewMatchHandler(matchingService)
	healthHandler := handler.NewHealthHandler(application.ServiceName, checks)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Apply global middleware
	engine.Use(middleware.RecoveryMiddleware(log))
	engine.Use(middleware.LoggerMiddleware(log))
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.CORSMiddleware(cfg.HTTP.CORSOrigins...))
	engine.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler.RegisterRoutes(engine)

	// Register routes
	api := engine.Group("")
	if cfg.RateLimit.RPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 5*time.Minute, log)
		go limiter.Run(ctx.Done())
		api.Use(limiter.Middleware())
	}
	tripHandler.RegisterRoutes(api)
	matchHandler.RegisterRoutes(api)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + application.ServiceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(application.ServiceName + " stopped")
}
