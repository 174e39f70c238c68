package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/matching"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/database"
)

// EnvPrefix prefixes every environment variable read by the service, e.g. MATCHING_SERVICE_PORT.
const EnvPrefix = "MATCHING"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// KafkaConfig holds broker settings. Events are disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds cache settings. An empty Addr selects the in-process cache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// OSRMConfig holds routing provider settings.
type OSRMConfig struct {
	URL           string
	Timeout       time.Duration
	RouteCacheTTL time.Duration
}

// HTTPConfig holds server timeouts.
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// RateLimitConfig holds per-client request limits. A zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// MatchingConfig holds the candidate matching engine settings and the scorer configuration.
type MatchingConfig struct {
	// BoundingBoxDegrees is the ± pickup span used to retrieve candidates. Default 0.5.
	BoundingBoxDegrees float64 `validate:"gt=0,lte=10"`
	// DepartureWindow is the ± departure span used to retrieve candidates. Default 30m.
	DepartureWindow time.Duration `validate:"gt=0"`
	// MaxCandidates caps candidate retrieval. Default 50.
	MaxCandidates int `validate:"gte=1,lte=1000"`
	// BatchSize is the number of candidates scored concurrently. Default 10.
	BatchSize int `validate:"gte=1,lte=100"`
	// TopN caps the ranked result list. Default 10.
	TopN int `validate:"gte=1"`
	// MinOverlap is the overlap percentage a valid match must reach to be listed. Default 20.
	MinOverlap float64 `validate:"gte=0,lte=100"`
	// CacheTTL is how long a ranked list is served from cache. Default 300s.
	CacheTTL time.Duration `validate:"gt=0"`

	Scorer matching.Config
}

// ServiceConfig holds all configuration for the matching service.
type ServiceConfig struct {
	Port      string
	AppEnv    string
	Store     string
	DB        database.PostgresConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	OSRM      OSRMConfig
	HTTP      HTTPConfig
	RateLimit RateLimitConfig
	Matching  MatchingConfig
}

var validate = validator.New()

// Validate checks the engine settings and the scorer configuration.
func (c MatchingConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid matching config: %w", err)
	}
	return c.Scorer.Validate()
}

// DefaultMatchingConfig returns the engine defaults with the default scorer configuration.
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		BoundingBoxDegrees: 0.5,
		DepartureWindow:    30 * time.Minute,
		MaxCandidates:      50,
		BatchSize:          10,
		TopN:               10,
		MinOverlap:         20,
		CacheTTL:           300 * time.Second,
		Scorer:             matching.DefaultConfig(),
	}
}

// Load reads configuration from environment variables and an optional config.yaml in the
// working directory or ./config.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds and validates a ServiceConfig from v.
func FromViper(v *viper.Viper) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:   ":" + strings.TrimPrefix(v.GetString("SERVICE_PORT"), ":"),
		AppEnv: v.GetString("APP_ENV"),
		Store:  strings.ToLower(v.GetString("STORE")),
		DB: database.PostgresConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		Redis: RedisConfig{
			Addr:      v.GetString("REDIS_ADDR"),
			Password:  v.GetString("REDIS_PASSWORD"),
			DB:        v.GetInt("REDIS_DB"),
			KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
		},
		OSRM: OSRMConfig{
			URL:           v.GetString("OSRM_URL"),
			Timeout:       v.GetDuration("OSRM_TIMEOUT"),
			RouteCacheTTL: v.GetDuration("OSRM_ROUTE_CACHE_TTL"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("HTTP_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("HTTP_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
			CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Matching: loadMatchingConfig(v),
	}

	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("unsupported store %q", cfg.Store)
	}
	if cfg.OSRM.URL == "" {
		return nil, errors.New("OSRM_URL is required")
	}
	if err := cfg.Matching.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadMatchingConfig(v *viper.Viper) MatchingConfig {
	return MatchingConfig{
		BoundingBoxDegrees: v.GetFloat64("BBOX_DEGREES"),
		DepartureWindow:    v.GetDuration("DEPARTURE_WINDOW"),
		MaxCandidates:      v.GetInt("MAX_CANDIDATES"),
		BatchSize:          v.GetInt("BATCH_SIZE"),
		TopN:               v.GetInt("TOP_N"),
		MinOverlap:         v.GetFloat64("MIN_OVERLAP"),
		CacheTTL:           v.GetDuration("CACHE_TTL"),
		Scorer: matching.Config{
			BufferMeters:            v.GetFloat64("BUFFER_METERS"),
			PickupRadiusMeters:      v.GetFloat64("PICKUP_RADIUS_METERS"),
			DestinationRadiusMeters: v.GetFloat64("DEST_RADIUS_METERS"),
			SelfMatchDistanceMeters: v.GetFloat64("SELF_MATCH_DISTANCE_METERS"),
			SelfMatchEndpointMeters: v.GetFloat64("SELF_MATCH_ENDPOINT_METERS"),
			TimeWindow:              v.GetDuration("TIME_WINDOW"),
			TimeWeight:              v.GetFloat64("TIME_WEIGHT"),
			SameDestination:         loadThresholds(v, "SAME_DEST"),
			SameOrigin:              loadThresholds(v, "SAME_ORIGIN"),
			Different:               loadThresholds(v, "DIFFERENT"),
		},
	}
}

func loadThresholds(v *viper.Viper, prefix string) matching.Thresholds {
	return matching.Thresholds{
		MinOverlap:       v.GetFloat64(prefix + "_MIN_OVERLAP"),
		MaxExtraDistance: v.GetFloat64(prefix + "_MAX_EXTRA_DISTANCE"),
		MinScore:         v.GetFloat64(prefix + "_MIN_SCORE"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE", StorePostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coriding")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_GROUP_PREFIX", "coriding-")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "coriding:")

	v.SetDefault("OSRM_URL", "http://router.project-osrm.org")
	v.SetDefault("OSRM_TIMEOUT", "10s")
	v.SetDefault("OSRM_ROUTE_CACHE_TTL", "1h")

	v.SetDefault("HTTP_READ_TIMEOUT", "15s")
	v.SetDefault("HTTP_WRITE_TIMEOUT", "15s")
	v.SetDefault("HTTP_IDLE_TIMEOUT", "60s")
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("CORS_ORIGINS", "")

	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	m := DefaultMatchingConfig()
	v.SetDefault("BBOX_DEGREES", m.BoundingBoxDegrees)
	v.SetDefault("DEPARTURE_WINDOW", m.DepartureWindow.String())
	v.SetDefault("MAX_CANDIDATES", m.MaxCandidates)
	v.SetDefault("BATCH_SIZE", m.BatchSize)
	v.SetDefault("TOP_N", m.TopN)
	v.SetDefault("MIN_OVERLAP", m.MinOverlap)
	v.SetDefault("CACHE_TTL", m.CacheTTL.String())

	s := m.Scorer
	v.SetDefault("BUFFER_METERS", s.BufferMeters)
	v.SetDefault("PICKUP_RADIUS_METERS", s.PickupRadiusMeters)
	v.SetDefault("DEST_RADIUS_METERS", s.DestinationRadiusMeters)
	v.SetDefault("SELF_MATCH_DISTANCE_METERS", s.SelfMatchDistanceMeters)
	v.SetDefault("SELF_MATCH_ENDPOINT_METERS", s.SelfMatchEndpointMeters)
	v.SetDefault("TIME_WINDOW", s.TimeWindow.String())
	v.SetDefault("TIME_WEIGHT", s.TimeWeight)
	setThresholdDefaults(v, "SAME_DEST", s.SameDestination)
	setThresholdDefaults(v, "SAME_ORIGIN", s.SameOrigin)
	setThresholdDefaults(v, "DIFFERENT", s.Different)
}

func setThresholdDefaults(v *viper.Viper, prefix string, t matching.Thresholds) {
	v.SetDefault(prefix+"_MIN_OVERLAP", t.MinOverlap)
	v.SetDefault(prefix+"_MAX_EXTRA_DISTANCE", t.MaxExtraDistance)
	v.SetDefault(prefix+"_MIN_SCORE", t.MinScore)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NewDefaultViper returns a viper instance holding only the built-in defaults.
func NewDefaultViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}
