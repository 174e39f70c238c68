package matching

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Thresholds is the validity gate applied to one route relationship.
type Thresholds struct {
	// MinOverlap is the minimum overlap percentage. For destination-sharing routes the shape
	// similarity percentage may satisfy it instead.
	MinOverlap float64 `mapstructure:"min_overlap" json:"min_overlap" validate:"gte=0,lte=100"`
	// MaxExtraDistance is the maximum positive extra-distance percentage.
	MaxExtraDistance float64 `mapstructure:"max_extra_distance" json:"max_extra_distance" validate:"gte=0"`
	// MinScore is the minimum composite score.
	MinScore float64 `mapstructure:"min_score" json:"min_score" validate:"gte=0,lte=100"`
}

// Config holds every tunable of the scorer. It is validated once by NewScorer and never
// mutated afterwards.
type Config struct {
	// BufferMeters is the corridor width used by the overlap metric. Default 150.
	BufferMeters float64 `mapstructure:"buffer_meters" validate:"gt=0"`
	// PickupRadiusMeters is the start-point tolerance used for proximity scoring and
	// same-origin classification. Default 5000.
	PickupRadiusMeters float64 `mapstructure:"pickup_radius_meters" validate:"gt=0"`
	// DestinationRadiusMeters is the end-point tolerance used for proximity scoring and
	// same-destination classification. Default 2000.
	DestinationRadiusMeters float64 `mapstructure:"destination_radius_meters" validate:"gt=0"`

	// SelfMatchDistanceMeters is the total-distance difference under which two trips may be
	// the same physical trip. Default 100.
	SelfMatchDistanceMeters float64 `mapstructure:"self_match_distance_meters" validate:"gte=0"`
	// SelfMatchEndpointMeters is the endpoint distance under which two trips may be the same
	// physical trip. Default 50.
	SelfMatchEndpointMeters float64 `mapstructure:"self_match_endpoint_meters" validate:"gte=0"`

	// TimeWindow is the departure difference at which time compatibility reaches 0. Default 45m.
	TimeWindow time.Duration `mapstructure:"time_window" validate:"gt=0"`
	// TimeWeight is the share of the final score taken by time compatibility. Default 0.25.
	TimeWeight float64 `mapstructure:"time_weight" validate:"gte=0,lte=1"`

	SameDestination Thresholds `mapstructure:"same_destination"`
	SameOrigin      Thresholds `mapstructure:"same_origin"`
	Different       Thresholds `mapstructure:"different"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		BufferMeters:            150,
		PickupRadiusMeters:      5000,
		DestinationRadiusMeters: 2000,
		SelfMatchDistanceMeters: 100,
		SelfMatchEndpointMeters: 50,
		TimeWindow:              45 * time.Minute,
		TimeWeight:              0.25,
		SameDestination:         Thresholds{MinOverlap: 15, MaxExtraDistance: 40, MinScore: 25},
		SameOrigin:              Thresholds{MinOverlap: 20, MaxExtraDistance: 35, MinScore: 30},
		Different:               Thresholds{MinOverlap: 30, MaxExtraDistance: 25, MinScore: 40},
	}
}

var validate = validator.New()

// Validate checks the config against its field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid matching config: %w", err)
	}
	return nil
}

// ThresholdsFor returns the validity gate for a relationship. Routes sharing both endpoints
// are judged as destination-sharing routes.
func (c Config) ThresholdsFor(rel Relationship) Thresholds {
	switch rel {
	case SameDestination, SameOriginAndDestination:
		return c.SameDestination
	case SameOrigin:
		return c.SameOrigin
	default:
		return c.Different
	}
}
