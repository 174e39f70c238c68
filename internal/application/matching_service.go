package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Geethapranay1/coriding-matching-backend/internal/cache"
	"github.com/Geethapranay1/coriding-matching-backend/internal/config"
	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/matching"
	tripDomain "github.com/Geethapranay1/coriding-matching-backend/internal/domain/trip"
	"github.com/Geethapranay1/coriding-matching-backend/internal/pkg/domain"
)

// TripMatch is a candidate trip together with its comparison against the base trip.
type TripMatch struct {
	Trip  TripDTO              `json:"trip"`
	Match matching.MatchResult `json:"match"`
}

// CompareRequest holds two encoded routes to compare directly.
type CompareRequest struct {
	GeometryA string     `json:"geometry_a" binding:"required"`
	GeometryB string     `json:"geometry_b" binding:"required"`
	DistanceA float64    `json:"distance_a" binding:"gte=0"`
	DistanceB float64    `json:"distance_b" binding:"gte=0"`
	TimeA     *time.Time `json:"time_a"`
	TimeB     *time.Time `json:"time_b"`
}

// MatchingService ranks candidate trips against a base trip.
type MatchingService struct {
	repo   tripDomain.Repository
	scorer *matching.Scorer
	cache  cache.Cache
	cfg    config.MatchingConfig
	logger *zap.Logger
}

// NewMatchingService creates a MatchingService after validating cfg.
func NewMatchingService(
	repo tripDomain.Repository,
	c cache.Cache,
	cfg config.MatchingConfig,
	logger *zap.Logger,
) (*MatchingService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scorer, err := matching.NewScorer(cfg.Scorer)
	if err != nil {
		return nil, err
	}

	return &MatchingService{
		repo:   repo,
		scorer: scorer,
		cache:  c,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// DepartureWindow returns the ± span around a base departure searched for candidates.
func (s *MatchingService) DepartureWindow() time.Duration {
	return s.cfg.DepartureWindow
}

// TripMatches is a base trip together with its ranked matches.
type TripMatches struct {
	Trip    TripDTO
	Matches []TripMatch
}

// FindMatches returns up to TopN valid matches for the trip, best score first.
// Ranked lists are cached per trip; cache failures never fail the request.
func (s *MatchingService) FindMatches(ctx context.Context, tripID uuid.UUID) ([]TripMatch, error) {
	_, matches, err := s.findMatches(ctx, tripID)
	return matches, err
}

// FindTripMatches is FindMatches that also returns the base trip it loaded.
func (s *MatchingService) FindTripMatches(ctx context.Context, tripID uuid.UUID) (*TripMatches, error) {
	base, matches, err := s.findMatches(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return &TripMatches{Trip: ToTripDTO(base), Matches: matches}, nil
}

func (s *MatchingService) findMatches(ctx context.Context, tripID uuid.UUID) (*tripDomain.Trip, []TripMatch, error) {
	base, err := s.repo.FindByID(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}

	key := cache.KeyMatches(tripID)
	var cached []TripMatch
	hit, err := cache.GetJSON(ctx, s.cache, key, &cached)
	switch {
	case err != nil:
		s.logger.Warn("match cache read failed", zap.String("key", key), zap.Error(err))
	case hit:
		s.logger.Debug("match cache hit", zap.String("trip_id", tripID.String()))
		return base, cached, nil
	}

	if !base.Route().IsMatchable() {
		return base, []TripMatch{}, nil
	}
	baseRoute, err := base.Route().Route()
	if err != nil {
		return nil, nil, domain.NewInternalError(fmt.Sprintf("trip %s has an unreadable route", tripID), err)
	}

	candidates, err := s.repo.FindCandidates(ctx, s.candidateQuery(base))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find candidates: %w", err)
	}

	results, err := s.scoreCandidates(ctx, base, baseRoute, candidates)
	if err != nil {
		return nil, nil, err
	}
	matches := s.rank(candidates, results)

	s.logger.Info("matches computed",
		zap.String("trip_id", tripID.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)),
	)

	if err := cache.SetJSON(ctx, s.cache, key, matches, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("match cache write failed", zap.String("key", key), zap.Error(err))
	}
	return base, matches, nil
}

// CalculateMatch compares two encoded routes without touching the trip store.
func (s *MatchingService) CalculateMatch(req CompareRequest) (*matching.MatchResult, error) {
	result, err := s.scorer.CalculateMatch(req.GeometryA, req.GeometryB, req.DistanceA, req.DistanceB, req.TimeA, req.TimeB)
	if err != nil {
		var decodeErr *geo.DecodeError
		if errors.As(err, &decodeErr) {
			return nil, &domain.AppError{
				Code:    domain.CodeValidation,
				Message: "geometry is not a valid encoded polyline",
				Err:     err,
			}
		}
		return nil, err
	}
	return &result, nil
}

// ClearCache drops the cached match list of one trip, or of every trip when tripID is nil.
func (s *MatchingService) ClearCache(ctx context.Context, tripID *uuid.UUID) error {
	if tripID != nil {
		if err := s.cache.Delete(ctx, cache.KeyMatches(*tripID)); err != nil {
			return fmt.Errorf("failed to clear match cache for trip %s: %w", tripID, err)
		}
		s.logger.Info("match cache cleared", zap.String("trip_id", tripID.String()))
		return nil
	}

	if err := s.cache.DeletePattern(ctx, cache.KeyAllMatches); err != nil {
		return fmt.Errorf("failed to clear match cache: %w", err)
	}
	s.logger.Info("match cache cleared for all trips")
	return nil
}

func (s *MatchingService) candidateQuery(base *tripDomain.Trip) tripDomain.CandidateQuery {
	dep := base.DepartureTime()
	return tripDomain.CandidateQuery{
		ExcludeID:     base.ID(),
		PickupBox:     geo.BoundingBoxAround(base.Pickup(), s.cfg.BoundingBoxDegrees),
		DepartureFrom: dep.Add(-s.cfg.DepartureWindow),
		DepartureTo:   dep.Add(s.cfg.DepartureWindow),
		Limit:         s.cfg.MaxCandidates,
	}
}

// scoreCandidates compares candidates in batches of BatchSize. Each goroutine writes only its
// own slot of the result slice. A nil slot is a candidate that could not be compared.
func (s *MatchingService) scoreCandidates(
	ctx context.Context,
	base *tripDomain.Trip,
	baseRoute geo.Route,
	candidates []*tripDomain.Trip,
) ([]*matching.MatchResult, error) {
	results := make([]*matching.MatchResult, len(candidates))

	for start := 0; start < len(candidates); start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+s.cfg.BatchSize, len(candidates))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = s.compare(base, baseRoute, candidates[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (s *MatchingService) compare(base *tripDomain.Trip, baseRoute geo.Route, candidate *tripDomain.Trip) *matching.MatchResult {
	candidateRoute, err := candidate.Route().Route()
	if err != nil {
		s.logger.Warn("skipping candidate with unreadable route",
			zap.String("trip_id", candidate.ID().String()),
			zap.Error(err),
		)
		return nil
	}

	baseTime, candidateTime := base.DepartureTime(), candidate.DepartureTime()
	result := s.scorer.Compare(matching.ComparisonInput{
		RouteA:    baseRoute,
		RouteB:    candidateRoute,
		DistanceA: base.Route().DistanceMeters,
		DistanceB: candidate.Route().DistanceMeters,
		TimeA:     &baseTime,
		TimeB:     &candidateTime,
	})
	return &result
}

// rank keeps valid results above the overlap floor, best score first. Ties keep candidate order.
func (s *MatchingService) rank(candidates []*tripDomain.Trip, results []*matching.MatchResult) []TripMatch {
	matches := make([]TripMatch, 0, len(results))
	for i, r := range results {
		if r == nil || !r.Valid || r.OverlapPercent < s.cfg.MinOverlap {
			continue
		}
		matches = append(matches, TripMatch{Trip: ToTripDTO(candidates[i]), Match: *r})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Match.Score > matches[j].Match.Score
	})
	if len(matches) > s.cfg.TopN {
		matches = matches[:s.cfg.TopN]
	}
	return matches
}
