package routing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Geethapranay1/coriding-matching-backend/internal/cache"
	"github.com/Geethapranay1/coriding-matching-backend/internal/domain/geo"
)

// CachedProvider memoizes another Provider's routes. Cache failures fall through to the
// wrapped provider.
type CachedProvider struct {
	next   Provider
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider wraps next with a cache of the given TTL.
func NewCachedProvider(next Provider, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "route_cache")),
	}
}

// Route returns the cached route when present, otherwise resolves and caches it.
func (p *CachedProvider) Route(ctx context.Context, pickup, drop geo.Point) (*RouteData, error) {
	key := cache.KeyRoute(pickup, drop)

	var cached RouteData
	found, err := cache.GetJSON(ctx, p.cache, key, &cached)
	if err != nil {
		p.logger.Warn("route cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		return &cached, nil
	}

	route, err := p.next.Route(ctx, pickup, drop)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, p.cache, key, route, p.ttl); err != nil {
		p.logger.Warn("route cache write failed", zap.String("key", key), zap.Error(err))
	}
	return route, nil
}
