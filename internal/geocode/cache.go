package geocode

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultCacheTTL is used when CachedLookup is given a non-positive TTL.
const DefaultCacheTTL = 7 * 24 * time.Hour

// Cache is the subset of the Redis client CachedLookup needs.
// *redis.Client satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedLookup is a read-through Redis cache in front of another Lookup.
// Cache errors degrade to a direct lookup; failed lookups are not cached.
type CachedLookup struct {
	next  Lookup
	cache Cache
	ttl   time.Duration
}

// NewCachedLookup wraps next with cache.
func NewCachedLookup(next Lookup, cache Cache, ttl time.Duration) *CachedLookup {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedLookup{next: next, cache: cache, ttl: ttl}
}

// cacheKey rounds to five decimals, roughly one meter.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("geocode:%.5f:%.5f", lat, lon)
}

// Reverse implements Lookup.
func (c *CachedLookup) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	key := cacheKey(lat, lon)

	addr, err := c.cache.Get(ctx, key).Result()
	switch {
	case err == nil && addr != "":
		zap.L().Debug("geocode cache hit", zap.String("key", key))
		return addr, nil
	case err != nil && err != redis.Nil:
		zap.L().Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
	}

	addr, err = c.next.Reverse(ctx, lat, lon)
	if err != nil {
		return "", eris.Wrap(err, "geocode: cached lookup")
	}
	if addr == "" {
		return "", nil
	}

	if err := c.cache.Set(ctx, key, addr, c.ttl).Err(); err != nil {
		zap.L().Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
	return addr, nil
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrapf(err, "geocode: connect to redis %s", opts.Addr)
	}
	return client, nil
}
