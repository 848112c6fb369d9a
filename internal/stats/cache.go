package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hyredlabs/outreach-console/pkg/logging"
)

// Cache is a JSON value cache over redis with a fixed TTL. Campaign stats
// from the upstream platform are expensive to recompute, so the dashboard
// reads them through here.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *logging.Logger
}

// NewCache creates a cache. A zero ttl defaults to 30 minutes.
func NewCache(rdb *redis.Client, ttl time.Duration, logger *logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl, prefix: "outreach:stats:", logger: logger}
}

// Get unmarshals the cached value for key into dest. It returns false on a
// miss without touching dest.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stats: cache read failed: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A corrupt entry behaves like a miss so the caller recomputes.
		c.logger.Warn("stats cache entry corrupt", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// Set stores value under key for the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("stats: cache marshal failed: %w", err)
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("stats: cache write failed: %w", err)
	}
	return nil
}

// Invalidate drops a cached entry, used when a campaign changes status.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("stats: cache invalidate failed: %w", err)
	}
	return nil
}
