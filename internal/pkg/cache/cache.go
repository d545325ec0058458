// Package cache is a small JSON cache-aside helper over Redis.
// A helper built with a nil client degrades to a pass-through.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yigit/coursemarket/internal/pkg/logger"
)

// Cache errors
var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// Helper provides prefixed JSON get/set operations
type Helper struct {
	client *redis.Client
	prefix string
}

// NewHelper creates a new cache helper instance
func NewHelper(client *redis.Client, prefix string) *Helper {
	return &Helper{client: client, prefix: prefix}
}

// Available reports whether a Redis client is configured
func (c *Helper) Available() bool {
	return c.client != nil
}

// Key generates a cache key with prefix
func (c *Helper) Key(key string) string {
	return c.prefix + key
}

// Get retrieves and unmarshals data from cache
func (c *Helper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

// Set marshals and stores data in cache
func (c *Helper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	return c.client.Set(ctx, c.Key(key), data, ttl).Err()
}

// Delete removes keys from cache
func (c *Helper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = c.Key(key)
	}
	return c.client.Del(ctx, full...).Err()
}

// Generation reads the counter stored at key. Unset or unreadable counters
// read as zero.
func (c *Helper) Generation(ctx context.Context, key string) int64 {
	if c.client == nil {
		return 0
	}
	n, err := c.client.Get(ctx, c.Key(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Warn().Err(err).Str("key", key).Msg("Cache generation read error")
	}
	return n
}

// Bump increments the counter stored at key
func (c *Helper) Bump(ctx context.Context, key string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.Key(key)).Err()
}

// InvalidatePattern removes all keys matching a pattern using SCAN
func (c *Helper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, c.Key(pattern), 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan pattern error: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// GetOrLoad implements cache-aside: a hit decodes into dest, a miss calls
// load, fills dest and stores the result. Cache failures never fail the call.
func (c *Helper) GetOrLoad(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		logger.Warn().Err(err).Str("key", key).Msg("Cache get error, proceeding to fetch")
	}

	value, err := load()
	if err != nil {
		return err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache set error")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result error: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// SafeInvalidatePattern invalidates a pattern and only logs failures
func SafeInvalidatePattern(ctx context.Context, helper *Helper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		logger.Error().Err(err).Str("pattern", pattern).Msg("Failed to invalidate cache pattern")
	}
}
