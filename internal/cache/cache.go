// Package cache implements spec.md §4.10's CacheLayer: a best-effort,
// TTL-bounded key/value store that degrades to a no-op when its redis
// backend is unreachable. No caller may branch on cache health — Get
// returning ("", false) on a down backend looks identical to a clean
// miss.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"airpool/internal/logger"
	"airpool/internal/metrics"
)

// Cache is the capability every engine depends on instead of talking
// to redis directly.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	SetEX(ctx context.Context, key, value string, ttl time.Duration)
	Del(ctx context.Context, keys ...string)
	// KeysGlob lists keys matching a glob pattern (e.g. "notifications:*"),
	// used for bulk invalidation. Returns nil on any backend error.
	KeysGlob(ctx context.Context, pattern string) []string
}

// redisCache is the real implementation. Every method swallows redis
// errors into the "miss"/"no-op" behaviour the interface promises.
type redisCache struct {
	client *redis.Client
}

// Null is returned when REDIS_URL is unset; every operation is a
// deliberate no-op rather than an error.
type Null struct{}

func (Null) Get(ctx context.Context, key string) (string, bool)    { return "", false }
func (Null) SetEX(ctx context.Context, key, value string, ttl time.Duration) {}
func (Null) Del(ctx context.Context, keys ...string)               {}
func (Null) KeysGlob(ctx context.Context, pattern string) []string { return nil }

// New connects to redis at addr. If addr is empty, a Null cache is
// returned and nothing ever dials out.
func New(addr string) Cache {
	if addr == "" {
		logger.Info("cache disabled: no REDIS_URL configured")
		return Null{}
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		// Fall back to treating addr as a bare host:port, the teacher's
		// redis.NewClient(&redis.Options{Addr: redisAddr}) shape.
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Error("cache get failed, treating as miss", "key", key, "err", err)
			metrics.RecordCacheOp("get", "error")
		} else {
			metrics.RecordCacheOp("get", "miss")
		}
		return "", false
	}
	metrics.RecordCacheOp("get", "hit")
	return v, true
}

func (c *redisCache) SetEX(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Error("cache set failed, ignoring", "key", key, "err", err)
		metrics.RecordCacheOp("set", "error")
		return
	}
	metrics.RecordCacheOp("set", "ok")
}

func (c *redisCache) Del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Error("cache del failed, ignoring", "keys", keys, "err", err)
		metrics.RecordCacheOp("del", "error")
		return
	}
	metrics.RecordCacheOp("del", "ok")
}

func (c *redisCache) KeysGlob(ctx context.Context, pattern string) []string {
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		logger.Error("cache keys-glob failed, returning none", "pattern", pattern, "err", err)
		metrics.RecordCacheOp("keys", "error")
		return nil
	}
	metrics.RecordCacheOp("keys", "ok")
	return keys
}
