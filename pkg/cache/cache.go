// Package cache provides a lookaside cache for uuid to internal-id lookups.
// It is an optimization only: a miss always falls through to storage.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IDCache maps public user uuids to internal numeric ids
type IDCache interface {
	// GetUserID returns the cached internal id for a uuid, if present
	GetUserID(ctx context.Context, userUUID uuid.UUID) (int64, bool)

	// SetUserID caches the internal id for a uuid
	SetUserID(ctx context.Context, userUUID uuid.UUID, id int64)
}

// RedisIDCache implements IDCache on Redis
type RedisIDCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIDCache creates a Redis-backed id cache
func NewRedisIDCache(client *redis.Client, ttl time.Duration) *RedisIDCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisIDCache{client: client, ttl: ttl}
}

func cacheKey(userUUID uuid.UUID) string {
	return "uid:" + userUUID.String()
}

// GetUserID returns the cached internal id for a uuid, if present
func (c *RedisIDCache) GetUserID(ctx context.Context, userUUID uuid.UUID) (int64, bool) {
	val, err := c.client.Get(ctx, cacheKey(userUUID)).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Debug("Redis id cache read failed", "err", err)
		}
		return 0, false
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SetUserID caches the internal id for a uuid. Write failures are logged and
// ignored; correctness never depends on the cache.
func (c *RedisIDCache) SetUserID(ctx context.Context, userUUID uuid.UUID, id int64) {
	if err := c.client.Set(ctx, cacheKey(userUUID), strconv.FormatInt(id, 10), c.ttl).Err(); err != nil {
		slog.Debug("Redis id cache write failed", "err", err)
	}
}

// NoopIDCache never caches anything
type NoopIDCache struct{}

// GetUserID always misses
func (NoopIDCache) GetUserID(ctx context.Context, userUUID uuid.UUID) (int64, bool) {
	return 0, false
}

// SetUserID discards the entry
func (NoopIDCache) SetUserID(ctx context.Context, userUUID uuid.UUID, id int64) {}
