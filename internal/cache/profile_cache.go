// Package cache provides the cache-aside reads the identity core layers in
// front of its Store: profile-by-ID and stream-by-ID lookups are read far
// more often than they are written, so a short-TTL Redis cache plus
// singleflight dedup keeps repeat reads off the database without the store
// layer itself knowing caching exists.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumicast/core/internal/domain"
)

// ErrMiss is returned by Get when the key is absent from the cache.
var ErrMiss = errors.New("cache miss")

// ProfileCache caches domain.Profile rows keyed by user ID.
type ProfileCache interface {
	Get(ctx context.Context, userID int32) (*domain.Profile, error)
	Set(ctx context.Context, profile *domain.Profile, ttl time.Duration) error
	Delete(ctx context.Context, userID int32) error
}

// RedisProfileCache is the Redis-backed ProfileCache.
type RedisProfileCache struct {
	client *redis.Client
	prefix string
}

// NewRedisProfileCache builds a RedisProfileCache against an already-dialed
// client, namespacing keys under prefix.
func NewRedisProfileCache(client *redis.Client, prefix string) *RedisProfileCache {
	return &RedisProfileCache{client: client, prefix: prefix}
}

func (c *RedisProfileCache) key(userID int32) string {
	return fmt.Sprintf("%s:profile:%d", c.prefix, userID)
}

func (c *RedisProfileCache) Get(ctx context.Context, userID int32) (*domain.Profile, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var p domain.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cache unmarshal: %w", err)
	}
	return &p, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, profile *domain.Profile, ttl time.Duration) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.key(profile.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisProfileCache) Delete(ctx context.Context, userID int32) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
