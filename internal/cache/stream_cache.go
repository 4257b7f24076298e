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

// streamEntry is what StreamCache actually stores: a stream plus its tags,
// since GetStreamByID always returns both together.
type streamEntry struct {
	Stream domain.Stream `json:"stream"`
	Tags   []domain.Tag  `json:"tags"`
}

// StreamCache caches domain.Stream + domain.Tag rows keyed by stream ID.
type StreamCache interface {
	Get(ctx context.Context, streamID int32) (*domain.Stream, []domain.Tag, error)
	Set(ctx context.Context, stream *domain.Stream, tags []domain.Tag, ttl time.Duration) error
	Delete(ctx context.Context, streamID int32) error
}

// RedisStreamCache is the Redis-backed StreamCache.
type RedisStreamCache struct {
	client *redis.Client
	prefix string
}

// NewRedisStreamCache builds a RedisStreamCache against an already-dialed
// client, namespacing keys under prefix.
func NewRedisStreamCache(client *redis.Client, prefix string) *RedisStreamCache {
	return &RedisStreamCache{client: client, prefix: prefix}
}

func (c *RedisStreamCache) key(streamID int32) string {
	return fmt.Sprintf("%s:stream:%d", c.prefix, streamID)
}

func (c *RedisStreamCache) Get(ctx context.Context, streamID int32) (*domain.Stream, []domain.Tag, error) {
	data, err := c.client.Get(ctx, c.key(streamID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, ErrMiss
		}
		return nil, nil, fmt.Errorf("cache get: %w", err)
	}
	var entry streamEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, nil, fmt.Errorf("cache unmarshal: %w", err)
	}
	return &entry.Stream, entry.Tags, nil
}

func (c *RedisStreamCache) Set(ctx context.Context, stream *domain.Stream, tags []domain.Tag, ttl time.Duration) error {
	data, err := json.Marshal(streamEntry{Stream: *stream, Tags: tags})
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.key(stream.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisStreamCache) Delete(ctx context.Context, streamID int32) error {
	if err := c.client.Del(ctx, c.key(streamID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
