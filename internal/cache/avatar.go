// Package cache holds the read-through cache for public avatar images.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type AvatarCache interface {
	Get(ctx context.Context, id uuid.UUID) ([]byte, bool, error)
	Set(ctx context.Context, id uuid.UUID, data []byte) error
	Delete(ctx context.Context, id uuid.UUID) error
}

func avatarKey(id uuid.UUID) string {
	return "avatar:" + id.String()
}

type RedisAvatarCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAvatarCache(client *redis.Client, ttl time.Duration) *RedisAvatarCache {
	return &RedisAvatarCache{client: client, ttl: ttl}
}

func (c *RedisAvatarCache) Get(ctx context.Context, id uuid.UUID) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, avatarKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisAvatarCache) Set(ctx context.Context, id uuid.UUID, data []byte) error {
	return c.client.SetEX(ctx, avatarKey(id), data, c.ttl).Err()
}

func (c *RedisAvatarCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, avatarKey(id)).Err()
}

// Noop is used when redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, uuid.UUID) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, uuid.UUID, []byte) error         { return nil }
func (Noop) Delete(context.Context, uuid.UUID) error              { return nil }
