package cache

import (
	"context"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"docquery/internal/database/redis"
)

var _ Cache = (*RedisCache)(nil)

// RedisCache backs the Cache interface with Redis so cached documents
// and answers survive restarts and are shared across instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an established Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.RDB.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.RDB.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.RDB.Del(ctx, key).Err()
}
