// Package redis manages the shared Redis connection.
package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/go-redis/redis/v8"

	"docquery/internal/config"
)

var (
	instance *Client
	once     sync.Once
	initErr  error
)

// Client wraps the go-redis client used by the cache layer.
type Client struct {
	RDB *goredis.Client
}

// GetClient returns the process-wide Redis client, connecting on first
// use and verifying the connection with a ping.
func GetClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	once.Do(func() {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			initErr = fmt.Errorf("cannot connect to redis at %s: %w", cfg.Address, err)
			return
		}
		instance = &Client{RDB: rdb}
	})
	return instance, initErr
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.RDB == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := c.RDB.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close shuts down the connection pool.
func (c *Client) Close() error {
	if c.RDB != nil {
		return c.RDB.Close()
	}
	return nil
}
