// Package redcache implements the report cache on Redis.
package redcache

import (
	"context"
	"fmt"
	"time"

	"github.com/havenlabs/haven-core-go/internal/port"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewClient creates a Redis client and verifies the connection.
func NewClient(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// ReportCache implements port.ReportCache on Redis. Failures degrade to
// cache misses; the cache never makes a report call fail.
type ReportCache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewReportCache(client *redis.Client, logger *zap.Logger) *ReportCache {
	return &ReportCache{client: client, prefix: "haven:report:", logger: logger}
}

var _ port.ReportCache = (*ReportCache)(nil)

func (c *ReportCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return raw, true
}

func (c *ReportCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}
