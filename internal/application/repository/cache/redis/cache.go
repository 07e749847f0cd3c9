// Package redis implements the cache layer. Cache failures are logged and
// treated as misses; a degraded cache never fails a caller.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

type cache struct {
	client  *goredis.Client
	timeout time.Duration
}

// NewCache creates a redis-backed cache with a per-call timeout.
func NewCache(client *goredis.Client, timeout time.Duration) interfaces.Cache {
	return &cache{client: client, timeout: timeout}
}

func (c *cache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Warnf(ctx, "cache get failed for %s, treating as miss: %v", key, err)
		return nil, false
	}
	return val, true
}

func (c *cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Warnf(ctx, "cache set failed for %s: %v", key, err)
	}
}
