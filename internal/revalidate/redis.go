package revalidate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix namespaces page keys in a shared redis.
const DefaultRedisPrefix = "storefront:pages:"

// RedisPageCache shares rendered pages between replicas, so one invalidation is seen by all of them.
type RedisPageCache struct {
	client *redis.Client
	prefix string
}

var _ PageCache = (*RedisPageCache)(nil)

// NewRedisPageCache uses prefix for every key; an empty prefix selects DefaultRedisPrefix.
func NewRedisPageCache(client *redis.Client, prefix string) *RedisPageCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisPageCache{client: client, prefix: prefix}
}

func (c *RedisPageCache) key(pagePath string) string {
	return c.prefix + CacheKey(pagePath)
}

func (c *RedisPageCache) Get(ctx context.Context, pagePath string) ([]byte, bool, error) {
	page, err := c.client.Get(ctx, c.key(pagePath)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read page %s from redis: %w", pagePath, err)
	}
	return page, true, nil
}

func (c *RedisPageCache) Set(ctx context.Context, pagePath string, page []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(pagePath), page, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store page %s in redis: %w", pagePath, err)
	}
	return nil
}

func (c *RedisPageCache) Invalidate(ctx context.Context, pagePath string) error {
	if err := c.client.Del(ctx, c.key(pagePath)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate page %s in redis: %w", pagePath, err)
	}
	return nil
}
