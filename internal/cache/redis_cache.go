// Package cache remembers which URL resolved for a keyword index so repeated
// rotations skip the existence probes.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements the probe cache using Redis
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL and verifies the connection
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient creates a cache from an existing Redis client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{
		client: client,
		prefix: "probe:",
		ttl:    ttl,
	}
}

func (c *RedisCache) key(keyword string, index int) string {
	return fmt.Sprintf("%s%s:%04d", c.prefix, keyword, index)
}

// Lookup returns the cached URL for keyword/index, if any
func (c *RedisCache) Lookup(ctx context.Context, keyword string, index int) (string, bool, error) {
	url, err := c.client.Get(ctx, c.key(keyword, index)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup probe cache: %w", err)
	}
	return url, true, nil
}

// Store caches the resolved URL with the configured TTL
func (c *RedisCache) Store(ctx context.Context, keyword string, index int, url string) error {
	if err := c.client.Set(ctx, c.key(keyword, index), url, c.ttl).Err(); err != nil {
		return fmt.Errorf("store probe cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
