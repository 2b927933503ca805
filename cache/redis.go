package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ZaguanLabs/slanger"
)

// purgeScanCount is the SCAN page size used by Purge.
const purgeScanCount = 500

// RedisCache is a Redis-backed interpretation cache.
type RedisCache struct {
	client redis.UniversalClient
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	URL         string        // Redis connection URL (e.g., "redis://localhost:6379/0")
	DialTimeout time.Duration // Connection timeout (default: 2s)
}

// NewRedisCache creates a new Redis cache. It does not require the server
// to be reachable: an unreachable Redis just produces errors per call.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	} else {
		opts.DialTimeout = 2 * time.Second
	}
	if opts.ClientName == "" {
		opts.ClientName = slanger.UserAgent()
	}

	return &RedisCache{client: redis.NewClient(opts)}, nil
}

// NewRedisCacheFromClient creates a RedisCache from an existing Redis client.
func NewRedisCacheFromClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores a value in Redis with an expiry.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, effectiveTTL(ttl)).Err()
}

// Purge deletes every key matching prefix*, one SCAN page at a time.
func (c *RedisCache) Purge(ctx context.Context, prefix string) (int, error) {
	removed := 0
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", purgeScanCount).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Ping tests the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Backend = (*RedisCache)(nil)
