package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cloudsentry/posture/internal/config"
	"github.com/cloudsentry/posture/pkg/logger"
)

// RedisCache is the shared response cache used when multiple instances serve
// the same customer set. Cache failures degrade to misses, never to errors.
type RedisCache struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewRedisCache connects a universal redis client from configuration.
func NewRedisCache(cfg *config.RedisConfig, log logger.Logger) *RedisCache {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisCache{client: client, logger: log.WithComponent("redis-cache")}
}

// NewRedisCacheWithClient wraps an existing client. Tests use this with miniredis.
func NewRedisCacheWithClient(client redis.UniversalClient, log logger.Logger) *RedisCache {
	return &RedisCache{client: client, logger: log.WithComponent("redis-cache")}
}

var _ ResponseCache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn(ctx, "Cache read failed", logger.String("key", key), logger.Err(err))
		}
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn(ctx, "Cache write failed", logger.String("key", key), logger.Err(err))
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn(ctx, "Cache delete failed", logger.String("key", key), logger.Err(err))
	}
}

func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn(ctx, "Cache prefix scan failed", logger.String("prefix", prefix), logger.Err(err))
	}
}

// Close releases the underlying connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
