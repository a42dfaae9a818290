package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cache stores short-lived JSON snapshots of public read models.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	Delete(ctx context.Context, keys ...string)
}

const (
	cacheKeyLeaderboard = "blaze:leaderboard"
	cacheKeyPricing     = "blaze:pricing"
)

// RedisCache is a Cache on top of Redis. Errors are logged and treated as
// misses so a cache outage never fails a request.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisCache(ctx context.Context, url string, ttl time.Duration, log *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCacheWithClient(client, ttl, log), nil
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string, dst interface{}) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.log.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("Cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("Cache entry unencodable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("Cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoopCache never hits.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, interface{}) bool { return false }
func (NoopCache) Set(context.Context, string, interface{})      {}
func (NoopCache) Delete(context.Context, ...string)             {}
