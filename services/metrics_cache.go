package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cdp-analytics/config"

	"github.com/redis/go-redis/v9"
)

// MetricsCache stores serialized dashboard payloads between rebuilds.
// Entries are scoped to a generation; Invalidate starts a new one, so a value
// loaded under an older generation is never served again.
type MetricsCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, gen int64, key string, value interface{}) error
	Invalidate(ctx context.Context) error
}

const (
	metricsKeyPrefix = "cdp:metrics:"
	metricsGenKey    = metricsKeyPrefix + "gen"
)

func metricsKey(gen int64, key string) string {
	return fmt.Sprintf("%sv%d:%s", metricsKeyPrefix, gen, key)
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, metricsGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) Get(ctx context.Context, gen int64, key string, dest interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, metricsKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, gen int64, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, metricsKey(gen, key), raw, c.ttl).Err()
}

// Invalidate bumps the generation and drops the previous generation's
// entries. Called after each successful rebuild.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	gen, err := c.rdb.Incr(ctx, metricsGenKey).Result()
	if err != nil {
		return err
	}

	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("%sv%d:*", metricsKeyPrefix, gen-1), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// NopCache is used when redis is not configured; every read misses.
type NopCache struct{}

func (NopCache) Generation(context.Context) (int64, error)                     { return 0, nil }
func (NopCache) Get(context.Context, int64, string, interface{}) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, int64, string, interface{}) error         { return nil }
func (NopCache) Invalidate(context.Context) error                              { return nil }
