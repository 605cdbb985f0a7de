package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Cache stores embedding vectors by key. A miss is reported as found=false
// with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, values []float32) error
}

type MemoryCache struct {
	cache *cache.Cache
}

func NewMemoryCache() *MemoryCache {
	// Default expiration of 1 hour, expired items purged every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &MemoryCache{
		cache: c,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	if x, found := c.cache.Get(key); found {
		return x.([]float32), true, nil
	}
	return nil, false, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, values []float32) error {
	c.cache.Set(key, values, cache.DefaultExpiration)
	return nil
}

const redisKeyPrefix = "embedding:"

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{
		rdb: rdb,
		ttl: 24 * time.Hour,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var values []float32
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false, err
	}
	return values, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, values []float32) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, redisKeyPrefix+key, raw, c.ttl).Err()
}
