package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const layerRedis = "redis"

// RedisStore is a Store backed by Redis. Expiry is delegated to Redis TTLs.
type RedisStore struct {
	redis        *redis.Client
	maxKeyLength int
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client, maxKeyLength int) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:        redisClient,
		maxKeyLength: maxKeyLength,
	}
}

// Get retrieves the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ValidateKey(key, s.maxKeyLength); err != nil {
		CacheErrors.WithLabelValues(layerRedis, "get").Inc()
		return "", false, err
	}

	value, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues(layerRedis).Inc()
			return "", false, nil
		}
		CacheErrors.WithLabelValues(layerRedis, "get").Inc()
		return "", false, fmt.Errorf("redis get: %w", err)
	}

	CacheHits.WithLabelValues(layerRedis).Inc()
	return value, true, nil
}

// Set stores value under key; Redis removes it once ttl elapses.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ValidateKey(key, s.maxKeyLength); err != nil {
		CacheErrors.WithLabelValues(layerRedis, "set").Inc()
		return err
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues(layerRedis, "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		CacheErrors.WithLabelValues(layerRedis, "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
