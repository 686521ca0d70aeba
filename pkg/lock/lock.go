// Package lock implements a Redis-backed lock that lets one process
// regenerate a databox while others wait for its result. Locks expire on
// their own so a crashed holder never blocks a key for longer than the TTL.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
)

// Prometheus metrics for lock acquisition.
var (
	lockAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "databox_lock_attempts_total",
		Help: "Regeneration lock attempts by result (acquired, contended, error)",
	}, []string{"result"})
)

const (
	// DefaultTTL covers one background upstream call plus rendering.
	DefaultTTL = 35 * time.Second

	// KeySuffix is appended to the cache key to form the lock key.
	KeySuffix = "-lock"
)

// ErrNotHeld is returned by unlock when the lock expired or was taken over.
var ErrNotHeld = errors.New("lock: not held")

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out per-key locks stored in Redis.
type RedisLocker struct {
	redis  *redis.Client
	keys   cache.KeyBuilder
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisLocker creates a locker. A ttl <= 0 selects DefaultTTL.
func NewRedisLocker(redisClient *redis.Client, keys cache.KeyBuilder, ttl time.Duration, logger zerolog.Logger) *RedisLocker {
	if redisClient == nil {
		panic("lock: redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{
		redis:  redisClient,
		keys:   keys,
		ttl:    ttl,
		logger: logger,
	}
}

// LockKey returns the Redis key guarding cacheKey.
func (l *RedisLocker) LockKey(cacheKey string) string {
	return Key(l.keys, cacheKey)
}

// Key derives the lock key guarding cacheKey.
func Key(keys cache.KeyBuilder, cacheKey string) string {
	return keys.Derive(cacheKey, KeySuffix, "l")
}

// TryLock attempts to take the lock for cacheKey without waiting. On success
// the returned unlock releases it; unlock reports ErrNotHeld when the lock
// expired in the meantime.
func (l *RedisLocker) TryLock(ctx context.Context, cacheKey string) (func(context.Context) error, bool, error) {
	key := l.LockKey(cacheKey)
	token := uuid.NewString()

	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		lockAttemptsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		lockAttemptsTotal.WithLabelValues("contended").Inc()
		l.logger.Debug().Str("lock_key", key).Msg("Regeneration lock held elsewhere")
		return nil, false, nil
	}

	lockAttemptsTotal.WithLabelValues("acquired").Inc()
	l.logger.Debug().Str("lock_key", key).Dur("ttl", l.ttl).Msg("Regeneration lock acquired")

	unlock := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.redis, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}
	return unlock, true, nil
}
