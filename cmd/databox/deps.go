package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
	"github.com/Sternrassler/gdgt-databox/pkg/client"
	"github.com/Sternrassler/gdgt-databox/pkg/config"
	"github.com/Sternrassler/gdgt-databox/pkg/databox"
	"github.com/Sternrassler/gdgt-databox/pkg/lock"
	"github.com/Sternrassler/gdgt-databox/pkg/logging"
	"github.com/Sternrassler/gdgt-databox/pkg/render"
)

const connectTimeout = 5 * time.Second

// deps is everything a command needs to generate databoxes.
type deps struct {
	store     cache.Store
	client    *client.Client
	generator *databox.Generator
	closers   []func() error
}

// Close releases backend connections.
func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pinger returns the store when it can be probed for readiness.
func (d *deps) pinger() cache.Pinger {
	if p, ok := d.store.(cache.Pinger); ok {
		return p
	}
	return nil
}

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	logger := logging.NewLogger("factory")
	d := &deps{}

	d.store = buildStore(ctx, logger, cfg.Cache, d)

	productClient, err := client.New(cfg.ClientConfig())
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("product client: %w", err)
	}
	d.client = productClient

	renderer, err := render.New()
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("renderer: %w", err)
	}

	keys := cache.NewKeyBuilder(cfg.Cache.MaxKeyLength)
	opts := databox.Options{
		Store:    d.store,
		Client:   productClient,
		Renderer: renderer,
		Keys:     keys,
		LockWait: cfg.Lock.Wait,
		TTLs:     cfg.TTLs(),
	}
	if cfg.Lock.Enabled {
		if locker := buildLocker(ctx, logger, cfg, keys, d); locker != nil {
			opts.Locker = locker
		}
	}

	gen, err := databox.New(opts)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("generator: %w", err)
	}
	d.generator = gen
	return d, nil
}

// buildStore selects the configured backend. A backend that cannot be
// reached degrades to the in-process store so pages keep rendering.
func buildStore(ctx context.Context, logger zerolog.Logger, cfg config.CacheConfig, d *deps) cache.Store {
	switch cfg.Backend {
	case config.BackendRedis:
		rdb, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Error().Err(err).Str("address", cfg.Redis.Address).Msg("Redis store unavailable, falling back to memory")
			break
		}
		d.closers = append(d.closers, rdb.Close)
		logger.Info().Str("address", cfg.Redis.Address).Msg("Using redis store")
		return cache.NewRedisStore(rdb, cfg.MaxKeyLength)

	case config.BackendValkey:
		store, err := cache.NewValkeyStore(ctx, cache.ValkeyConfig{
			Address:      cfg.Redis.Address,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxKeyLength: cfg.MaxKeyLength,
		})
		if err != nil {
			logger.Error().Err(err).Str("address", cfg.Redis.Address).Msg("Valkey store unavailable, falling back to memory")
			break
		}
		d.closers = append(d.closers, func() error { store.Close(); return nil })
		logger.Info().Str("address", cfg.Redis.Address).Msg("Using valkey store")
		return store
	}

	logger.Info().Msg("Using memory store")
	return cache.NewMemoryStore(cfg.MaxKeyLength)
}

// buildLocker returns nil when the lock server is unreachable; generation
// then proceeds with in-process deduplication only.
func buildLocker(ctx context.Context, logger zerolog.Logger, cfg config.Config, keys cache.KeyBuilder, d *deps) databox.Locker {
	rdb, err := connectRedis(ctx, cfg.Cache.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Regeneration lock disabled")
		return nil
	}
	d.closers = append(d.closers, rdb.Close)
	return lock.NewRedisLocker(rdb, keys, cfg.Lock.TTL, logging.NewLogger("lock"))
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}
	return rdb, nil
}
