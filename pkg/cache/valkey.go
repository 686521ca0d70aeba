package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

const layerValkey = "valkey"

// ValkeyConfig configures the Valkey backend.
type ValkeyConfig struct {
	Address      string
	Username     string
	Password     string
	DB           int
	MaxKeyLength int
}

// ValkeyStore is a Store backed by a Valkey (or Redis-compatible) server
// through valkey-go.
type ValkeyStore struct {
	client       valkey.Client
	maxKeyLength int
}

// NewValkeyStore connects to the configured server and verifies it with PING.
func NewValkeyStore(ctx context.Context, cfg ValkeyConfig) (*ValkeyStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("cache: valkey address required")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{cfg.Address},
		Username:          cfg.Username,
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		AlwaysRESP2:       true,
		ForceSingleClient: true,
		DisableCache:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: valkey ping: %w", err)
	}

	return &ValkeyStore{client: client, maxKeyLength: cfg.MaxKeyLength}, nil
}

// Get retrieves the value stored under key.
func (s *ValkeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ValidateKey(key, s.maxKeyLength); err != nil {
		CacheErrors.WithLabelValues(layerValkey, "get").Inc()
		return "", false, err
	}

	value, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			CacheMisses.WithLabelValues(layerValkey).Inc()
			return "", false, nil
		}
		CacheErrors.WithLabelValues(layerValkey, "get").Inc()
		return "", false, fmt.Errorf("cache: valkey get: %w", err)
	}

	CacheHits.WithLabelValues(layerValkey).Inc()
	return value, true, nil
}

// Set stores value under key with a millisecond-precision expiry.
func (s *ValkeyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ValidateKey(key, s.maxKeyLength); err != nil {
		CacheErrors.WithLabelValues(layerValkey, "set").Inc()
		return err
	}
	if ttl <= 0 {
		return nil
	}

	cmd := s.client.B().Set().Key(key).Value(value).Px(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		CacheErrors.WithLabelValues(layerValkey, "set").Inc()
		return fmt.Errorf("cache: valkey set: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(key).Build()).Error(); err != nil {
		CacheErrors.WithLabelValues(layerValkey, "delete").Inc()
		return fmt.Errorf("cache: valkey del: %w", err)
	}
	return nil
}

// Close releases the underlying connections.
func (s *ValkeyStore) Close() {
	s.client.Close()
}

// Ping checks the Valkey connection.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}
