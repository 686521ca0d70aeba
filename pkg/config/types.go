// Package config loads the service configuration from defaults, an optional
// YAML file and DATABOX_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
	"github.com/Sternrassler/gdgt-databox/pkg/client"
	"github.com/Sternrassler/gdgt-databox/pkg/databox"
	"github.com/Sternrassler/gdgt-databox/pkg/lock"
	"github.com/Sternrassler/gdgt-databox/pkg/warmup"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DATABOX"

// Supported cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendValkey = "valkey"
)

// minMaxKeyLength leaves room for every segment of a typical key.
const minMaxKeyLength = 32

// Config is the effective service configuration.
type Config struct {
	Server  ServerConfig          `koanf:"server"`
	Logging LoggingConfig         `koanf:"logging"`
	API     APIConfig             `koanf:"api"`
	Cache   CacheConfig           `koanf:"cache"`
	Lock    LockConfig            `koanf:"lock"`
	Warmup  warmup.Config         `koanf:"warmup"`
	Display databox.DisplayConfig `koanf:"display"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `koanf:"address"`
	ReadTimeout     time.Duration `koanf:"readTimeout"`
	WriteTimeout    time.Duration `koanf:"writeTimeout"`
	ShutdownTimeout time.Duration `koanf:"shutdownTimeout"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// APIConfig configures the product API client.
type APIConfig struct {
	BaseURL            string        `koanf:"baseURL"`
	Key                string        `koanf:"key"`
	UserAgent          string        `koanf:"userAgent"`
	Charset            string        `koanf:"charset"`
	Language           string        `koanf:"language"`
	InteractiveTimeout time.Duration `koanf:"interactiveTimeout"`
	BackgroundTimeout  time.Duration `koanf:"backgroundTimeout"`
}

// CacheConfig selects the render store and its expirations.
type CacheConfig struct {
	Backend          string        `koanf:"backend"`
	MaxKeyLength     int           `koanf:"maxKeyLength"`
	PrimaryTTL       time.Duration `koanf:"primaryTTL"`
	EmptyTTL         time.Duration `koanf:"emptyTTL"`
	FreshPostTTL     time.Duration `koanf:"freshPostTTL"`
	FreshPostWindow  time.Duration `koanf:"freshPostWindow"`
	LastKnownGoodTTL time.Duration `koanf:"lastKnownGoodTTL"`
	Redis            RedisConfig   `koanf:"redis"`
}

// RedisConfig addresses the Redis or Valkey server.
type RedisConfig struct {
	Address  string `koanf:"address"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// LockConfig configures the cross-process regeneration lock.
type LockConfig struct {
	Enabled bool          `koanf:"enabled"`
	TTL     time.Duration `koanf:"ttl"`
	Wait    time.Duration `koanf:"wait"`
}

// DefaultConfig returns the baseline values.
func DefaultConfig() Config {
	ttls := databox.DefaultTTLs()
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    40 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		API: APIConfig{
			BaseURL:            client.DefaultBaseURL,
			UserAgent:          "gdgt-databox/1.0",
			Charset:            "utf-8",
			InteractiveTimeout: client.DefaultInteractiveTimeout,
			BackgroundTimeout:  client.DefaultBackgroundTimeout,
		},
		Cache: CacheConfig{
			Backend:          BackendMemory,
			MaxKeyLength:     cache.DefaultMaxKeyLength,
			PrimaryTTL:       ttls.Primary,
			EmptyTTL:         ttls.Empty,
			FreshPostTTL:     ttls.FreshPost,
			FreshPostWindow:  ttls.FreshPostWindow,
			LastKnownGoodTTL: ttls.LastKnownGood,
			Redis: RedisConfig{
				Address: "localhost:6379",
			},
		},
		Lock: LockConfig{
			TTL:  lock.DefaultTTL,
			Wait: 3 * time.Second,
		},
		Warmup:  warmup.DefaultConfig(),
		Display: databox.DefaultDisplayConfig(),
	}
}

// Validate enforces the invariants the service relies on before serving.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	if strings.TrimSpace(c.API.Key) == "" {
		return errors.New("config: api.key required")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: api.baseURL invalid: %q", c.API.BaseURL)
	}
	if strings.TrimSpace(c.API.UserAgent) == "" {
		return errors.New("config: api.userAgent required")
	}
	if c.API.InteractiveTimeout <= 0 || c.API.BackgroundTimeout <= 0 {
		return errors.New("config: api timeouts must be positive")
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis, BackendValkey:
		if strings.TrimSpace(c.Cache.Redis.Address) == "" {
			return fmt.Errorf("config: cache.redis.address required for %s backend", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("config: cache.backend unsupported: %s", c.Cache.Backend)
	}
	if c.Cache.MaxKeyLength < minMaxKeyLength {
		return fmt.Errorf("config: cache.maxKeyLength must be >= %d: %d", minMaxKeyLength, c.Cache.MaxKeyLength)
	}
	for name, d := range map[string]time.Duration{
		"primaryTTL":       c.Cache.PrimaryTTL,
		"emptyTTL":         c.Cache.EmptyTTL,
		"freshPostTTL":     c.Cache.FreshPostTTL,
		"lastKnownGoodTTL": c.Cache.LastKnownGoodTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("config: cache.%s must be positive: %s", name, d)
		}
	}
	if c.Cache.FreshPostWindow < 0 {
		return fmt.Errorf("config: cache.freshPostWindow invalid: %s", c.Cache.FreshPostWindow)
	}

	if c.Lock.Enabled {
		if c.Cache.Backend == BackendMemory {
			return errors.New("config: lock.enabled requires a redis or valkey cache backend")
		}
		if c.Lock.TTL <= 0 || c.Lock.Wait <= 0 {
			return errors.New("config: lock.ttl and lock.wait must be positive")
		}
	}
	if c.Warmup.MaxConcurrency <= 0 {
		return fmt.Errorf("config: warmup.maxConcurrency must be positive: %d", c.Warmup.MaxConcurrency)
	}
	if c.Display.MaxProducts < 1 || c.Display.MaxProducts > client.MaxLimit {
		return fmt.Errorf("config: display.maxProducts must be 1..%d: %d", client.MaxLimit, c.Display.MaxProducts)
	}
	return nil
}

// TTLs returns the render expirations.
func (c Config) TTLs() databox.TTLs {
	return databox.TTLs{
		Primary:         c.Cache.PrimaryTTL,
		Empty:           c.Cache.EmptyTTL,
		FreshPost:       c.Cache.FreshPostTTL,
		FreshPostWindow: c.Cache.FreshPostWindow,
		LastKnownGood:   c.Cache.LastKnownGoodTTL,
	}
}

// ClientConfig returns the product API client configuration.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:            c.API.BaseURL,
		APIKey:             c.API.Key,
		UserAgent:          c.API.UserAgent,
		Charset:            c.API.Charset,
		Language:           c.API.Language,
		InteractiveTimeout: c.API.InteractiveTimeout,
		BackgroundTimeout:  c.API.BackgroundTimeout,
	}
}
