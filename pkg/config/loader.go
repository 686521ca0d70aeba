package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader builds the effective configuration with env > file > default
// precedence.
type Loader struct {
	envPrefix string
	files     []string
}

// NewLoader returns a Loader reading the given YAML files in order. An empty
// envPrefix disables environment overrides.
func NewLoader(envPrefix string, files ...string) *Loader {
	return &Loader{
		envPrefix: envPrefix,
		files:     files,
	}
}

// Files returns the configured file paths.
func (l *Loader) Files() []string {
	return append([]string(nil), l.files...)
}

// Load assembles and validates the configuration.
func (l *Loader) Load(ctx context.Context) (Config, error) {
	cfg, err := l.Read(ctx)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read assembles the configuration without validating it, for tools that only
// need part of it.
func (l *Loader) Read(ctx context.Context) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(structToMap(DefaultConfig()), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	// every known key, lowercased, mapped to its camelCase spelling so env
	// overrides replace file values instead of sitting beside them
	canonical := make(map[string]string)
	for _, key := range k.Keys() {
		canonical[strings.ToLower(key)] = key
	}

	for _, path := range l.files {
		if path == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return Config{}, ctx.Err()
		default:
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: file %s not found", path)
			}
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
		parser, err := parserFor(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if l.envPrefix != "" {
		transform := func(key, value string) (string, any) {
			// DATABOX_CACHE__REDIS__ADDRESS -> cache.redis.address
			key = strings.TrimPrefix(key, l.envPrefix+"_")
			key = strings.ReplaceAll(key, "__", ".")
			key = strings.ToLower(strings.ReplaceAll(key, "_", ""))
			if mapped, ok := canonical[key]; ok {
				key = mapped
			}
			if key == "display.stopTags" {
				return key, splitList(value)
			}
			return key, value
		}
		if err := k.Load(env.ProviderWithValue(l.envPrefix, ".", transform), nil); err != nil {
			return Config{}, fmt.Errorf("config: load env: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Display = cfg.Display.Normalize()
	return cfg, nil
}

// parserFor picks the file format from the extension; files without one
// are read as YAML.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", "":
		return yaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	case ".toml", ".tml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("config: unsupported file extension %s", filepath.Ext(path))
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// structToMap converts DefaultConfig into a map for the koanf confmap provider.
func structToMap(cfg Config) map[string]any {
	return map[string]any{
		"server": map[string]any{
			"address":         cfg.Server.Address,
			"readTimeout":     cfg.Server.ReadTimeout,
			"writeTimeout":    cfg.Server.WriteTimeout,
			"shutdownTimeout": cfg.Server.ShutdownTimeout,
		},
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"pretty": cfg.Logging.Pretty,
		},
		"api": map[string]any{
			"baseURL":            cfg.API.BaseURL,
			"key":                cfg.API.Key,
			"userAgent":          cfg.API.UserAgent,
			"charset":            cfg.API.Charset,
			"language":           cfg.API.Language,
			"interactiveTimeout": cfg.API.InteractiveTimeout,
			"backgroundTimeout":  cfg.API.BackgroundTimeout,
		},
		"cache": map[string]any{
			"backend":          cfg.Cache.Backend,
			"maxKeyLength":     cfg.Cache.MaxKeyLength,
			"primaryTTL":       cfg.Cache.PrimaryTTL,
			"emptyTTL":         cfg.Cache.EmptyTTL,
			"freshPostTTL":     cfg.Cache.FreshPostTTL,
			"freshPostWindow":  cfg.Cache.FreshPostWindow,
			"lastKnownGoodTTL": cfg.Cache.LastKnownGoodTTL,
			"redis": map[string]any{
				"address":  cfg.Cache.Redis.Address,
				"username": cfg.Cache.Redis.Username,
				"password": cfg.Cache.Redis.Password,
				"db":       cfg.Cache.Redis.DB,
			},
		},
		"lock": map[string]any{
			"enabled": cfg.Lock.Enabled,
			"ttl":     cfg.Lock.TTL,
			"wait":    cfg.Lock.Wait,
		},
		"warmup": map[string]any{
			"maxConcurrency": cfg.Warmup.MaxConcurrency,
			"jobTimeout":     cfg.Warmup.JobTimeout,
		},
		"display": map[string]any{
			"maxProducts":       cfg.Display.MaxProducts,
			"expandAllProducts": cfg.Display.ExpandAllProducts,
			"schemaOrg":         cfg.Display.SchemaOrgEnabled,
			"feedInclude":       cfg.Display.FeedIncludeEnabled,
			"blogID":            cfg.Display.BlogID,
			"minContentWidth":   cfg.Display.MinContentWidth,
			"stopTags":          cfg.Display.StopTags,
			"tabs": map[string]any{
				"specs":       cfg.Display.Tabs.Specs,
				"reviews":     cfg.Display.Tabs.Reviews,
				"prices":      cfg.Display.Tabs.Prices,
				"answers":     cfg.Display.Tabs.Answers,
				"discussions": cfg.Display.Tabs.Discussions,
			},
		},
	}
}
