// Package logging configures the process-wide zerolog logger and the
// component loggers derived from it.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Component loggers created with
// NewLogger afterwards inherit its output and level.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a configured level name.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level, defaulting to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForPost scopes logger to one post and, when known, its cache key.
func ForPost(logger zerolog.Logger, postID int64, cacheKey string) zerolog.Logger {
	ctx := logger.With().Int64("post_id", postID)
	if cacheKey != "" {
		ctx = ctx.Str("cache_key", cacheKey)
	}
	return ctx.Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache reads and writes (key, TTL)
//   - Skipped posts and the skip reason
//   - Product API response sizes
//
// Info: Normal operation events
//   - Databox generated or cached as empty
//   - Explicit refresh and invalidation
//   - Config reloads
//   - Server startup/shutdown
//
// Warn: Conditions the request survives
//   - Upstream failure answered from the last-known-good copy
//   - Cache read/write errors (treated as a miss)
//   - Regeneration lock unavailable
//
// Error: Error conditions requiring attention
//   - Render failures
//   - Service startup failures
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting package (databox, product-client, lock, warmup, server)
//   - post_id: Post being rendered
//   - cache_key: Primary cache key of the post
//   - lock_key: Regeneration lock key
//   - endpoint: Product API path
//   - status: HTTP status from the product API
//   - error_class: Error classification (client, server, network, invalid)
//   - outcome: Generation outcome
//   - ttl: Cache entry TTL
