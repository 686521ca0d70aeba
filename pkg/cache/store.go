package cache

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for store operations.
var (
	// ErrInvalidKey indicates an empty key or one with characters the host rejects
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrKeyTooLong indicates the key exceeds the configured ceiling
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Store is the TTL key/value store holding rendered databoxes.
//
// Contract:
//   - Get returns ("", false, nil) on a miss; an error means the store could
//     not be consulted and callers treat it as a miss.
//   - Set with ttl <= 0 stores nothing.
//   - Delete is idempotent.
//   - Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ValidateKey checks a key against the host's constraints: printable ASCII
// without spaces and at most maxLength bytes.
func ValidateKey(key string, maxLength int) error {
	if key == "" {
		return ErrInvalidKey
	}
	for i := 0; i < len(key); i++ {
		if c := key[i]; c <= ' ' || c > '~' {
			return ErrInvalidKey
		}
	}
	if maxLength > 0 && len(key) > maxLength {
		return ErrKeyTooLong
	}
	return nil
}

// Pinger is implemented by stores backed by a server that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}
