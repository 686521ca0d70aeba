package cache

import (
	"context"
	"sync"
	"time"
)

const layerMemory = "memory"

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store. It suits single-instance deployments
// and tests; entries are dropped lazily on lookup once expired.
type MemoryStore struct {
	maxKeyLength int
	now          func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory store that rejects keys longer
// than maxKeyLength (0 disables the check).
func NewMemoryStore(maxKeyLength int) *MemoryStore {
	return &MemoryStore{
		maxKeyLength: maxKeyLength,
		now:          time.Now,
		entries:      make(map[string]memoryEntry),
	}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if err := ValidateKey(key, s.maxKeyLength); err != nil {
		CacheErrors.WithLabelValues(layerMemory, "get").Inc()
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return "", false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return "", false, nil
	}
	CacheHits.WithLabelValues(layerMemory).Inc()
	return entry.value, true, nil
}

// Set stores value under key until ttl elapses.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if err := ValidateKey(key, s.maxKeyLength); err != nil {
		CacheErrors.WithLabelValues(layerMemory, "set").Inc()
		return err
	}
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// TTL returns the remaining lifetime of key, or 0 when absent or expired.
func (s *MemoryStore) TTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return 0
	}
	ttl := entry.expiresAt.Sub(s.now())
	if ttl < 0 {
		return 0
	}
	return ttl
}
