// Package cache provides databox cache keys and the TTL stores that hold
// rendered databoxes.
//
// Keys are short, deterministic and bounded by the host's option-name limit
// (45 characters by default). Every display setting that changes the markup
// is part of the key, so two configurations that render differently never
// share an entry.
//
// # Basic Usage
//
//	keys := cache.NewKeyBuilder(cache.DefaultMaxKeyLength)
//	key := keys.Build(42, cache.KeyConfig{
//		MaxProducts: 3,
//		Tabs:        cache.AllTabs(),
//		SchemaOrg:   true,
//	}, cache.KeyContext{ContentWidth: 700})
//	// key == "dbx-v2-p42-n3-srpad"
//
//	lkg := keys.LastKnownGood(key)
//	// lkg == "dbx-v2-p42-n3-srpad-lkg"
//
// # Stores
//
// Three Store implementations are provided:
//
//   - MemoryStore: in-process map with lazy expiry
//   - RedisStore: go-redis client, expiry delegated to Redis
//   - ValkeyStore: valkey-go client for Valkey or Redis-compatible servers
//
// An entry holding EmptyRender means the upstream was asked and had nothing
// to show; an absent entry means the post has not been checked.
//
// # Metrics
//
//   - databox_cache_hits_total{layer}
//   - databox_cache_misses_total{layer}
//   - databox_cache_errors_total{layer,operation}
package cache
