package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis starts an in-memory Redis server and a client bound to it.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		client.Close()
	})
	return server, client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil, DefaultMaxKeyLength)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	server, client := setupTestRedis(t)
	store := NewRedisStore(client, DefaultMaxKeyLength)
	ctx := context.Background()

	if err := store.Set(ctx, "dbx-v2-p42-n3-srpad", "<div>box</div>", time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := store.Get(ctx, "dbx-v2-p42-n3-srpad")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || got != "<div>box</div>" {
		t.Errorf("Get() = %q, %v; want stored markup", got, ok)
	}

	if ttl := server.TTL("dbx-v2-p42-n3-srpad"); ttl != time.Hour {
		t.Errorf("redis TTL = %v, want 1h", ttl)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	server, client := setupTestRedis(t)
	store := NewRedisStore(client, DefaultMaxKeyLength)
	ctx := context.Background()

	if err := store.Set(ctx, "key", EmptyRender, 15*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok, _ := store.Get(ctx, "key")
	if !ok || got != EmptyRender {
		t.Fatalf("Get() = %q, %v; want empty sentinel", got, ok)
	}

	server.FastForward(16 * time.Minute)
	if _, ok, _ := store.Get(ctx, "key"); ok {
		t.Error("expected entry to expire")
	}
}

func TestRedisStore_Delete(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewRedisStore(client, DefaultMaxKeyLength)
	ctx := context.Background()

	_ = store.Set(ctx, "key", "value", time.Minute)
	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "key"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	server, client := setupTestRedis(t)
	store := NewRedisStore(client, DefaultMaxKeyLength)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() before shutdown = %v", err)
	}
	server.Close()

	if err := store.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail when redis is down")
	}
	_, ok, err := store.Get(context.Background(), "key")
	if err == nil || ok {
		t.Errorf("Get() = %v, %v; want error when redis is down", ok, err)
	}
	if err := store.Set(context.Background(), "key", "v", time.Minute); err == nil {
		t.Error("Set() should fail when redis is down")
	}
}

func TestRedisStore_KeyCeiling(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewRedisStore(client, 10)

	err := store.Set(context.Background(), "dbx-v2-p42-n3-srpad", "v", time.Minute)
	if !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("Set() error = %v, want ErrKeyTooLong", err)
	}
}
