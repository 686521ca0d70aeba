package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewValkeyStore_RequiresAddress(t *testing.T) {
	if _, err := NewValkeyStore(context.Background(), ValkeyConfig{}); err == nil {
		t.Error("expected error without address")
	}
}

func TestValkeyStore_SetGetDelete(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()

	store, err := NewValkeyStore(ctx, ValkeyConfig{Address: server.Addr(), MaxKeyLength: DefaultMaxKeyLength})
	if err != nil {
		t.Fatalf("NewValkeyStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() = %v", err)
	}
	if _, ok, err := store.Get(ctx, "dbx-v2-p1-n10-srpad"); err != nil || ok {
		t.Fatalf("Get() on empty store = %v, %v; want miss", ok, err)
	}

	if err := store.Set(ctx, "dbx-v2-p1-n10-srpad", "<div>box</div>", 500*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok, err := store.Get(ctx, "dbx-v2-p1-n10-srpad")
	if err != nil || !ok || got != "<div>box</div>" {
		t.Fatalf("Get() = %q, %v, %v; want stored markup", got, ok, err)
	}

	server.FastForward(time.Second)
	if _, ok, _ := store.Get(ctx, "dbx-v2-p1-n10-srpad"); ok {
		t.Error("expected valkey entry to expire")
	}

	_ = store.Set(ctx, "key", "value", time.Minute)
	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "key"); ok {
		t.Error("expected miss after Delete")
	}
}
