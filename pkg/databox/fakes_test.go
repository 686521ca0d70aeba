package databox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
	"github.com/Sternrassler/gdgt-databox/pkg/client"
)

// recordingStore is a MemoryStore that remembers reads and write TTLs.
type recordingStore struct {
	*cache.MemoryStore

	mu   sync.Mutex
	ttls map[string]time.Duration
	gets []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		MemoryStore: cache.NewMemoryStore(cache.DefaultMaxKeyLength),
		ttls:        make(map[string]time.Duration),
	}
}

func (s *recordingStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	s.gets = append(s.gets, key)
	s.mu.Unlock()
	return s.MemoryStore.Get(ctx, key)
}

func (s *recordingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	s.ttls[key] = ttl
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

func (s *recordingStore) setTTL(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ttl, ok := s.ttls[key]
	return ttl, ok
}

func (s *recordingStore) read(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.gets {
		if k == key {
			return true
		}
	}
	return false
}

func (s *recordingStore) value(key string) (string, bool) {
	v, ok, _ := s.MemoryStore.Get(context.Background(), key)
	return v, ok
}

// brokenStore fails every operation.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Get(context.Context, string) (string, bool, error) { return "", false, errStoreDown }
func (brokenStore) Set(context.Context, string, string, time.Duration) error {
	return errStoreDown
}
func (brokenStore) Delete(context.Context, string) error { return errStoreDown }

// fakeFetcher returns canned products or an error and counts calls.
type fakeFetcher struct {
	mu       sync.Mutex
	products []client.ProductRecord
	err      error
	calls    int
	requests []client.FetchRequest

	// block, when set, is waited on before returning
	block chan struct{}
}

func (f *fakeFetcher) FetchProducts(_ context.Context, req client.FetchRequest) ([]client.ProductRecord, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]client.ProductRecord(nil), f.products...), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) lastRequest() client.FetchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// fakeRenderer records the products it was asked to render.
type fakeRenderer struct {
	mu       sync.Mutex
	html     string
	err      error
	rendered [][]client.ProductRecord
}

func (r *fakeRenderer) Render(products []client.ProductRecord, _ DisplayConfig, _ cache.KeyContext) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, products)
	if r.err != nil {
		return "", r.err
	}
	if r.html != "" {
		return r.html, nil
	}
	return "<div>" + products[0].Name + "</div>", nil
}

// fakeLocker reports the lock as held by someone else.
type fakeLocker struct {
	held bool
	err  error

	mu       sync.Mutex
	acquired int
	released int
}

func (l *fakeLocker) TryLock(context.Context, string) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.mu.Lock()
	l.acquired++
	l.mu.Unlock()
	return func(context.Context) error {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
		return nil
	}, true, nil
}
