package warmup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/gdgt-databox/pkg/databox"
)

type fakeRefresher struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	calls   int32
	delay   time.Duration
}

func (f *fakeRefresher) Refresh(ctx context.Context, post databox.PostContext, _ databox.DisplayConfig) databox.Result {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return databox.Result{Outcome: databox.OutcomeFailed}
	}

	if post.PostID%2 == 0 {
		return databox.Result{Outcome: databox.OutcomeGenerated, Key: "k"}
	}
	return databox.Result{Outcome: databox.OutcomeEmpty, Key: "k"}
}

func posts(n int) []databox.PostContext {
	out := make([]databox.PostContext, n)
	for i := range out {
		out[i] = databox.PostContext{PostID: int64(i + 1), Tags: []string{"x"}}
	}
	return out
}

func TestNew_Defaults(t *testing.T) {
	w := New(&fakeRefresher{}, Config{})
	if w.config.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", w.config.MaxConcurrency)
	}
	if w.config.JobTimeout != 45*time.Second {
		t.Errorf("JobTimeout = %v", w.config.JobTimeout)
	}
}

func TestRefreshAll_OrderAndOutcomes(t *testing.T) {
	r := &fakeRefresher{delay: time.Millisecond}
	w := New(r, Config{MaxConcurrency: 3, JobTimeout: time.Second})

	results, err := w.RefreshAll(context.Background(), posts(10), databox.DefaultDisplayConfig())
	if err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("len(results) = %d, want 10", len(results))
	}
	for i, res := range results {
		if res.PostID != int64(i+1) {
			t.Errorf("results[%d].PostID = %d", i, res.PostID)
		}
		want := databox.OutcomeEmpty
		if res.PostID%2 == 0 {
			want = databox.OutcomeGenerated
		}
		if res.Outcome != want {
			t.Errorf("results[%d].Outcome = %s, want %s", i, res.Outcome, want)
		}
	}
}

func TestRefreshAll_BoundedConcurrency(t *testing.T) {
	r := &fakeRefresher{delay: 10 * time.Millisecond}
	w := New(r, Config{MaxConcurrency: 2, JobTimeout: time.Second})

	if _, err := w.RefreshAll(context.Background(), posts(12), databox.DefaultDisplayConfig()); err != nil {
		t.Fatal(err)
	}
	if r.maxSeen > 2 {
		t.Errorf("max concurrent refreshes = %d, want <= 2", r.maxSeen)
	}
	if atomic.LoadInt32(&r.calls) != 12 {
		t.Errorf("calls = %d, want 12", r.calls)
	}
}

func TestRefreshAll_JobTimeout(t *testing.T) {
	r := &fakeRefresher{delay: time.Second}
	w := New(r, Config{MaxConcurrency: 2, JobTimeout: 10 * time.Millisecond})

	results, err := w.RefreshAll(context.Background(), posts(2), databox.DefaultDisplayConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		if res.Outcome != databox.OutcomeFailed {
			t.Errorf("outcome = %s, want failed after job timeout", res.Outcome)
		}
	}
}

func TestRefreshAll_Cancelled(t *testing.T) {
	r := &fakeRefresher{delay: 20 * time.Millisecond}
	w := New(r, Config{MaxConcurrency: 1, JobTimeout: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	results, err := w.RefreshAll(ctx, posts(50), databox.DefaultDisplayConfig())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if len(results) != 50 {
		t.Errorf("len(results) = %d, want one slot per post", len(results))
	}
	if results[49].Outcome != "" {
		t.Error("last post should not have been refreshed")
	}
}
