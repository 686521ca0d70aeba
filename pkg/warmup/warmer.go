package warmup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/gdgt-databox/pkg/databox"
)

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel refreshes; keep it low,
	// every refresh is one product API call
	MaxConcurrency int `koanf:"maxConcurrency"`

	// JobTimeout bounds a single post refresh
	JobTimeout time.Duration `koanf:"jobTimeout"`
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		JobTimeout:     45 * time.Second,
	}
}

// Refresher regenerates one post. *databox.Generator implements it.
type Refresher interface {
	Refresh(ctx context.Context, post databox.PostContext, cfg databox.DisplayConfig) databox.Result
}

// JobResult is the outcome for one post.
type JobResult struct {
	PostID  int64           `json:"post_id"`
	Key     string          `json:"key,omitempty"`
	Outcome databox.Outcome `json:"outcome"`
}

// Warmer refreshes many posts with bounded concurrency.
type Warmer struct {
	refresher Refresher
	config    Config
}

// New creates a Warmer.
func New(refresher Refresher, config Config) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}
	return &Warmer{refresher: refresher, config: config}
}

// RefreshAll refreshes every post. Results are in input order; posts never
// started because ctx ended carry an empty Outcome and the returned error
// wraps ctx.Err().
func (w *Warmer) RefreshAll(ctx context.Context, posts []databox.PostContext, cfg databox.DisplayConfig) ([]JobResult, error) {
	start := time.Now()
	results := make([]JobResult, len(posts))
	for i, post := range posts {
		results[i].PostID = post.PostID
	}

	log.Info().
		Int("posts", len(posts)).
		Int("max_concurrency", w.config.MaxConcurrency).
		Msg("Starting databox refresh")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.MaxConcurrency)

	for i, post := range posts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			jobCtx, cancel := context.WithTimeout(gctx, w.config.JobTimeout)
			defer cancel()

			res := w.refresher.Refresh(jobCtx, post, cfg)
			results[i].Key = res.Key
			results[i].Outcome = res.Outcome

			log.Debug().
				Int64("post_id", post.PostID).
				Str("cache_key", res.Key).
				Str("outcome", string(res.Outcome)).
				Msg("Post refreshed")
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	done := 0
	counts := make(map[databox.Outcome]int)
	for _, r := range results {
		if r.Outcome != "" {
			done++
			counts[r.Outcome]++
		}
	}

	event := log.Info().
		Int("refreshed", done).
		Int("total", len(posts)).
		Dur("duration", time.Since(start))
	for outcome, n := range counts {
		event = event.Int(string(outcome), n)
	}
	event.Msg("Databox refresh complete")

	if err != nil {
		return results, fmt.Errorf("refresh interrupted (%d/%d posts): %w", done, len(posts), err)
	}
	return results, nil
}
