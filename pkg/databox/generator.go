// Package databox decides, for one post, whether to serve a cached databox,
// regenerate it from the product API, or fall back to the last known good
// render. No failure reaches the page: the worst outcome is an empty databox.
package databox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
	"github.com/Sternrassler/gdgt-databox/pkg/client"
)

// Outcome describes how a databox request was served.
type Outcome string

const (
	// OutcomeSkipped: the post is not eligible (disabled, stop tag, narrow theme, feed)
	OutcomeSkipped Outcome = "skipped"
	// OutcomeInsufficient: no tags and no included products
	OutcomeInsufficient Outcome = "insufficient"
	// OutcomeHit: served from the primary key
	OutcomeHit Outcome = "hit"
	// OutcomeGenerated: fetched, rendered and stored
	OutcomeGenerated Outcome = "generated"
	// OutcomeEmpty: the API had nothing to show; the empty marker was stored
	OutcomeEmpty Outcome = "empty"
	// OutcomeFallback: upstream failed, served the last known good render
	OutcomeFallback Outcome = "fallback"
	// OutcomeFailed: upstream failed and nothing could be served
	OutcomeFailed Outcome = "failed"
)

// Result is the outcome of a databox request. HTML is empty unless there is
// something to show.
type Result struct {
	HTML    string
	Outcome Outcome
	Key     string
}

// ProductFetcher fetches product records for a post.
type ProductFetcher interface {
	FetchProducts(ctx context.Context, req client.FetchRequest) ([]client.ProductRecord, error)
}

// Renderer turns product records into databox HTML.
type Renderer interface {
	Render(products []client.ProductRecord, cfg DisplayConfig, kc cache.KeyContext) (string, error)
}

// Locker serializes regeneration of one key across processes. TryLock
// returns ok=false when another holder owns the lock.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(context.Context) error, ok bool, err error)
}

// TTLs controls how long renders are kept.
type TTLs struct {
	// Primary applies to non-empty renders
	Primary time.Duration

	// Empty applies to the empty marker for older posts
	Empty time.Duration

	// FreshPost applies to the empty marker for posts published within
	// FreshPostWindow, so new products are picked up sooner
	FreshPost       time.Duration
	FreshPostWindow time.Duration

	LastKnownGood time.Duration
}

// DefaultTTLs returns the standard expirations.
func DefaultTTLs() TTLs {
	return TTLs{
		Primary:         time.Hour,
		Empty:           time.Hour,
		FreshPost:       15 * time.Minute,
		FreshPostWindow: 24 * time.Hour,
		LastKnownGood:   24 * time.Hour,
	}
}

// Options configures a Generator.
type Options struct {
	Store    cache.Store    // required
	Client   ProductFetcher // required
	Renderer Renderer       // required

	Keys cache.KeyBuilder

	// Locker is optional; without it only in-process callers are deduplicated
	Locker Locker

	// LockWait bounds how long a caller that lost the lock polls for the
	// winner's render
	LockWait      time.Duration
	LockPollEvery time.Duration

	TTLs TTLs

	Clock  func() time.Time
	Logger *zerolog.Logger
}

// GenerateOptions tunes a single request.
type GenerateOptions struct {
	// AllowFallback serves the last known good render when upstream fails
	AllowFallback bool

	// ForceRefresh skips the primary lookup
	ForceRefresh bool

	// Key overrides the computed cache key
	Key string

	// Background selects the long upstream timeout
	Background bool
}

var errLockWait = errors.New("timed out waiting for concurrent regeneration")

// Generator is the databox cache orchestrator. It is safe for concurrent use.
type Generator struct {
	store    cache.Store
	client   ProductFetcher
	renderer Renderer
	keys     cache.KeyBuilder
	locker   Locker

	lockWait time.Duration
	lockPoll time.Duration
	ttls     TTLs
	now      func() time.Time
	logger   zerolog.Logger

	flight singleflight.Group
}

// New creates a Generator.
func New(opts Options) (*Generator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("product client is required")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if opts.Keys.MaxLength == 0 {
		opts.Keys = cache.NewKeyBuilder(cache.DefaultMaxKeyLength)
	}
	if opts.TTLs == (TTLs{}) {
		opts.TTLs = DefaultTTLs()
	}
	if opts.LockWait <= 0 {
		opts.LockWait = 3 * time.Second
	}
	if opts.LockPollEvery <= 0 {
		opts.LockPollEvery = 50 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	logger := log.With().Str("component", "databox").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Generator{
		store:    opts.Store,
		client:   opts.Client,
		renderer: opts.Renderer,
		keys:     opts.Keys,
		locker:   opts.Locker,
		lockWait: opts.LockWait,
		lockPoll: opts.LockPollEvery,
		ttls:     opts.TTLs,
		now:      opts.Clock,
		logger:   logger,
	}, nil
}

// Key returns the primary cache key for post under cfg.
func (g *Generator) Key(post PostContext, cfg DisplayConfig) string {
	post = post.Normalize()
	cfg = cfg.Normalize()
	return g.keys.Build(post.PostID, cfg.KeyConfig(), post.KeyContext())
}

// GetOrGenerate returns the databox for post. It never fails; problems are
// logged and reported through Result.Outcome.
func (g *Generator) GetOrGenerate(ctx context.Context, post PostContext, cfg DisplayConfig, opts GenerateOptions) Result {
	start := time.Now()
	res := g.getOrGenerate(ctx, post.Normalize(), cfg.Normalize(), opts)

	generateTotal.WithLabelValues(string(res.Outcome)).Inc()
	generateDuration.Observe(time.Since(start).Seconds())

	g.logger.Debug().
		Int64("post_id", post.PostID).
		Str("cache_key", res.Key).
		Str("outcome", string(res.Outcome)).
		Dur("duration", time.Since(start)).
		Msg("Databox served")

	return res
}

// Refresh regenerates the databox after the post was edited. The primary
// entry is dropped first and upstream failures are not masked by the last
// known good render. post.Extra is forwarded to the product API.
func (g *Generator) Refresh(ctx context.Context, post PostContext, cfg DisplayConfig) Result {
	key := g.Key(post, cfg)
	if err := g.store.Delete(ctx, key); err != nil {
		g.logger.Warn().Err(err).Str("cache_key", key).Msg("Failed to drop cached databox")
	}
	return g.GetOrGenerate(ctx, post, cfg, GenerateOptions{
		ForceRefresh: true,
		Key:          key,
		Background:   true,
	})
}

// Invalidate removes the primary and last known good entries for post.
func (g *Generator) Invalidate(ctx context.Context, post PostContext, cfg DisplayConfig) error {
	key := g.Key(post, cfg)
	var errs []error
	for _, k := range []string{key, g.keys.LastKnownGood(key)} {
		if err := g.store.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

func (g *Generator) getOrGenerate(ctx context.Context, post PostContext, cfg DisplayConfig, opts GenerateOptions) Result {
	if reason := Eligibility(post, cfg); reason != SkipNone {
		g.logger.Debug().Int64("post_id", post.PostID).Str("reason", string(reason)).Msg("Databox skipped")
		return Result{Outcome: OutcomeSkipped}
	}
	if !post.HasInput() {
		return Result{Outcome: OutcomeInsufficient}
	}

	key := opts.Key
	if key == "" {
		key = g.keys.Build(post.PostID, cfg.KeyConfig(), post.KeyContext())
	}

	if !opts.ForceRefresh {
		if html, ok := g.lookup(ctx, key); ok {
			return Result{HTML: displayable(html), Outcome: OutcomeHit, Key: key}
		}
	}

	// Concurrent misses for one key share a single upstream call. The
	// shared call outlives any one caller's cancellation; the client
	// timeout still bounds it. Refreshes get their own group so they
	// never inherit a page render's timeout, tags or missing Extra.
	v, _, _ := g.flight.Do(flightKey(key, opts), func() (any, error) {
		return g.regenerate(context.WithoutCancel(ctx), key, post, cfg, opts), nil
	})
	gen := v.(generation)

	if gen.err != nil {
		return g.fallback(ctx, key, post, gen.err, opts)
	}
	return Result{HTML: displayable(gen.html), Outcome: gen.outcome, Key: key}
}

func flightKey(key string, opts GenerateOptions) string {
	if opts.ForceRefresh || opts.Background {
		return key + "|refresh"
	}
	return key
}

type generation struct {
	html    string
	outcome Outcome
	err     error
}

func (g *Generator) regenerate(ctx context.Context, key string, post PostContext, cfg DisplayConfig, opts GenerateOptions) generation {
	if g.locker != nil {
		unlock, ok, err := g.locker.TryLock(ctx, key)
		switch {
		case err != nil:
			g.logger.Warn().Err(err).Str("cache_key", key).Msg("Regeneration lock unavailable, continuing unlocked")
		case !ok && opts.ForceRefresh:
			// the holder may be rendering the post as it was before the edit
			g.logger.Debug().Str("cache_key", key).Msg("Regeneration lock held, refreshing unlocked")
		case !ok:
			return g.awaitPeer(ctx, key)
		default:
			defer func() {
				if err := unlock(ctx); err != nil {
					g.logger.Warn().Err(err).Str("cache_key", key).Msg("Failed to release regeneration lock")
				}
			}()
		}
	}

	products, err := g.client.FetchProducts(ctx, client.FetchRequest{
		Tags:       post.Tags,
		Include:    post.IncludedProductSlugs,
		Exclude:    post.ExcludedProductSlugs,
		Limit:      cfg.MaxProducts,
		Extra:      post.Extra,
		Background: opts.Background,
	})
	if err != nil {
		return generation{err: err}
	}

	// a product and its instances count once toward MaxProducts
	products = client.CleanProducts(products, true)
	if len(products) > cfg.MaxProducts {
		products = products[:cfg.MaxProducts]
	}

	var html string
	if len(products) > 0 {
		html, err = g.renderer.Render(products, cfg, post.KeyContext())
		if err != nil {
			return generation{err: fmt.Errorf("render: %w", err)}
		}
	}

	if strings.TrimSpace(html) == "" {
		ttl := g.emptyTTL(post)
		g.save(ctx, key, cache.EmptyRender, ttl)
		g.logger.Info().
			Int64("post_id", post.PostID).
			Str("cache_key", key).
			Dur("ttl", ttl).
			Msg("No products for post")
		return generation{outcome: OutcomeEmpty}
	}

	g.save(ctx, key, html, g.ttls.Primary)
	g.save(ctx, g.keys.LastKnownGood(key), html, g.ttls.LastKnownGood)

	g.logger.Info().
		Int64("post_id", post.PostID).
		Str("cache_key", key).
		Int("products", len(products)).
		Msg("Databox generated")

	return generation{html: html, outcome: OutcomeGenerated}
}

// awaitPeer polls the primary key while another process regenerates it.
func (g *Generator) awaitPeer(ctx context.Context, key string) generation {
	deadline := time.NewTimer(g.lockWait)
	defer deadline.Stop()
	ticker := time.NewTicker(g.lockPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if html, ok := g.lookup(ctx, key); ok {
				return generation{html: html, outcome: OutcomeHit}
			}
		case <-deadline.C:
			return generation{err: errLockWait}
		case <-ctx.Done():
			return generation{err: ctx.Err()}
		}
	}
}

func (g *Generator) fallback(ctx context.Context, key string, post PostContext, cause error, opts GenerateOptions) Result {
	event := g.logger.Warn().Err(cause).Int64("post_id", post.PostID).Str("cache_key", key)
	var apiErr *client.APIError
	if errors.As(cause, &apiErr) {
		event = event.Str("error_class", string(apiErr.ErrorClass))
	}

	if !opts.AllowFallback {
		event.Msg("Databox generation failed")
		return Result{Outcome: OutcomeFailed, Key: key}
	}

	html, ok := g.lookup(ctx, g.keys.LastKnownGood(key))
	if !ok || cache.IsEmptyRender(html) {
		event.Msg("Databox generation failed, no fallback available")
		return Result{Outcome: OutcomeFailed, Key: key}
	}

	event.Msg("Databox generation failed, serving last known good")
	return Result{HTML: html, Outcome: OutcomeFallback, Key: key}
}

// lookup reads key, treating store errors as misses.
func (g *Generator) lookup(ctx context.Context, key string) (string, bool) {
	html, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.logger.Warn().Err(err).Str("cache_key", key).Msg("Cache read failed, treating as miss")
		return "", false
	}
	return html, ok
}

// save writes key, treating store errors as no-ops.
func (g *Generator) save(ctx context.Context, key, value string, ttl time.Duration) {
	if err := g.store.Set(ctx, key, value, ttl); err != nil {
		g.logger.Warn().Err(err).Str("cache_key", key).Dur("ttl", ttl).Msg("Cache write failed")
		return
	}
	g.logger.Debug().Str("cache_key", key).Dur("ttl", ttl).Msg("Cache write")
}

// emptyTTL keeps "nothing to show" short for new posts; matching products
// often appear within a day of publication.
func (g *Generator) emptyTTL(post PostContext) time.Duration {
	if post.PublishedAt != nil && g.now().Sub(*post.PublishedAt) < g.ttls.FreshPostWindow {
		return g.ttls.FreshPost
	}
	return g.ttls.Empty
}

func displayable(html string) string {
	if cache.IsEmptyRender(html) {
		return ""
	}
	return html
}
