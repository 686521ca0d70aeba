package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
	"github.com/Sternrassler/gdgt-databox/pkg/client"
	"github.com/Sternrassler/gdgt-databox/pkg/databox"
	"github.com/Sternrassler/gdgt-databox/pkg/logging"
	"github.com/Sternrassler/gdgt-databox/pkg/metrics"
	"github.com/Sternrassler/gdgt-databox/pkg/warmup"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second

	// HeaderOutcome and HeaderKey describe how a databox response was produced.
	HeaderOutcome = "X-Databox-Outcome"
	HeaderKey     = "X-Databox-Key"
)

// Databoxes is the orchestrator surface used by the handlers.
// *databox.Generator implements it.
type Databoxes interface {
	GetOrGenerate(ctx context.Context, post databox.PostContext, cfg databox.DisplayConfig, opts databox.GenerateOptions) databox.Result
	Refresh(ctx context.Context, post databox.PostContext, cfg databox.DisplayConfig) databox.Result
	Invalidate(ctx context.Context, post databox.PostContext, cfg databox.DisplayConfig) error
}

// ProductSearcher backs the editor's product picker. *client.Client
// implements it.
type ProductSearcher interface {
	SearchByTags(ctx context.Context, tags []string) ([]client.ProductRecord, error)
	SearchByKeyword(ctx context.Context, keyword string) ([]client.ProductRecord, error)
}

// Options wires the handler dependencies.
type Options struct {
	Databoxes Databoxes       // required
	Search    ProductSearcher // required
	Settings  *Settings       // required

	// Ready is probed by /ready; nil means always ready
	Ready cache.Pinger

	// Metrics serves /metrics; defaults to metrics.Handler()
	Metrics http.Handler
}

// Handler routes the databox API.
type Handler struct {
	databoxes Databoxes
	search    ProductSearcher
	settings  *Settings
	ready     cache.Pinger
	logger    zerolog.Logger
	mux       *http.ServeMux
}

// NewHandler builds the router.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Databoxes == nil {
		return nil, errors.New("server: databoxes required")
	}
	if opts.Search == nil {
		return nil, errors.New("server: product search required")
	}
	if opts.Settings == nil {
		return nil, errors.New("server: settings required")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Handler()
	}

	h := &Handler{
		databoxes: opts.Databoxes,
		search:    opts.Search,
		settings:  opts.Settings,
		ready:     opts.Ready,
		logger:    log.With().Str("component", "server").Logger(),
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /v1/databox", h.handleDatabox)
	h.mux.HandleFunc("POST /v1/posts/{id}/refresh", h.handleRefresh)
	h.mux.HandleFunc("DELETE /v1/posts/{id}/cache", h.handleInvalidate)
	h.mux.HandleFunc("POST /v1/search", h.handleSearch)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.Handle("GET /metrics", opts.Metrics)

	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// handleDatabox answers with the markup for one post. The status is 200 even
// when nothing can be shown; the outcome header tells why.
func (h *Handler) handleDatabox(w http.ResponseWriter, r *http.Request) {
	post, err := decodePost(r, w, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if post.PostID <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("post_id required"))
		return
	}

	// post content goes upstream only on save-triggered refreshes
	post.Extra = nil

	opts := databox.GenerateOptions{AllowFallback: r.URL.Query().Get("fallback") != "false"}
	res := h.databoxes.GetOrGenerate(r.Context(), post, h.settings.Load(), opts)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(HeaderOutcome, string(res.Outcome))
	if res.Key != "" {
		w.Header().Set(HeaderKey, res.Key)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, res.HTML); err != nil {
		h.logger.Debug().Err(err).Int64("post_id", post.PostID).Msg("Failed to write databox response")
	}
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	post, err := h.postFromPath(r, w)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res := h.databoxes.Refresh(r.Context(), post, h.settings.Load())
	postLogger := logging.ForPost(h.logger, post.PostID, res.Key)
	postLogger.Info().
		Str("outcome", string(res.Outcome)).
		Msg("Databox refreshed")

	writeJSON(w, http.StatusOK, warmup.JobResult{PostID: post.PostID, Key: res.Key, Outcome: res.Outcome})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	post, err := h.postFromPath(r, w)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.databoxes.Invalidate(r.Context(), post, h.settings.Load()); err != nil {
		postLogger := logging.ForPost(h.logger, post.PostID, "")
		postLogger.Warn().Err(err).Msg("Databox invalidation failed")
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchRequest struct {
	Tags    []string `json:"tags"`
	Keyword string   `json:"keyword"`
}

type searchResponse struct {
	Products []client.ProductRecord `json:"products"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, w, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var products []client.ProductRecord
	var err error
	if req.Keyword != "" {
		products, err = h.search.SearchByKeyword(r.Context(), req.Keyword)
	} else {
		products, err = h.search.SearchByTags(r.Context(), req.Tags)
	}

	switch {
	case err == nil:
	case errors.Is(err, client.ErrNoResults):
		products = []client.ProductRecord{}
	case errors.Is(err, client.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err)
		return
	default:
		h.logger.Warn().Err(err).Msg("Product search failed")
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Products: products})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := h.ready.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("Cache store not ready")
			http.Error(w, "cache store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// postFromPath decodes an optional PostContext body and takes the post id
// from the URL.
func (h *Handler) postFromPath(r *http.Request, w http.ResponseWriter) (databox.PostContext, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return databox.PostContext{}, fmt.Errorf("invalid post id %q", r.PathValue("id"))
	}
	post, err := decodePost(r, w, true)
	if err != nil {
		return databox.PostContext{}, err
	}
	post.PostID = id
	return post, nil
}

func decodePost(r *http.Request, w http.ResponseWriter, allowEmpty bool) (databox.PostContext, error) {
	var post databox.PostContext
	if err := decodeJSON(r, w, &post, allowEmpty); err != nil {
		return databox.PostContext{}, err
	}
	return post, nil
}

func decodeJSON(r *http.Request, w http.ResponseWriter, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
