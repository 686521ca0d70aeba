// Package client provides the HTTP client for the gdgt product API: the
// product module used to build databoxes and the product search used by the
// post editor.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for product API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "databox_api_requests_total",
		Help: "Total product API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "databox_api_request_duration_seconds",
		Help:    "Product API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "databox_api_errors_total",
		Help: "Total product API errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the product API root.
	DefaultBaseURL = "http://api.gdgt.com/"

	// ModulePath is the product module endpoint relative to the base URL.
	ModulePath = "v2/product/module"

	// SearchPath is the product search endpoint relative to the base URL.
	SearchPath = "v3/search/product/"

	// MaxLimit is the most products the module endpoint returns.
	MaxLimit = 10

	// DefaultInteractiveTimeout bounds calls made while a page is rendering.
	DefaultInteractiveTimeout = 3 * time.Second

	// DefaultBackgroundTimeout bounds calls made from save hooks and batch refreshes.
	DefaultBackgroundTimeout = 30 * time.Second

	maxResponseBytes = 4 << 20
)

// Client is the product API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, with trailing slash
	BaseURL string

	// APIKey is sent as api_key in every request body (REQUIRED)
	APIKey string

	// UserAgent header (REQUIRED)
	UserAgent string

	// Charset and Language advertise the site's encoding and locale
	Charset  string
	Language string

	// Timeouts per call mode
	InteractiveTimeout time.Duration
	BackgroundTimeout  time.Duration

	// HTTPClient overrides the default transport (tests)
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey, userAgent string) Config {
	return Config{
		BaseURL:            DefaultBaseURL,
		APIKey:             apiKey,
		UserAgent:          userAgent,
		Charset:            "utf-8",
		InteractiveTimeout: DefaultInteractiveTimeout,
		BackgroundTimeout:  DefaultBackgroundTimeout,
	}
}

// New creates a new product API client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Charset == "" {
		cfg.Charset = "utf-8"
	}
	if cfg.InteractiveTimeout <= 0 {
		cfg.InteractiveTimeout = DefaultInteractiveTimeout
	}
	if cfg.BackgroundTimeout <= 0 {
		cfg.BackgroundTimeout = DefaultBackgroundTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			// the API never redirects; treat one as a failed call
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		config:     cfg,
		logger:     log.With().Str("component", "product-client").Logger(),
	}, nil
}

// FetchRequest describes one product module call.
type FetchRequest struct {
	Tags    []string
	Include []string
	Exclude []string

	// Limit is clamped to 1..MaxLimit
	Limit int

	// Extra fields merged into the request body (post content on save)
	Extra map[string]any

	// Background selects the long timeout used outside page rendering
	Background bool
}

// ClampLimit clamps a product limit to 1..MaxLimit, mapping out-of-range
// values to MaxLimit.
func ClampLimit(n int) int {
	if n < 1 || n > MaxLimit {
		return MaxLimit
	}
	return n
}

// moduleResponse is the product module body. Results is a pointer so a
// missing field can be told apart from an empty list.
type moduleResponse struct {
	Results *[]ProductRecord `json:"results"`
}

// FetchProducts requests the products matching tags and explicit includes,
// minus excludes. A single attempt is made; failures are returned as
// *APIError matching ErrUpstreamUnavailable or ErrUpstreamInvalidResponse.
func (c *Client) FetchProducts(ctx context.Context, req FetchRequest) ([]ProductRecord, error) {
	params := make(map[string]any, len(req.Extra)+5)
	for k, v := range req.Extra {
		params[k] = v
	}
	params["api_key"] = c.config.APIKey
	params["limit"] = ClampLimit(req.Limit)
	if len(req.Tags) > 0 {
		params["tags"] = req.Tags
	}
	if len(req.Include) > 0 {
		params["products_include"] = req.Include
	}
	if len(req.Exclude) > 0 {
		params["products_exclude"] = req.Exclude
	}

	body, status, err := c.post(ctx, ModulePath, params, req.Background)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.statusError(ModulePath, status)
	}

	var decoded moduleResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, c.invalid(ModulePath, "decode body", err)
	}
	if decoded.Results == nil {
		return nil, c.invalid(ModulePath, "missing results", nil)
	}

	products := *decoded.Results
	for i := range products {
		products[i].Slug = strings.TrimSpace(products[i].Slug)
		products[i].Name = strings.TrimSpace(products[i].Name)
		if err := products[i].Validate(); err != nil {
			return nil, c.invalid(ModulePath, "invalid record", err)
		}
	}

	c.logger.Debug().
		Int("products", len(products)).
		Int("tags", len(req.Tags)).
		Int("include", len(req.Include)).
		Bool("background", req.Background).
		Msg("Product module response")

	return products, nil
}

// post sends params as a JSON body and returns the response body and status.
// Only transport failures are returned as errors.
func (c *Client) post(ctx context.Context, endpoint string, params map[string]any, background bool) ([]byte, int, error) {
	timeout := c.config.InteractiveTimeout
	if background {
		timeout = c.config.BackgroundTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: endpoint})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Charset", c.config.Charset)
	if c.config.Language != "" {
		req.Header.Set("Accept-Language", c.config.Language)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()

		msg := "request failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "request timed out"
		}
		c.logger.Warn().Err(err).
			Str("endpoint", endpoint).
			Dur("timeout", timeout).
			Str("error_class", string(ErrorClassNetwork)).
			Msg("Product API request failed")

		return nil, 0, &APIError{ErrorClass: ErrorClassNetwork, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, 0, &APIError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Message: "read body", Err: err}
	}
	return body, resp.StatusCode, nil
}

func (c *Client) statusError(endpoint string, status int) error {
	class := classifyStatus(status)
	apiErrorsTotal.WithLabelValues(string(class)).Inc()

	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("status", status).
		Str("error_class", string(class)).
		Msg("Product API error")

	return &APIError{StatusCode: status, ErrorClass: class, Message: http.StatusText(status)}
}

func (c *Client) invalid(endpoint, msg string, err error) error {
	apiErrorsTotal.WithLabelValues(string(ErrorClassInvalid)).Inc()

	event := c.logger.Warn().Str("endpoint", endpoint).Str("error_class", string(ErrorClassInvalid))
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("Product API invalid response")

	return &APIError{StatusCode: http.StatusOK, ErrorClass: ErrorClassInvalid, Message: msg, Err: err}
}
