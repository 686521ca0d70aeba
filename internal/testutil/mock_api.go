// Package testutil provides testing utilities for the databox service.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Endpoint paths served by the product API.
const (
	ModulePath = "/v2/product/module"
	SearchPath = "/v3/search/product/"
)

// MockAPIResponse defines the behavior for a mock product API response.
type MockAPIResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock product API server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount      int
	lastRequestHeader http.Header
	bodies            []map[string]any
}

// NewMockAPI creates a new mock product API server. Unconfigured paths
// answer with an empty result list.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		mock.mu.Lock()
		mock.requestCount++
		mock.lastRequestHeader = r.Header.Clone()
		mock.bodies = append(mock.bodies, body)
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"results": []}`))
	}))

	return mock
}

// URL returns the mock server base URL with a trailing slash.
func (m *MockAPI) URL() string {
	return m.server.URL + "/"
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.lastRequestHeader = nil
	m.bodies = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockAPIResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetModuleResponse configures the product module endpoint.
func (m *MockAPI) SetModuleResponse(resp MockAPIResponse) {
	m.SetResponse(ModulePath, resp)
}

// SetSearchResponse configures the product search endpoint.
func (m *MockAPI) SetSearchResponse(resp MockAPIResponse) {
	m.SetResponse(SearchPath, resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockAPI) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// LastBody returns the decoded JSON body of the most recent request, or nil.
func (m *MockAPI) LastBody() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.bodies) == 0 {
		return nil
	}
	return m.bodies[len(m.bodies)-1]
}

// Product returns a valid module record for tests.
func Product(i int) map[string]any {
	return map[string]any{
		"slug":    fmt.Sprintf("acme/widget-%d", i),
		"name":    fmt.Sprintf("Acme Widget %d", i),
		"url":     fmt.Sprintf("http://gdgt.com/acme/widget-%d/", i),
		"company": "Acme",
	}
}

// NewProductsResponse creates a 200 module response with n valid products.
func NewProductsResponse(n int) MockAPIResponse {
	products := make([]map[string]any, n)
	for i := range products {
		products[i] = Product(i + 1)
	}
	body, _ := json.Marshal(map[string]any{"results": products})
	return NewHealthyResponse(string(body))
}

// NewHealthyResponse creates a standard 200 OK JSON response.
func NewHealthyResponse(data string) MockAPIResponse {
	return MockAPIResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 response whose body lacks results.
func NewMalformedResponse() MockAPIResponse {
	return NewHealthyResponse(`{"status": "ok"}`)
}

// NewUnauthorizedResponse creates a 401 response.
func NewUnauthorizedResponse() MockAPIResponse {
	return MockAPIResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error": "bad api key"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockAPIResponse {
	return MockAPIResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRedirectResponse creates a 302 pointing elsewhere.
func NewRedirectResponse(location string) MockAPIResponse {
	return MockAPIResponse{
		StatusCode: http.StatusFound,
		Headers:    map[string]string{"Location": location},
	}
}

// StringSlice converts a decoded JSON array to []string, or nil when v is not
// an array.
func StringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.TrimSpace(fmt.Sprint(item)))
	}
	return out
}
