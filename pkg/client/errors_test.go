package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 0,
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "product API network error (status 0): request failed: connection refused",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 503,
				ErrorClass: ErrorClassServer,
				Message:    "Service Unavailable",
			},
			expected: "product API server error (status 503): Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	tests := []struct {
		class       ErrorClass
		unavailable bool
		invalid     bool
	}{
		{ErrorClassClient, true, false},
		{ErrorClassServer, true, false},
		{ErrorClassNetwork, true, false},
		{ErrorClassUnexpected, true, false},
		{ErrorClassInvalid, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			err := fmt.Errorf("fetch: %w", &APIError{ErrorClass: tt.class})
			if got := errors.Is(err, ErrUpstreamUnavailable); got != tt.unavailable {
				t.Errorf("Is(ErrUpstreamUnavailable) = %v, want %v", got, tt.unavailable)
			}
			if got := errors.Is(err, ErrUpstreamInvalidResponse); got != tt.invalid {
				t.Errorf("Is(ErrUpstreamInvalidResponse) = %v, want %v", got, tt.invalid)
			}
			if errors.Is(err, ErrUnauthorized) {
				t.Error("APIError must not match ErrUnauthorized")
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &APIError{ErrorClass: ErrorClassNetwork, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find wrapped error")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassClient},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
		{204, ErrorClassUnexpected},
		{302, ErrorClassUnexpected},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
