package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrUpstreamUnavailable covers network errors, timeouts and non-200 responses.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamInvalidResponse is returned for a 200 response whose body is not
	// the expected JSON shape.
	ErrUpstreamInvalidResponse = errors.New("upstream invalid response")

	// ErrUnauthorized is returned when the API rejects the configured key.
	ErrUnauthorized = errors.New("unauthorized: likely a bad API key")

	// ErrNoResults is returned by product search when nothing matched.
	ErrNoResults = errors.New("no matching products found")
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassInvalid represents malformed 200 responses.
	ErrorClassInvalid ErrorClass = "invalid"

	// ErrorClassUnexpected represents non-200 statuses outside 4xx/5xx.
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// APIError represents a failed product API call with additional context.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("product API %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("product API %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is maps the error class onto the package sentinels so callers can test
// errors.Is(err, ErrUpstreamUnavailable) without inspecting the class.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUpstreamInvalidResponse:
		return e.ErrorClass == ErrorClassInvalid
	case ErrUpstreamUnavailable:
		return e.ErrorClass != ErrorClassInvalid
	default:
		return false
	}
}

// classifyStatus categorizes a non-200 HTTP status.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}
