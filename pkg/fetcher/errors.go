package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the fetcher.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass is the closed classification of fetch failures. The retry loop
// and the outer HTTP error mapper both consume this single taxonomy.
type ErrorClass string

const (
	// ClassRetryable covers timeouts, connection failures and 502/503/504.
	ClassRetryable ErrorClass = "retryable"

	// ClassFatal covers 4xx responses (401, 429, ...) which must not consume
	// retry budget.
	ClassFatal ErrorClass = "fatal"

	// ClassUnknown covers everything else (e.g. 500, 501). Not retried.
	ClassUnknown ErrorClass = "unknown"
)

// FetchError is a classified upstream failure.
type FetchError struct {
	// StatusCode is the last observed HTTP status, 0 for network failures.
	StatusCode int

	// Class is the closed error classification.
	Class ErrorClass

	// Message is a human-readable description of the failure.
	Message string

	// RetryAfter carries the upstream Retry-After header value, when present.
	RetryAfter string

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Classify maps an HTTP status or transport error onto the closed ErrorClass
// variant. A transport error (timeout, connection abort) is retryable; so are
// 502, 503 and 504. Any 4xx is fatal. Everything else is unknown.
func Classify(statusCode int, err error) ErrorClass {
	if err != nil {
		return ClassRetryable
	}

	switch {
	case statusCode == http.StatusBadGateway,
		statusCode == http.StatusServiceUnavailable,
		statusCode == http.StatusGatewayTimeout:
		return ClassRetryable
	case statusCode >= 400 && statusCode < 500:
		return ClassFatal
	default:
		return ClassUnknown
	}
}

// shouldRetry reports whether an error class is worth another attempt.
func shouldRetry(class ErrorClass) bool {
	return class == ClassRetryable
}
