package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrLockHeld  = errors.New("lock already held")
	ErrExhausted = errors.New("retries exhausted")
)

// TransportError is a network-level failure talking to a remote service.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from a remote service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server-side failures and throttling.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ThrottleError signals that the remote asked the caller to back off for
// Wait before trying again.
type ThrottleError struct {
	Wait time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled, retry after %s", e.Wait)
}

// RetryAfter implements the retry package's delay override.
func (e *ThrottleError) RetryAfter() time.Duration { return e.Wait }

// SchemaMismatch reports a response payload whose shape is not usable.
type SchemaMismatch struct {
	Reason string
}

func (e *SchemaMismatch) Error() string {
	return "schema mismatch: " + e.Reason
}

// IsTransient reports whether err is worth retrying: transport failures,
// throttling, and retryable API statuses.
func IsTransient(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var th *ThrottleError
	if errors.As(err, &th) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.IsRetryable()
	}
	return false
}
