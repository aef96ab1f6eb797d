package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

// RateLimitError is a policy rejection from the OTP rate limiter.
// RetryAfter tells the caller how long to wait before the next attempt.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter >= time.Minute {
		mins := (e.RetryAfter + time.Minute - 1) / time.Minute
		return fmt.Sprintf("too many failed attempts, try again in %d minutes", mins)
	}
	secs := (e.RetryAfter + time.Second - 1) / time.Second
	return fmt.Sprintf("too many requests, try again in %d seconds", secs)
}

// NewRateLimitError builds a RateLimitError from the remaining wait time.
func NewRateLimitError(retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{RetryAfter: retryAfter}
}

// IsRateLimitError reports whether err is (or wraps) a RateLimitError.
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// ProviderError wraps a failure from the one-time-credential provider.
// Op is the generic message surfaced to clients; Err carries the cause for logging.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op
}

func (e *ProviderError) Unwrap() error { return e.Err }
