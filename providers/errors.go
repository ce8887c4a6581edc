package providers

import (
	"errors"
	"fmt"
	"time"
)

// AuthError means credentials were rejected. Fatal for the provider's
// portion of a job, never retried.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError is a provider-native throttling signal (HTTP 429, quota
// exceeded). Retryable with the provider's backoff budget. RetryAfter
// carries the provider's hint when one was given, zero otherwise.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TransientError covers network timeouts and other short-lived failures.
// Retryable with a smaller attempt budget than rate limits.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s transient failure: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MappingError means one provider record could not be converted to the
// canonical model. The record is skipped and counted; listing continues.
type MappingError struct {
	Provider string
	RawID    string
	Reason   string
	Err      error
}

func (e *MappingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s mapping failed: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s mapping failed for %s: %v", e.Provider, e.RawID, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRateLimit reports whether err is a provider throttling signal.
func IsRateLimit(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// IsTransient reports whether err is a retryable non-throttling failure.
func IsTransient(err error) bool {
	var trErr *TransientError
	return errors.As(err, &trErr)
}

// RetryAfterHint extracts the provider's retry-after hint, if any.
func RetryAfterHint(err error) time.Duration {
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return rlErr.RetryAfter
	}
	return 0
}
