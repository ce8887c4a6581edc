package gcp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

// throttleReasons are reported with HTTP 403, so the reason string is
// what separates throttling from a real permission failure.
var throttleReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

// classify wraps googleapi errors in the shared taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || hasThrottleReason(apiErr) {
			return &providers.RateLimitError{
				Provider:   types.ProviderGCP,
				RetryAfter: retryAfterHint(apiErr),
				Err:        err,
			}
		}
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &providers.AuthError{Provider: types.ProviderGCP, Err: err}
		}
		if apiErr.Code >= http.StatusInternalServerError {
			return &providers.TransientError{Provider: types.ProviderGCP, Err: err}
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &providers.TransientError{Provider: types.ProviderGCP, Err: err}
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return &providers.TransientError{Provider: types.ProviderGCP, Err: err}
	}

	return err
}

func hasThrottleReason(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		if throttleReasons[item.Reason] {
			return true
		}
	}
	return false
}

func retryAfterHint(apiErr *googleapi.Error) time.Duration {
	if apiErr.Header == nil {
		return 0
	}
	header := apiErr.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
