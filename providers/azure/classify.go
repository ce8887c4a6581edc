package azure

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

// classify wraps ARM errors in the shared taxonomy. Azure reports
// throttling as HTTP 429 and credential problems as 401/403.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusTooManyRequests:
			return &providers.RateLimitError{
				Provider:   types.ProviderAzure,
				RetryAfter: retryAfterHint(respErr),
				Err:        err,
			}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &providers.AuthError{Provider: types.ProviderAzure, Err: err}
		}
		if respErr.StatusCode >= http.StatusInternalServerError {
			return &providers.TransientError{Provider: types.ProviderAzure, Err: err}
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &providers.TransientError{Provider: types.ProviderAzure, Err: err}
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return &providers.TransientError{Provider: types.ProviderAzure, Err: err}
	}

	return err
}

func retryAfterHint(respErr *azcore.ResponseError) time.Duration {
	if respErr.RawResponse == nil {
		return 0
	}
	header := respErr.RawResponse.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
