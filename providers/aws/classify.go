package aws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

var throttleCodes = map[string]bool{
	"Throttling":                 true,
	"ThrottlingException":        true,
	"RequestLimitExceeded":       true,
	"TooManyRequestsException":   true,
	"ProvisionedThroughputExceededException": true,
}

var authCodes = map[string]bool{
	"AuthFailure":           true,
	"UnauthorizedOperation": true,
	"AccessDenied":          true,
	"AccessDeniedException": true,
	"InvalidClientTokenId":  true,
	"ExpiredToken":          true,
}

// classify wraps SDK errors in the shared taxonomy so the retry
// coordinator can budget them correctly.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if throttleCodes[code] {
			return &providers.RateLimitError{
				Provider:   types.ProviderAWS,
				RetryAfter: retryAfterHint(err),
				Err:        err,
			}
		}
		if authCodes[code] {
			return &providers.AuthError{Provider: types.ProviderAWS, Err: err}
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusTooManyRequests:
			return &providers.RateLimitError{
				Provider:   types.ProviderAWS,
				RetryAfter: retryAfterHint(err),
				Err:        err,
			}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &providers.AuthError{Provider: types.ProviderAWS, Err: err}
		}
		if respErr.HTTPStatusCode() >= http.StatusInternalServerError {
			return &providers.TransientError{Provider: types.ProviderAWS, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &providers.TransientError{Provider: types.ProviderAWS, Err: err}
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return &providers.TransientError{Provider: types.ProviderAWS, Err: err}
	}

	return err
}

// retryAfterHint extracts the Retry-After header when the SDK surfaced
// the raw HTTP response.
func retryAfterHint(err error) time.Duration {
	var respErr *smithyhttp.ResponseError
	if !errors.As(err, &respErr) || respErr.Response == nil {
		return 0
	}
	header := respErr.Response.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, convErr := strconv.Atoi(header)
	if convErr != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
