package aws

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"

	"github.com/yairfalse/kartta/providers"
)

func TestClassifyThrottling(t *testing.T) {
	err := classify(&smithy.GenericAPIError{Code: "Throttling", Message: "slow down"})
	assert.True(t, providers.IsRateLimit(err))
}

func TestClassifyAuthCodes(t *testing.T) {
	for _, code := range []string{"AuthFailure", "UnauthorizedOperation", "AccessDenied", "ExpiredToken"} {
		err := classify(&smithy.GenericAPIError{Code: code})
		assert.True(t, providers.IsAuth(err), "code %s should classify as auth", code)
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		rateLimit bool
		auth      bool
		transient bool
	}{
		{name: "too many requests", status: http.StatusTooManyRequests, rateLimit: true},
		{name: "forbidden", status: http.StatusForbidden, auth: true},
		{name: "server error", status: http.StatusBadGateway, transient: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(&smithyhttp.ResponseError{
				Response: &smithyhttp.Response{Response: &http.Response{
					StatusCode: tt.status,
					Header:     http.Header{},
				}},
				Err: errors.New("boom"),
			})
			assert.Equal(t, tt.rateLimit, providers.IsRateLimit(err))
			assert.Equal(t, tt.auth, providers.IsAuth(err))
			assert.Equal(t, tt.transient, providers.IsTransient(err))
		})
	}
}

func TestClassifyRetryAfterHint(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")
	err := classify(&smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Header:     header,
		}},
		Err: errors.New("throttled"),
	})

	assert.Equal(t, 7*time.Second, providers.RetryAfterHint(err))
}

func TestClassifyDeadline(t *testing.T) {
	err := classify(context.DeadlineExceeded)
	assert.True(t, providers.IsTransient(err))
}

func TestClassifyPassesThroughUnknown(t *testing.T) {
	original := errors.New("bad input")
	assert.Equal(t, original, classify(original))
	assert.NoError(t, classify(nil))
}
