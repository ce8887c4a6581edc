package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/kartta/providers"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:       4,
		TransientAttempts: 2,
		BaseDelay:         time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		Jitter:            identity,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	coord := NewCoordinator(fastPolicy(), 100, 100)

	calls := 0
	retries, err := coord.Do(context.Background(), "aws", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, retries)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRateLimitThenSucceeds(t *testing.T) {
	coord := NewCoordinator(fastPolicy(), 100, 100)

	calls := 0
	retries, err := coord.Do(context.Background(), "aws", func(context.Context) error {
		calls++
		if calls <= 2 {
			return &providers.RateLimitError{Provider: "aws", Err: errors.New("429")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, retries)
	assert.Equal(t, 3, calls)
}

func TestDoRateLimitBudgetExhausted(t *testing.T) {
	coord := NewCoordinator(fastPolicy(), 100, 100)

	calls := 0
	rlErr := &providers.RateLimitError{Provider: "aws", Err: errors.New("429")}
	retries, err := coord.Do(context.Background(), "aws", func(context.Context) error {
		calls++
		return rlErr
	})
	require.Error(t, err)
	assert.True(t, providers.IsRateLimit(err))
	assert.Equal(t, 4, retries, "retry count never exceeds the configured maximum")
	assert.Equal(t, 5, calls, "initial attempt plus MaxAttempts retries")
}

func TestDoTransientUsesSmallerBudget(t *testing.T) {
	coord := NewCoordinator(fastPolicy(), 100, 100)

	calls := 0
	retries, err := coord.Do(context.Background(), "gcp", func(context.Context) error {
		calls++
		return &providers.TransientError{Provider: "gcp", Err: errors.New("timeout")}
	})
	require.Error(t, err)
	assert.True(t, providers.IsTransient(err))
	assert.Equal(t, 2, retries)
	assert.Equal(t, 3, calls)
}

func TestDoAuthErrorNeverRetried(t *testing.T) {
	coord := NewCoordinator(fastPolicy(), 100, 100)

	calls := 0
	retries, err := coord.Do(context.Background(), "azure", func(context.Context) error {
		calls++
		return &providers.AuthError{Provider: "azure", Err: errors.New("denied")}
	})
	require.Error(t, err)
	assert.True(t, providers.IsAuth(err))
	assert.Equal(t, 0, retries)
	assert.Equal(t, 1, calls)
}

func TestDoNonRetryableErrorReturnsImmediately(t *testing.T) {
	coord := NewCoordinator(fastPolicy(), 100, 100)

	boom := errors.New("boom")
	calls := 0
	retries, err := coord.Do(context.Background(), "aws", func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, retries)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	policy := fastPolicy()
	policy.BaseDelay = time.Hour // retry sleep would block forever
	coord := NewCoordinator(policy, 100, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := coord.Do(ctx, "aws", func(context.Context) error {
		return &providers.RateLimitError{Provider: "aws", Err: errors.New("429")}
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitIsolatedPerProvider(t *testing.T) {
	// One token per second with burst 1: the second call on the same
	// provider blocks, a different provider does not.
	coord := NewCoordinator(fastPolicy(), 1, 1)
	ctx := context.Background()

	require.NoError(t, coord.Wait(ctx, "aws"))

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, coord.Wait(blocked, "aws"))

	require.NoError(t, coord.Wait(ctx, "azure"))
}
