package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func identity(d time.Duration) time.Duration { return d }

func TestBackoffDoublesUpToCap(t *testing.T) {
	policy := Policy{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  1 * time.Second,
		Jitter:    identity,
	}

	var prev time.Duration
	for attempt := 0; attempt < 10; attempt++ {
		delay := policy.Backoff(attempt)
		assert.GreaterOrEqual(t, delay, prev, "delays must be non-decreasing")
		assert.LessOrEqual(t, delay, policy.MaxDelay)
		prev = delay
	}

	assert.Equal(t, 100*time.Millisecond, policy.Backoff(0))
	assert.Equal(t, 200*time.Millisecond, policy.Backoff(1))
	assert.Equal(t, 400*time.Millisecond, policy.Backoff(2))
	assert.Equal(t, 800*time.Millisecond, policy.Backoff(3))
	assert.Equal(t, 1*time.Second, policy.Backoff(4))
	assert.Equal(t, 1*time.Second, policy.Backoff(9))
}

func TestBackoffJitterWindow(t *testing.T) {
	policy := Policy{
		BaseDelay: 1 * time.Second,
		MaxDelay:  30 * time.Second,
	}

	for i := 0; i < 100; i++ {
		delay := policy.Backoff(0)
		assert.GreaterOrEqual(t, delay, 500*time.Millisecond)
		assert.Less(t, delay, 1*time.Second)
	}
}

func TestBackoffConstantAtCap(t *testing.T) {
	policy := Policy{
		BaseDelay: 1 * time.Second,
		MaxDelay:  30 * time.Second,
	}

	// Attempts 5+ exceed the cap before jitter; the full cap must be
	// waited every time, never a jittered fraction of it.
	for i := 0; i < 100; i++ {
		assert.Equal(t, policy.MaxDelay, policy.Backoff(6))
		assert.Equal(t, policy.MaxDelay, policy.Backoff(7))
	}
}

func TestDefaultPolicyBudgets(t *testing.T) {
	policy := DefaultPolicy()
	assert.Equal(t, 4, policy.MaxAttempts)
	assert.Equal(t, 2, policy.TransientAttempts)
	assert.Greater(t, policy.MaxAttempts, policy.TransientAttempts,
		"transient budget is smaller than the rate-limit budget")
}

func TestValidateOrDefaultFillsZeroes(t *testing.T) {
	p := Policy{MaxAttempts: 7}.validateOrDefault()
	assert.Equal(t, 7, p.MaxAttempts)
	assert.Equal(t, DefaultPolicy().BaseDelay, p.BaseDelay)
	assert.Equal(t, DefaultPolicy().MaxDelay, p.MaxDelay)
}
