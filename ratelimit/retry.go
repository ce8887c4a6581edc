// Package ratelimit gates outbound provider calls with per-provider token
// buckets and applies bounded exponential backoff to retryable failures.
package ratelimit

import (
	"math/rand"
	"time"
)

// Policy is the retry policy as a plain value object, testable without
// touching the network. MaxAttempts bounds retries after rate-limit
// signals; TransientAttempts is the smaller budget for network timeouts.
type Policy struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	TransientAttempts int           `yaml:"transient_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	// Jitter randomizes a computed delay. Nil selects the default
	// half-window jitter; tests inject identity for determinism.
	Jitter func(time.Duration) time.Duration `yaml:"-"`
}

// DefaultPolicy matches provider API guidance: a handful of retries,
// sub-second initial delay, capped well below request timeouts.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       4,
		TransientAttempts: 2,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          30 * time.Second,
	}
}

// Backoff computes the delay before retry number attempt (zero-based):
// base * 2^attempt jittered into the upper half of the window, capped at
// MaxDelay. Once the un-jittered delay reaches the cap the full MaxDelay
// is returned, so consecutive delays are non-decreasing up to the cap and
// stay constant at it.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay >= p.MaxDelay {
		return p.MaxDelay
	}

	jitter := p.Jitter
	if jitter == nil {
		jitter = halfWindowJitter
	}
	return jitter(delay)
}

// halfWindowJitter maps d to d * (0.5 + random[0, 0.5)).
func halfWindowJitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.5 + rand.Float64()*0.5))
}

func (p Policy) validateOrDefault() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.TransientAttempts <= 0 {
		p.TransientAttempts = def.TransientAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	return p
}
