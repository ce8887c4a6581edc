package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/telemetry"
)

// Coordinator owns one token bucket per provider so quota exhaustion in one
// cloud never slows the others, and wraps calls in the retry policy.
type Coordinator struct {
	policy Policy
	rps    rate.Limit
	burst  int
	logger *telemetry.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewCoordinator creates a coordinator. rps and burst apply per provider.
func NewCoordinator(policy Policy, rps float64, burst int) *Coordinator {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = int(rps)
	}
	return &Coordinator{
		policy:   policy.validateOrDefault(),
		rps:      rate.Limit(rps),
		burst:    burst,
		logger:   telemetry.NewLogger("ratelimit"),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Policy returns the active retry policy.
func (c *Coordinator) Policy() Policy {
	return c.policy
}

func (c *Coordinator) limiter(provider string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[provider]
	if !ok {
		l = rate.NewLimiter(c.rps, c.burst)
		c.limiters[provider] = l
	}
	return l
}

// Wait blocks until the provider's bucket yields a token or ctx ends.
func (c *Coordinator) Wait(ctx context.Context, provider string) error {
	return c.limiter(provider).Wait(ctx)
}

// Do runs fn behind the provider's token bucket, retrying rate-limit and
// transient failures within their budgets. Authentication failures return
// immediately. It reports how many retries were spent, exhausted budgets
// surface the last error as a terminal provider failure.
func (c *Coordinator) Do(ctx context.Context, provider string, fn func(context.Context) error) (int, error) {
	var rateLimitAttempts, transientAttempts, retries int

	for {
		if err := c.Wait(ctx, provider); err != nil {
			return retries, err
		}

		err := fn(ctx)
		if err == nil {
			return retries, nil
		}
		if providers.IsAuth(err) {
			return retries, err
		}

		var attempt *int
		var budget int
		switch {
		case providers.IsRateLimit(err):
			attempt = &rateLimitAttempts
			budget = c.policy.MaxAttempts
		case providers.IsTransient(err):
			attempt = &transientAttempts
			budget = c.policy.TransientAttempts
		default:
			return retries, err
		}

		if *attempt >= budget {
			return retries, err
		}

		delay := c.policy.Backoff(*attempt)
		if hint := providers.RetryAfterHint(err); hint > delay {
			delay = hint
		}
		*attempt++
		retries++

		c.logger.WithContext(ctx).Warn().
			Err(err).
			Str("provider", provider).
			Int("attempt", *attempt).
			Dur("delay", delay).
			Msg("retrying provider call")

		if err := sleep(ctx, delay); err != nil {
			return retries, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
