package slanger

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the upstream rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained rate; 60 when unset
	BurstSize         int // Bucket size; RequestsPerMinute when unset
}

func (c RateLimitConfig) limiter() *rate.Limiter {
	rpm := c.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := c.BurstSize
	if burst <= 0 {
		burst = rpm
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
}

// RateLimitedProvider throttles calls to an AIProvider so a burst of cache
// misses does not trip the upstream's own limits.
type RateLimitedProvider struct {
	provider AIProvider
	limiter  *rate.Limiter
	waited   atomic.Int64
}

// NewRateLimitedProvider wraps provider with a token bucket.
func NewRateLimitedProvider(provider AIProvider, cfg RateLimitConfig) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  cfg.limiter(),
	}
}

// Interpret waits for a token, then calls the wrapped provider. A wait cut
// short by ctx is reported as a non-retryable ProviderError.
func (p *RateLimitedProvider) Interpret(ctx context.Context, req Request) (string, error) {
	if !p.limiter.Allow() {
		p.waited.Add(1)
		if err := p.limiter.Wait(ctx); err != nil {
			return "", &ProviderError{
				Message:   "rate limit wait cancelled",
				Cause:     err,
				Retryable: false,
			}
		}
	}

	return p.provider.Interpret(ctx, req)
}

// Throttled returns how many calls had to wait for a token.
func (p *RateLimitedProvider) Throttled() int64 {
	return p.waited.Load()
}

// Tokens returns the number of tokens currently available.
func (p *RateLimitedProvider) Tokens() float64 {
	return p.limiter.Tokens()
}
