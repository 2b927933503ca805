package slanger

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go"
)

// RetryPolicy controls how upstream calls are retried.
type RetryPolicy struct {
	MaxAttempts    int                  // Total attempts, including the first
	BaseDelay      time.Duration        // Backoff before attempt n+1 is n*BaseDelay
	AttemptTimeout time.Duration        // Deadline for a single attempt
	Deadline       time.Duration        // Deadline for all attempts together
	Retryable      func(err error) bool // Nil means IsRetryable
}

// DefaultRetryPolicy returns the production retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      800 * time.Millisecond,
		AttemptTimeout: 20 * time.Second,
		Deadline:       25 * time.Second,
		Retryable:      IsRetryable,
	}
}

// Backoff returns the delay after the given 1-based attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * p.BaseDelay
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsRetryable(err)
}

// RetryFunc is one attempt. The context carries the attempt deadline.
type RetryFunc[T any] func(ctx context.Context, attempt int) (T, error)

// WithRetry runs fn until it succeeds, fails with a non-retryable error,
// or the policy is exhausted. Backoff is linear.
func WithRetry[T any](ctx context.Context, p RetryPolicy, fn RetryFunc[T]) (T, error) {
	var zero T

	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Deadline)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	var result T
	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			r, err := runAttempt(ctx, p.AttemptTimeout, attempt, fn)
			if err != nil {
				return err
			}
			result = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(p.MaxAttempts)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// The enclosing deadline fired; the attempt is abandoned.
			return ctx.Err() == nil && p.retryable(err)
		}),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return p.Backoff(int(n) + 1)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		return zero, err
	}
	return result, nil
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, attempt int, fn RetryFunc[T]) (T, error) {
	if timeout <= 0 {
		return fn(ctx, attempt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := fn(attemptCtx, attempt)
	// Per-attempt timeouts are transient as long as the parent is alive.
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return result, &ProviderError{Message: "attempt timed out", Cause: err, Retryable: true}
	}
	return result, err
}

// IsRetryable reports whether err is a transport-level failure: a
// connection error, a timeout, or a rate-limit signal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNotConfigured) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	// Context errors from the caller are not retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

var retryablePatterns = []string{
	"rate limit",
	"timeout",
	"connection refused",
	"connection reset",
	"temporary",
	"429",
	"502",
	"503",
	"504",
}

// LooksTransient matches common transient failure text. Providers use it
// for errors that carry no structured status.
func LooksTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
