package slanger

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"
)

func TestWithRetry_Success(t *testing.T) {
	callCount := 0
	result, err := WithRetry(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) (string, error) {
		callCount++
		return "success", nil
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got %q", result)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestWithRetry_RetryableError(t *testing.T) {
	var attempts []int
	result, err := WithRetry(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) (string, error) {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return "", &ProviderError{Message: "rate limited", Retryable: true}
		}
		return "success", nil
	})

	if err != nil {
		t.Fatalf("Expected no error after retries, got: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got %q", result)
	}
	if fmt.Sprint(attempts) != "[1 2 3]" {
		t.Errorf("Expected attempts [1 2 3], got %v", attempts)
	}
}

func TestWithRetry_NonRetryableError(t *testing.T) {
	callCount := 0
	_, err := WithRetry(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) (string, error) {
		callCount++
		return "", &ProviderError{Message: "malformed answer", Retryable: false}
	})

	if err == nil {
		t.Fatal("Expected error for non-retryable error")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call (no retries), got %d", callCount)
	}
}

func TestWithRetry_Exhausted(t *testing.T) {
	callCount := 0
	want := &ProviderError{Message: "server error", Retryable: true}
	_, err := WithRetry(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) (string, error) {
		callCount++
		return "", want
	})

	if !errors.Is(err, want) {
		t.Errorf("Expected last error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestWithRetry_LinearBackoff(t *testing.T) {
	p := fastPolicy()
	p.BaseDelay = 20 * time.Millisecond

	start := time.Now()
	_, _ = WithRetry(context.Background(), p, func(ctx context.Context, attempt int) (string, error) {
		return "", &ProviderError{Message: "unavailable", Retryable: true}
	})
	elapsed := time.Since(start)

	// 1*20ms after the first attempt, 2*20ms after the second, none after the last.
	if elapsed < 60*time.Millisecond {
		t.Errorf("Expected at least 60ms of backoff, got %v", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("Backoff took too long: %v", elapsed)
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()
	for attempt, want := range map[int]time.Duration{
		1: 800 * time.Millisecond,
		2: 1600 * time.Millisecond,
		3: 2400 * time.Millisecond,
	} {
		if got := p.Backoff(attempt); got != want {
			t.Errorf("Backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.AttemptTimeout != 20*time.Second {
		t.Errorf("AttemptTimeout = %v, want 20s", p.AttemptTimeout)
	}
	if p.Deadline != 25*time.Second {
		t.Errorf("Deadline = %v, want 25s", p.Deadline)
	}
}

func TestWithRetry_AttemptTimeoutIsRetried(t *testing.T) {
	p := fastPolicy()
	p.AttemptTimeout = 20 * time.Millisecond

	callCount := 0
	result, err := WithRetry(context.Background(), p, func(ctx context.Context, attempt int) (string, error) {
		callCount++
		if attempt < 3 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "late success", nil
	})

	if err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if result != "late success" {
		t.Errorf("unexpected result %q", result)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestWithRetry_DeadlineAbortsRetries(t *testing.T) {
	p := fastPolicy()
	p.AttemptTimeout = 0
	p.Deadline = 50 * time.Millisecond

	callCount := 0
	start := time.Now()
	_, err := WithRetry(context.Background(), p, func(ctx context.Context, attempt int) (string, error) {
		callCount++
		<-ctx.Done()
		return "", ctx.Err()
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Deadline not enforced: %v", elapsed)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	callCount := 0
	_, err := WithRetry(ctx, fastPolicy(), func(ctx context.Context, attempt int) (string, error) {
		callCount++
		return "ok", nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected Canceled, got %v", err)
	}
	if callCount != 0 {
		t.Errorf("Expected no calls, got %d", callCount)
	}
}

func TestWithRetry_CustomPredicate(t *testing.T) {
	p := fastPolicy()
	p.Retryable = func(error) bool { return false }

	callCount := 0
	_, _ = WithRetry(context.Background(), p, func(ctx context.Context, attempt int) (string, error) {
		callCount++
		return "", &ProviderError{Message: "rate limited", Retryable: true}
	})

	if callCount != 1 {
		t.Errorf("Expected predicate to stop retries, got %d calls", callCount)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"not configured", ErrNotConfigured, false},
		{"wrapped not configured", fmt.Errorf("openai: %w", ErrNotConfigured), false},
		{"retryable provider error", &ProviderError{Message: "429", Retryable: true}, true},
		{"non-retryable provider error", &ProviderError{Message: "bad json", Retryable: false}, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"net error", timeoutErr{}, true},
		{"plain error", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestLooksTransient(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{errors.New("Rate limit reached"), true},
		{errors.New("upstream returned 503"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("invalid request"), false},
	}

	for _, tt := range tests {
		if got := LooksTransient(tt.err); got != tt.expected {
			t.Errorf("LooksTransient(%v) = %v, want %v", tt.err, got, tt.expected)
		}
	}
}
