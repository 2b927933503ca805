package slanger

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
)

// Interpreter calls an AIProvider under a RetryPolicy and always produces
// a line: either a normalized answer or the fallback line for the term.
type Interpreter struct {
	provider AIProvider
	policy   RetryPolicy
	logger   *slog.Logger
	metrics  *metrics
}

// InterpreterOption is a functional option for configuring the Interpreter.
type InterpreterOption func(*Interpreter)

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) InterpreterOption {
	return func(i *Interpreter) {
		i.policy = p
	}
}

// WithInterpreterLogger sets the logger used for attempt outcomes.
func WithInterpreterLogger(l *slog.Logger) InterpreterOption {
	return func(i *Interpreter) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithInterpreterMeterProvider records upstream attempts on provider.
func WithInterpreterMeterProvider(provider metric.MeterProvider) InterpreterOption {
	return func(i *Interpreter) {
		if m, err := newMetrics(provider); err == nil {
			i.metrics = m
		}
	}
}

// NewInterpreter creates an Interpreter. A nil provider is allowed and
// makes every call return the fallback line.
func NewInterpreter(provider AIProvider, opts ...InterpreterOption) *Interpreter {
	i := &Interpreter{
		provider: provider,
		policy:   DefaultRetryPolicy(),
		logger:   slog.Default(),
		metrics:  noopInstruments(),
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Interpret returns an answer line for req. It never fails: any
// unrecoverable error yields FallbackLine(req.Term).
func (i *Interpreter) Interpret(ctx context.Context, req Request) string {
	fallback := FallbackLine(req.Term)

	if i.provider == nil {
		i.logger.Debug("no provider configured", "term", req.Term)
		return fallback
	}

	line, err := WithRetry(ctx, i.policy, func(ctx context.Context, attempt int) (string, error) {
		line, err := i.provider.Interpret(ctx, req)
		i.metrics.recordAttempt(ctx, err)
		if err != nil {
			if i.policy.retryable(err) && attempt < i.policy.MaxAttempts {
				i.logger.Info("retrying provider call",
					"term", req.Term,
					"attempt", attempt,
					"backoff", i.policy.Backoff(attempt),
					"error", err)
			}
			return "", err
		}
		return line, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			i.logger.Debug("provider not configured", "term", req.Term)
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			i.logger.Warn("provider call abandoned", "term", req.Term, "error", err)
		default:
			i.logger.Warn("provider call failed", "term", req.Term, "error", err)
		}
		return fallback
	}

	line = TruncateLine(line)
	if IsFallback(line) {
		return fallback
	}
	return line
}
