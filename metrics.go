package slanger

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for all slanger instruments.
const meterName = "github.com/ZaguanLabs/slanger"

// Instrument names.
const (
	MetricResolveTotal     = "slanger.resolve.total"
	MetricResolveDuration  = "slanger.resolve.duration_ms"
	MetricUpstreamAttempts = "slanger.upstream.attempts"
)

// metrics holds the instruments shared by the service and interpreter.
type metrics struct {
	resolveTotal    metric.Int64Counter
	resolveDuration metric.Float64Histogram
	upstreamTotal   metric.Int64Counter
}

func newMetrics(provider metric.MeterProvider) (*metrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)

	resolveTotal, err := meter.Int64Counter(
		MetricResolveTotal,
		metric.WithDescription("Total number of term resolutions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	resolveDuration, err := meter.Float64Histogram(
		MetricResolveDuration,
		metric.WithDescription("Term resolution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	upstreamTotal, err := meter.Int64Counter(
		MetricUpstreamAttempts,
		metric.WithDescription("Total number of upstream provider attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		resolveTotal:    resolveTotal,
		resolveDuration: resolveDuration,
		upstreamTotal:   upstreamTotal,
	}, nil
}

// noopInstruments never fails to build.
func noopInstruments() *metrics {
	m, _ := newMetrics(noop.NewMeterProvider())
	return m
}

func (m *metrics) recordResolve(ctx context.Context, outcome Outcome, shared bool, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
		attribute.Bool("shared", shared),
	)
	m.resolveTotal.Add(ctx, 1, opt)
	m.resolveDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metrics) recordAttempt(ctx context.Context, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if IsRetryable(err) {
			result = "retryable"
		}
	}
	m.upstreamTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
