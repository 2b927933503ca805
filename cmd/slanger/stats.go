package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ZaguanLabs/slanger"
)

// stats collects the service's metrics in-process for --stats.
type stats struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

func newStats() *stats {
	reader := sdkmetric.NewManualReader()
	return &stats{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// counts sums an int64 counter by one attribute.
func counts(rm metricdata.ResourceMetrics, name string, key attribute.Key) map[string]int64 {
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(key)
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func formatCounts(c map[string]int64) string {
	if len(c) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, c[k]))
	}
	return strings.Join(parts, " ")
}

// report writes resolve outcomes and upstream attempts to w and shuts the
// provider down.
func (s *stats) report(ctx context.Context, w io.Writer) error {
	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collecting metrics: %w", err)
	}

	fmt.Fprintf(w, "resolves: %s\n", formatCounts(counts(rm, slanger.MetricResolveTotal, "outcome")))
	fmt.Fprintf(w, "upstream attempts: %s\n", formatCounts(counts(rm, slanger.MetricUpstreamAttempts, "result")))

	return s.provider.Shutdown(ctx)
}
