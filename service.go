package slanger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is used for every cache write unless overridden.
const DefaultCacheTTL = time.Hour

// Service is the cache-aside interpretation pipeline:
// cache, then record store, then the interpreter.
type Service struct {
	interpreter *Interpreter
	cache       InterpretationCache
	store       RecordStore
	namespace   string
	ttl         time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *metrics
	flights     singleflight.Group
}

// ServiceOption is a functional option for configuring the Service.
type ServiceOption func(*Service)

// WithKeyNamespace sets the cache key namespace.
func WithKeyNamespace(ns string) ServiceOption {
	return func(s *Service) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithCacheTTL sets the TTL applied to cache writes.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithBatchConcurrency bounds the number of parallel resolutions in ResolveMany.
func WithBatchConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMeterProvider records resolution metrics on provider.
func WithMeterProvider(provider metric.MeterProvider) ServiceOption {
	return func(s *Service) {
		if m, err := newMetrics(provider); err == nil {
			s.metrics = m
		}
	}
}

// NewService creates a Service. cache and store may be nil, in which case
// that tier is skipped.
func NewService(interpreter *Interpreter, cache InterpretationCache, store RecordStore, opts ...ServiceOption) *Service {
	if interpreter == nil {
		interpreter = NewInterpreter(nil)
	}
	s := &Service{
		interpreter: interpreter,
		cache:       cache,
		store:       store,
		namespace:   DefaultKeyNamespace,
		ttl:         DefaultCacheTTL,
		concurrency: 4,
		logger:      slog.Default(),
		metrics:     noopInstruments(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// resolution is the value shared between single-flight waiters.
type resolution struct {
	line    string
	outcome Outcome
}

// Resolve returns the interpretation line for term as used in sentence
// (which may be empty). The only error is ErrEmptyTerm; every other
// failure degrades to the fallback line.
func (s *Service) Resolve(ctx context.Context, term, sentence string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", ErrEmptyTerm
	}
	sentence = strings.TrimSpace(sentence)

	start := time.Now()
	key := DeriveKeyNamespaced(s.namespace, term, sentence)

	// The shared computation must outlive any single waiter.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (any, error) {
		return s.resolve(flightCtx, key, Request{Term: term, Context: sentence}), nil
	})

	select {
	case <-ctx.Done():
		s.logger.Debug("resolve abandoned by caller", "term", term, "error", ctx.Err())
		s.metrics.recordResolve(ctx, OutcomeFallback, false, time.Since(start))
		return FallbackLine(term), nil
	case res := <-ch:
		r := res.Val.(resolution)
		s.metrics.recordResolve(ctx, r.outcome, res.Shared, time.Since(start))
		return r.line, nil
	}
}

// Lookup is Resolve in the boundary response shape.
func (s *Service) Lookup(ctx context.Context, term, sentence string) (Response, error) {
	line, err := s.Resolve(ctx, term, sentence)
	if err != nil {
		return Response{}, err
	}
	return Response{MeaningLine: line}, nil
}

func (s *Service) resolve(ctx context.Context, key string, req Request) resolution {
	// CHECK_CACHE
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok && !IsFallback(cached) {
			return resolution{line: cached, outcome: OutcomeCacheHit}
		}
	}

	// CHECK_STORE
	if s.store != nil {
		rec, err := s.store.FindLatestByTerm(ctx, req.Term)
		switch {
		case err != nil:
			s.logger.Warn("record store lookup failed", "term", req.Term, "error", err)
		case rec != nil && !IsFallback(rec.Meaning):
			s.cacheSet(ctx, key, rec.Meaning)
			return resolution{line: rec.Meaning, outcome: OutcomeStoreHit}
		}
	}

	// CALL_UPSTREAM
	line := s.interpreter.Interpret(ctx, req)
	if IsFallback(line) {
		return resolution{line: line, outcome: OutcomeFallback}
	}

	// PERSIST
	if s.store != nil {
		if _, err := s.store.Append(ctx, req.Term, line, req.Context); err != nil {
			s.logger.Warn("record store append failed", "term", req.Term, "error", err)
		}
	}

	// CACHE_WRITE
	s.cacheSet(ctx, key, line)
	return resolution{line: line, outcome: OutcomeUpstream}
}

func (s *Service) cacheSet(ctx context.Context, key, line string) {
	if s.cache == nil || IsFallback(line) {
		return
	}
	s.cache.Set(ctx, key, line, s.ttl)
}

// Terms lists every term with at least one stored interpretation.
func (s *Service) Terms(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return nil, nil
	}
	terms, err := s.store.Terms(ctx)
	if err != nil {
		return nil, &StoreError{Op: "terms", Cause: err}
	}
	return terms, nil
}

// Purge removes every cache entry under the service's namespace and
// returns the number of entries removed.
func (s *Service) Purge(ctx context.Context) int {
	if s.cache == nil {
		return 0
	}
	n := s.cache.Purge(ctx, NamespacePrefix(s.namespace))
	s.logger.Info("cache purged", "namespace", s.namespace, "removed", n)
	return n
}

// Namespace returns the cache key namespace.
func (s *Service) Namespace() string {
	return s.namespace
}

// TTL returns the TTL applied to cache writes.
func (s *Service) TTL() time.Duration {
	return s.ttl
}
