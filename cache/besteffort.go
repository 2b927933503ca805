package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/ZaguanLabs/slanger"
)

// DefaultOpTimeout bounds each backend call made through BestEffort.
const DefaultOpTimeout = 500 * time.Millisecond

// BestEffort adapts a Backend to slanger.InterpretationCache. Backend
// failures are logged and swallowed: reads degrade to misses, writes to
// no-ops. A cache outage costs latency, never correctness.
type BestEffort struct {
	backend   Backend
	opTimeout time.Duration
	logger    *slog.Logger
}

// BestEffortOption configures a BestEffort wrapper.
type BestEffortOption func(*BestEffort)

// WithOpTimeout sets the per-call timeout (0 disables it).
func WithOpTimeout(d time.Duration) BestEffortOption {
	return func(b *BestEffort) {
		b.opTimeout = d
	}
}

// WithLogger sets the logger for swallowed errors.
func WithLogger(l *slog.Logger) BestEffortOption {
	return func(b *BestEffort) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBestEffort wraps backend.
func NewBestEffort(backend Backend, opts ...BestEffortOption) *BestEffort {
	b := &BestEffort{
		backend:   backend,
		opTimeout: DefaultOpTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BestEffort) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.opTimeout)
}

// Get returns the cached value, treating any backend error as a miss.
func (b *BestEffort) Get(ctx context.Context, key string) (val string, ok bool) {
	defer b.recoverPanic("get", key)

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	val, ok, err := b.backend.Get(ctx, key)
	if err != nil {
		b.logger.Warn("cache read failed", "error", &slanger.CacheError{Op: "get", Key: key, Cause: err})
		return "", false
	}
	return val, ok
}

// Set stores value for ttl, ignoring backend errors.
func (b *BestEffort) Set(ctx context.Context, key, value string, ttl time.Duration) {
	defer b.recoverPanic("set", key)

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if err := b.backend.Set(ctx, key, value, effectiveTTL(ttl)); err != nil {
		b.logger.Warn("cache write failed", "error", &slanger.CacheError{Op: "set", Key: key, Cause: err})
	}
}

// Purge removes every key under prefix. Purge is administrative and may
// scan the whole keyspace, so it is not bound by the per-call timeout.
func (b *BestEffort) Purge(ctx context.Context, prefix string) (n int) {
	defer b.recoverPanic("purge", prefix)

	n, err := b.backend.Purge(ctx, prefix)
	if err != nil {
		b.logger.Warn("cache purge failed", "removed", n, "error", &slanger.CacheError{Op: "purge", Key: prefix, Cause: err})
	}
	return n
}

// Backend returns the wrapped backend.
func (b *BestEffort) Backend() Backend {
	return b.backend
}

// Close closes the wrapped backend.
func (b *BestEffort) Close() error {
	return b.backend.Close()
}

// recoverPanic keeps a misbehaving client from taking down a request.
func (b *BestEffort) recoverPanic(op, key string) {
	if r := recover(); r != nil {
		b.logger.Error("cache backend panicked", "op", op, "key", key, "panic", r)
	}
}

var _ slanger.InterpretationCache = (*BestEffort)(nil)
