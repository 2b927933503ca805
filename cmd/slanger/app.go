package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/ZaguanLabs/slanger"
	"github.com/ZaguanLabs/slanger/cache"
	"github.com/ZaguanLabs/slanger/config"
	"github.com/ZaguanLabs/slanger/provider"
	"github.com/ZaguanLabs/slanger/store"
)

// app is the wired service plus the handles it must close.
type app struct {
	cfg     *config.Config
	svc     *slanger.Service
	store   slanger.RecordStore
	closers []io.Closer
}

func (g *globals) loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	var meter metric.MeterProvider
	if g.stats != nil {
		meter = g.stats.provider
	}
	return newApp(ctx, cfg, g.logger, meter)
}

// newApp wires the service from cfg. meter may be nil.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, meter metric.MeterProvider) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &app{cfg: cfg}

	backend, err := openCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", cfg.Cache.Backend, err)
	}
	a.closers = append(a.closers, backend)

	recordStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	if c, ok := recordStore.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	a.store = recordStore

	var ai slanger.AIProvider = provider.NewOpenAIProvider(provider.OpenAIConfig{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		BaseURL:     cfg.OpenAI.BaseURL,
	})
	if rpm := cfg.Upstream.RequestsPerMinute; rpm > 0 {
		ai = slanger.NewRateLimitedProvider(ai, slanger.RateLimitConfig{RequestsPerMinute: rpm})
	}

	interpreter := slanger.NewInterpreter(ai,
		slanger.WithRetryPolicy(cfg.Upstream.RetryPolicy()),
		slanger.WithInterpreterLogger(logger),
		slanger.WithInterpreterMeterProvider(meter),
	)

	a.svc = slanger.NewService(interpreter,
		cache.NewBestEffort(backend, cache.WithOpTimeout(cfg.Cache.OpTimeout), cache.WithLogger(logger)),
		recordStore,
		slanger.WithKeyNamespace(cfg.Cache.Namespace),
		slanger.WithCacheTTL(cfg.Cache.TTL),
		slanger.WithBatchConcurrency(cfg.Service.BatchConcurrency),
		slanger.WithLogger(logger),
		slanger.WithMeterProvider(meter),
	)
	return a, nil
}

func openCache(cfg config.CacheConfig) (cache.Backend, error) {
	switch cfg.Backend {
	case "redis":
		return cache.NewRedisCache(cache.RedisConfig{URL: cfg.RedisURL})
	case "bolt":
		return cache.NewBoltCache(cache.BoltConfig{Path: cfg.BoltPath})
	case "memory", "":
		return cache.NewInMemoryCache(cache.MemoryConfig{Size: cfg.Size, MaxTTL: cfg.TTL})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (slanger.RecordStore, error) {
	if cfg.Driver == "memory" || cfg.Driver == "" {
		return store.NewMemoryStore(), nil
	}

	s, err := store.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases every handle, returning the joined errors.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
