package slanger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// stubProvider replays lines and errs by call index. The last line repeats.
type stubProvider struct {
	lines []string
	errs  []error
	delay time.Duration

	mu       sync.Mutex
	calls    int
	requests []Request
}

func (p *stubProvider) Interpret(ctx context.Context, req Request) (string, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.delay):
		}
	}

	if idx < len(p.errs) && p.errs[idx] != nil {
		return "", p.errs[idx]
	}
	if len(p.lines) == 0 {
		return "", errors.New("stub: no line configured")
	}
	if idx >= len(p.lines) {
		idx = len(p.lines) - 1
	}
	return p.lines[idx], nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *stubProvider) lastRequest() Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return Request{}
	}
	return p.requests[len(p.requests)-1]
}

// mapCache is an in-process InterpretationCache that counts writes.
type mapCache struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	gets   int
	writes int
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	c.data[key] = value
	c.ttls[key] = ttl
}

func (c *mapCache) Purge(_ context.Context, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			n++
		}
	}
	return n
}

func (c *mapCache) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// brokenCache behaves like a cache whose backend is down.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (string, bool) { return "", false }
func (brokenCache) Set(context.Context, string, string, time.Duration) {}
func (brokenCache) Purge(context.Context, string) int { return 0 }

// listStore is an append-only RecordStore kept in a slice.
type listStore struct {
	mu        sync.Mutex
	records   []Record
	findErr   error
	appendErr error
}

func (s *listStore) FindLatestByTerm(_ context.Context, term string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Term == term {
			rec := s.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *listStore) Append(_ context.Context, term, meaning, example string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	rec := Record{
		ID:        int64(len(s.records) + 1),
		Term:      term,
		Meaning:   meaning,
		Example:   example,
		CreatedAt: time.Now(),
	}
	s.records = append(s.records, rec)
	return &rec, nil
}

func (s *listStore) Terms(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var terms []string
	for _, r := range s.records {
		if !seen[r.Term] {
			seen[r.Term] = true
			terms = append(terms, r.Term)
		}
	}
	return terms, nil
}

func (s *listStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// fastPolicy keeps retry tests quick.
func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		AttemptTimeout: 200 * time.Millisecond,
		Deadline:       2 * time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
