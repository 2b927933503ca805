package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ZaguanLabs/slanger"
)

// MemoryStore is an in-process RecordStore for tests and single-run CLI use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []slanger.Record
	nextID  int64
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

// FindLatestByTerm returns the newest record for term, or nil.
func (m *MemoryStore) FindLatestByTerm(_ context.Context, term string) (*slanger.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *slanger.Record
	for i := range m.records {
		r := &m.records[i]
		if r.Term != term {
			continue
		}
		if latest == nil || !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

// Append adds a record.
func (m *MemoryStore) Append(_ context.Context, term, meaning, example string) (*slanger.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := slanger.Record{
		ID:        m.nextID,
		Term:      term,
		Meaning:   meaning,
		Example:   example,
		CreatedAt: m.now().UTC(),
	}
	m.nextID++
	m.records = append(m.records, rec)
	return &rec, nil
}

// Terms returns every distinct term, sorted.
func (m *MemoryStore) Terms(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var terms []string
	for _, r := range m.records {
		if !seen[r.Term] {
			seen[r.Term] = true
			terms = append(terms, r.Term)
		}
	}
	sort.Strings(terms)
	return terms, nil
}

// Len returns the number of records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

var _ slanger.RecordStore = (*MemoryStore)(nil)
