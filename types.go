package slanger

import (
	"context"
	"time"
)

// Record is a durable interpretation of a term.
// A term may have several records; the most recently created one wins.
type Record struct {
	ID        int64     `db:"id" json:"id"`
	Term      string    `db:"term" json:"term"`
	Meaning   string    `db:"meaning" json:"meaning"`
	Example   string    `db:"example" json:"example,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Request is a single interpretation request. It carries everything the
// provider needs; nothing is shared between requests.
type Request struct {
	Term    string
	Context string
}

// Response is the boundary shape handed to callers.
type Response struct {
	MeaningLine string `json:"meaning_line"`
}

// AIProvider is the interface for generative interpretation backends.
// Implementations return the raw answer line for one attempt.
type AIProvider interface {
	Interpret(ctx context.Context, req Request) (string, error)
}

// InterpretationCache is a best-effort key/value store with TTL.
// Implementations must never return errors; a broken backend reads as a miss.
type InterpretationCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Purge(ctx context.Context, prefix string) int
}

// RecordStore is the durable, append-only interpretation history.
type RecordStore interface {
	// FindLatestByTerm returns nil, nil when the term has no records.
	FindLatestByTerm(ctx context.Context, term string) (*Record, error)
	Append(ctx context.Context, term, meaning, example string) (*Record, error)
	Terms(ctx context.Context) ([]string, error)
}

// Outcome labels how a resolution finished.
type Outcome string

const (
	OutcomeCacheHit Outcome = "cache_hit"
	OutcomeStoreHit Outcome = "store_hit"
	OutcomeUpstream Outcome = "upstream"
	OutcomeFallback Outcome = "fallback"
)

// IgnoredTags contains HTML tags whose text is never scanned for terms.
var IgnoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"code":     true,
	"pre":      true,
	"textarea": true,
	"noscript": true,
}
