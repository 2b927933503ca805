// Package cache provides interpretation cache backends and the
// best-effort wrapper the service talks to.
package cache

import (
	"context"
	"time"
)

// DefaultTTL applies when a write asks for no expiration.
// Cache entries always expire.
const DefaultTTL = time.Hour

// Backend is a key/value store with per-entry TTL. Unlike the service-facing
// wrapper, backends report their failures.
type Backend interface {
	// Get returns the value and true on a hit, "" and false on a miss.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key for ttl. A ttl <= 0 means DefaultTTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Purge removes every key starting with prefix and returns how many were removed.
	Purge(ctx context.Context, prefix string) (int, error)

	// Close releases the backend's resources.
	Close() error
}

func effectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
