package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"
)

// defaultBucket holds interpretation entries.
var defaultBucket = []byte("interpretations")

// BoltCache is a file-backed cache for single-node deployments.
// Values are stored as an 8-byte big-endian expiry (unix seconds)
// followed by the raw value.
type BoltCache struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

// BoltConfig holds configuration for the Bolt cache.
type BoltConfig struct {
	Path   string // Database file path
	Bucket string // Bucket name (default: "interpretations")
}

// NewBoltCache opens or creates the cache file.
func NewBoltCache(cfg BoltConfig) (*BoltCache, error) {
	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	bucket := defaultBucket
	if cfg.Bucket != "" {
		bucket = []byte(cfg.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltCache{db: db, bucket: bucket, now: time.Now}, nil
}

// Get returns the value if present and not expired. Expired entries are
// left for Set or Purge to overwrite.
func (c *BoltCache) Get(_ context.Context, key string) (string, bool, error) {
	var out string
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(c.bucket).Get([]byte(key))
		if len(v) < 8 {
			return nil
		}
		expiresAt := int64(binary.BigEndian.Uint64(v[:8]))
		if c.now().Unix() >= expiresAt {
			return nil
		}
		out = string(v[8:])
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return out, found, nil
}

// Set stores value with an absolute expiry of now+ttl.
func (c *BoltCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	expiresAt := c.now().Add(effectiveTTL(ttl)).Unix()
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt))
	copy(buf[8:], value)

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(c.bucket).Put([]byte(key), buf)
	})
}

// Purge removes every key starting with prefix. Deletes are all-or-nothing.
func (c *BoltCache) Purge(_ context.Context, prefix string) (int, error) {
	removed := 0
	p := []byte(prefix)
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		var keys [][]byte
		cur := b.Cursor()
		for k, _ := cur.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = cur.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		// Deleting under an open cursor skips entries.
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		// The transaction rolled back; nothing was removed.
		return 0, err
	}
	return removed, nil
}

// Close closes the underlying database.
func (c *BoltCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

var _ Backend = (*BoltCache)(nil)
