// Package cache defines the key-value cache store the feed pipeline depends
// on. The store is strictly a latency optimization: every caller must treat
// a failed Get as a miss and a failed Set as a no-op.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key-value store with non-transactional, last-writer-wins
// semantics. Pattern deletion supports the single wildcard form used for
// per-viewer invalidation ("prefix:*").
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes all keys matching a glob-style pattern.
	DeletePattern(ctx context.Context, pattern string) error
}
