// Package kv abstracts the key-value store behind the snapshot store and
// the dedup ledger: string get/set with expiry plus an atomic
// set-if-absent. A Redis implementation backs production; an in-process
// implementation backs tests and dry runs.
package kv

import (
	"context"
	"time"
)

// Store is the minimal key-value contract the persistence layer needs.
// Implementations must offer read-your-writes consistency within a single
// process and atomic single-key set/expire.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes the value. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes the value only if the key is absent, atomically, and
	// reports whether the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Exists reports whether the key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)
	// Close releases any underlying resources.
	Close() error
}
