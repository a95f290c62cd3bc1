package cache

import (
	"context"
	"time"
)

// Store is a TTL-capable key/value store used for distributed locks,
// seat holds and invalidation of cached aggregates.
//
// All operations are best-effort: when the backing store is unavailable
// they return the zero value / false instead of an error, so callers
// degrade to cache-miss behaviour rather than failing the request.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores value under key with the given TTL. A zero TTL means
	// no expiry. Returns false if the value could not be stored.
	Set(ctx context.Context, key, value string, ttl time.Duration) bool

	// SetNX stores value only if key is absent, atomically with the
	// TTL. Returns true iff this call created the key. This is the
	// primitive the distributed lock is built on; implementations must
	// not emulate it with a get-then-set.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) bool

	// Delete removes key. Returns true if a key was removed.
	Delete(ctx context.Context, key string) bool

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) bool

	// Increment atomically increments the counter at key, setting the
	// TTL when the key is first created. Returns the new value and
	// whether the operation succeeded.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, bool)

	// CompareAndDelete removes key only if its current value equals
	// expected, atomically on the server side. Returns true iff the
	// key was removed.
	CompareAndDelete(ctx context.Context, key, expected string) bool
}
