// Package provider defines the storage abstraction used by frontcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key. If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so that the bytes returned by Get are identical to the bytes
// provided to Set.
//
// Keys handed to a provider are already namespaced by the cache; providers
// never rewrite them.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrEnumerationUnsupported is returned by Keys when a backend cannot list
// its keyspace (e.g., ristretto). The cache treats it as a degraded pattern
// operation: log and report zero deletions, never fail the caller.
var ErrEnumerationUnsupported = errors.New("provider: key enumeration unsupported")

// Provider is a minimal byte store with TTLs, existence checks and glob
// enumeration. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. ttl <= 0 means no expiry.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes keys and reports how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Keys enumerates live keys matching a glob pattern. May return
	// ErrEnumerationUnsupported. O(n) in the keyspace; callers use it for
	// bulk invalidation only.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Exists reports whether a key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}
