package frontcache

import (
	"context"
	"time"

	cd "github.com/unkn0wn-root/frontcache/codec"
	pr "github.com/unkn0wn-root/frontcache/provider"
)

// TTLTier names an expiry duration class. Policy lives in Options, not at
// call sites: changing how long entities stay cached is a one-line change.
type TTLTier uint8

const (
	// TierShort suits volatile collections: lists, searches, counts.
	TierShort TTLTier = iota
	// TierMedium suits single entities.
	TierMedium
	// TierLong suits rarely-changing aggregates.
	TierLong
)

func (t TTLTier) String() string {
	switch t {
	case TierShort:
		return "short"
	case TierMedium:
		return "medium"
	case TierLong:
		return "long"
	default:
		return "unknown"
	}
}

// State describes backend connectivity as seen by the cache.
type State uint8

const (
	// StateDisabled: no provider configured; the cache is permanently off.
	StateDisabled State = iota
	// StateConnecting: reachable state not yet established, or a reconnect
	// probe is in flight.
	StateConnecting
	// StateConnected: backend reachable, operations live.
	StateConnected
	// StateDegraded: backend unreachable; every operation short-circuits to
	// its safe default until a probe succeeds.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Status is a point-in-time connectivity report for operational tooling.
type Status struct {
	State     State
	Namespace string
}

// Cache is the read/write contract data-access callers consume. Keys are
// plain strings produced by the keys package - callers must not
// hand-construct them.
//
// No method ever surfaces a backend error: failures degrade to the safe
// default for the operation (miss, false, 0) and are logged. The store of
// record stays authoritative; the cache is always optional.
type Cache[V any] interface {
	// Enabled reports whether a backend was configured at all.
	Enabled() bool
	// Ready reports whether the backend is currently reachable.
	Ready() bool
	Namespace() string
	Status() Status

	// Get returns the cached value, or ok=false on miss, degradation,
	// corruption, or decode failure.
	Get(ctx context.Context, key string) (v V, ok bool)

	// Set serializes value and stores it with the tier's expiry.
	Set(ctx context.Context, key string, value V, tier TTLTier) bool

	// Delete removes one key; true when an entry existed.
	Delete(ctx context.Context, key string) bool

	// DeletePattern removes every key matching the glob and returns the
	// count. O(n) in matching keys - bulk invalidation only, never a
	// substitute for Delete on hot paths. Zero matches and an unreachable
	// backend both report 0; only logs tell them apart.
	DeletePattern(ctx context.Context, pattern string) int64

	Exists(ctx context.Context, key string) bool

	// Flush removes every key under this cache's namespace. Destructive;
	// admin/maintenance use only.
	Flush(ctx context.Context) int64

	// SelfTest runs a synthetic set→get→compare→delete→verify-absence cycle
	// against the backend, bypassing the codec. A nil result means the
	// round trip is intact.
	SelfTest(ctx context.Context) error

	Close(ctx context.Context) error
}

// Options tune a cache instance. A nil Provider (and Disabled=false) yields
// a permanently disabled cache - absence of backend configuration is not an
// error. Namespace is required whenever a provider is set.
type Options[V any] struct {
	// Namespace prefixes every stored key to separate environments/services
	// sharing one backend. Immutable for the cache's lifetime.
	Namespace string
	Provider  pr.Provider
	Codec     cd.Codec[V] // nil => codec.JSON[V]

	Logger Logger // nil => NopLogger
	Events Events // nil => NopEvents

	ShortTTL  time.Duration // 0 => 60s
	MediumTTL time.Duration // 0 => 15m
	LongTTL   time.Duration // 0 => 1h

	// OpTimeout bounds every backend call. 0 => 250ms.
	OpTimeout time.Duration

	// ProbeInterval is the watchdog ping cadence while healthy; on failures
	// it backs off exponentially up to MaxProbeBackoff. 0 => 15s / 2m.
	ProbeInterval   time.Duration
	MaxProbeBackoff time.Duration

	// TripAfter consecutive backend failures mark the cache degraded;
	// OpenFor is how long operations short-circuit before the next
	// reconnect attempt. 0 => 3 / 5s.
	TripAfter uint32
	OpenFor   time.Duration

	// Disabled forces the cache off even with a provider configured.
	Disabled bool

	// KeepProviderOpen leaves the provider running on Close. Set it when
	// several caches (e.g. an entity cache and a list cache) share one
	// provider and another instance owns shutdown.
	KeepProviderOpen bool
}

// New builds a cache. The only hard error is a provider without a
// namespace; everything else has a default.
func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
