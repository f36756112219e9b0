// Package frontcache implements a provider-agnostic cache-aside layer for a
// persistent store of record: deterministic key derivation, TTL-tiered
// namespaced storage, pattern-based bulk invalidation, and graceful
// degradation when the backend is unreachable.
//
// Components:
//   - Provider: byte store with TTL and glob enumeration (Redis, memory,
//     BigCache, Ristretto).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - keys: pure derivation of canonical keys and deletion globs.
//   - aside: per-entity read-through population and coordinated
//     invalidation over a pair of caches (entities + collections).
//
// Keys: every stored key is "<namespace>:<derived key>", e.g.
//
//	app:prod:user:id:1
//	app:prod:user:field:email:john@test.com
//	app:prod:user:list:page:2:limit:10:status:active
//
// The cache is always optional. Backend failures never reach callers:
// reads degrade to misses, writes and deletions to no-ops, and a circuit
// breaker plus background probe bring the cache back when the backend
// recovers. The store of record remains authoritative throughout.
package frontcache
