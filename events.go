package frontcache

// Events are lightweight callbacks for high-signal cache activity.
// Implementations MUST be cheap and non-blocking - the cache calls them on
// hot paths. Wrap slow sinks with events/async.
type Events interface {
	// A read was served from the cache.
	Hit(namespace, key string)

	// A read found nothing (absent key, degraded backend, corrupt entry).
	Miss(namespace, key string)

	// Provider refused a write (backpressure/eviction) or the write failed.
	SetRejected(namespace, key string)

	// A corrupt or foreign entry was deleted on read.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(namespace, key, reason string)

	// A single key was explicitly invalidated; removed is 0 or 1.
	Invalidate(namespace, key string, removed int64)

	// A glob invalidation ran; removed counts matched keys actually deleted.
	PatternInvalidate(namespace, pattern string, removed int64)

	// The backend was marked unreachable; operations now degrade.
	Degraded(namespace string)

	// The backend came back; operations are live again.
	Recovered(namespace string)
}

// NopEvents is the default no-op.
type NopEvents struct{}

func (NopEvents) Hit(string, string)                       {}
func (NopEvents) Miss(string, string)                      {}
func (NopEvents) SetRejected(string, string)               {}
func (NopEvents) SelfHeal(string, string, string)          {}
func (NopEvents) Invalidate(string, string, int64)         {}
func (NopEvents) PatternInvalidate(string, string, int64)  {}
func (NopEvents) Degraded(string)                          {}
func (NopEvents) Recovered(string)                         {}
