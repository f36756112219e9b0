package frontcache

import "time"

const (
	defaultShortTTL     = 60 * time.Second // volatile collections (lists, searches, counts)
	defaultMediumTTL    = 15 * time.Minute // single entities
	defaultLongTTL      = time.Hour        // rarely-changing aggregates
	defaultOpTimeout    = 250 * time.Millisecond
	defaultProbeEvery   = 15 * time.Second
	defaultProbeBackoff = 2 * time.Minute // cap for the reconnect probe interval
	defaultTripAfter    = 3               // consecutive failures before degrading
	defaultOpenFor      = 5 * time.Second // degraded window before a reconnect probe is allowed
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
