// Package slogevents logs cache events through log/slog, with sampling for
// the high-frequency hit/miss stream.
package slogevents

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/frontcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
}

type Events struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ frontcache.Events = (*Events)(nil)

func New(l *slog.Logger, opts Options) *Events {
	return &Events{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (e *Events) Hit(ns, key string) {
	if e.l == nil || !sample(e.opts.HitEvery, &e.hitCtr) {
		return
	}
	e.l.Debug("frontcache.hit", "ns", ns, "key", key)
}

func (e *Events) Miss(ns, key string) {
	if e.l == nil || !sample(e.opts.MissEvery, &e.missCtr) {
		return
	}
	e.l.Debug("frontcache.miss", "ns", ns, "key", key)
}

func (e *Events) SetRejected(ns, key string) {
	if e.l == nil {
		return
	}
	e.l.Warn("frontcache.set_rejected", "ns", ns, "key", key)
}

func (e *Events) SelfHeal(ns, key, reason string) {
	if e.l == nil {
		return
	}
	e.l.Warn("frontcache.self_heal", "ns", ns, "key", key, "reason", reason)
}

func (e *Events) Invalidate(ns, key string, removed int64) {
	if e.l == nil {
		return
	}
	e.l.Debug("frontcache.invalidate", "ns", ns, "key", key, "removed", removed)
}

func (e *Events) PatternInvalidate(ns, pattern string, removed int64) {
	if e.l == nil {
		return
	}
	e.l.Info("frontcache.pattern_invalidate", "ns", ns, "pattern", pattern, "removed", removed)
}

func (e *Events) Degraded(ns string) {
	if e.l == nil {
		return
	}
	e.l.Error("frontcache.degraded", "ns", ns)
}

func (e *Events) Recovered(ns string) {
	if e.l == nil {
		return
	}
	e.l.Info("frontcache.recovered", "ns", ns)
}
