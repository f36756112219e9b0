// Package async decouples event sinks from cache hot paths: callbacks are
// queued and run on a small worker pool, and dropped (never blocked on)
// when the queue is full.
//
// usage:
//
//	raw := slogevents.New(slog.Default(), slogevents.Options{HitEvery: 100})
//	ev := async.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer ev.Close()
//
//	cache, _ := frontcache.New[User](frontcache.Options[User]{
//	    Namespace: "app:prod:user",
//	    Provider:  provider,
//	    Events:    ev, // or `raw` if synchronous delivery is fine
//	})
package async

import (
	"sync"

	"github.com/unkn0wn-root/frontcache"
)

type Events struct {
	inner frontcache.Events
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ frontcache.Events = (*Events)(nil)

func New(inner frontcache.Events, workers, qlen int) *Events {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	e := &Events{inner: inner, q: make(chan func(), qlen)}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer e.wg.Done()
			for f := range e.q {
				f()
			}
		}()
	}
	return e
}

func (e *Events) Close() {
	e.once.Do(func() {
		close(e.q)
		e.wg.Wait()
	})
}

func (e *Events) try(f func()) {
	select {
	case e.q <- f:
	default: // drop
	}
}

func (e *Events) Hit(ns, key string)  { e.try(func() { e.inner.Hit(ns, key) }) }
func (e *Events) Miss(ns, key string) { e.try(func() { e.inner.Miss(ns, key) }) }
func (e *Events) SetRejected(ns, key string) {
	e.try(func() { e.inner.SetRejected(ns, key) })
}
func (e *Events) SelfHeal(ns, key, reason string) {
	e.try(func() { e.inner.SelfHeal(ns, key, reason) })
}
func (e *Events) Invalidate(ns, key string, removed int64) {
	e.try(func() { e.inner.Invalidate(ns, key, removed) })
}
func (e *Events) PatternInvalidate(ns, pattern string, removed int64) {
	e.try(func() { e.inner.PatternInvalidate(ns, pattern, removed) })
}
func (e *Events) Degraded(ns string)  { e.try(func() { e.inner.Degraded(ns) }) }
func (e *Events) Recovered(ns string) { e.try(func() { e.inner.Recovered(ns) }) }
