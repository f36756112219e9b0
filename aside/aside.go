// Package aside implements cache-aside repository behavior for an entity
// type: read-through population under multiple lookup keys, TTL-tier
// selection, and coordinated invalidation of entity, field, and collection
// keys on mutation.
//
// The store of record stays outside this package. Read methods take a
// loader closure that fetches from it on a miss; write notification methods
// (OnCreated, OnUpdated, OnDeleted) are called by the data-access layer
// strictly after its own mutation succeeded.
//
// Population is a best-effort asynchronous side channel: a read never waits
// for the cache write that follows it. Invalidation, by contrast, is
// awaited before the mutation is acknowledged, keeping the staleness window
// bounded by the TTL tier instead of unbounded.
package aside

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/unkn0wn-root/frontcache"
	"github.com/unkn0wn-root/frontcache/keys"
	pr "github.com/unkn0wn-root/frontcache/provider"
)

// Descriptor declares how an entity type is identified and indexed. It
// replaces runtime field inspection with an explicit per-type adapter.
type Descriptor[E any] struct {
	// EntityType is the key-segment name, e.g. "user".
	EntityType string

	// ID extracts the primary identifier.
	ID func(E) string

	// Fields returns the secondary lookup fields and their values, e.g.
	// {"email": "john@test.com"}. Values must already be normalized
	// (key derivation does not normalize). Nil means no secondary keys.
	Fields func(E) map[string]string
}

// Loader fetches one entity from the store of record. found=false means
// the entity does not exist (not an error).
type Loader[E any] func(ctx context.Context) (v E, found bool, err error)

// ListLoader fetches a collection from the store of record.
type ListLoader[E any] func(ctx context.Context) ([]E, error)

// CountLoader fetches an aggregate count from the store of record.
type CountLoader func(ctx context.Context) (int64, error)

// Config wires a binding to a shared backend provider. Provider nil (or
// Disabled) produces a binding whose reads always go to the loader and
// whose invalidations are no-ops - the pass-through mode of a cacheless
// deployment.
type Config struct {
	Provider  pr.Provider
	Namespace string

	Logger frontcache.Logger
	Events frontcache.Events

	ShortTTL  time.Duration
	MediumTTL time.Duration
	LongTTL   time.Duration
	OpTimeout time.Duration

	// Workers and QueueLen size the population side channel. 0 => 1 / 256.
	// When the queue is full, population is dropped, never blocked on.
	Workers  int
	QueueLen int

	Disabled bool
}

// Binding is the stateless façade a data-access layer holds per entity
// type. It composes three caches over one provider and namespace: entities
// (TierMedium), collections (TierShort - lists mutate more often), and
// counts (TierShort).
type Binding[E any] struct {
	desc   Descriptor[E]
	single frontcache.Cache[E]
	lists  frontcache.Cache[[]E]
	counts frontcache.Cache[int64]

	pop  chan func(context.Context)
	wg   sync.WaitGroup
	once sync.Once
}

func New[E any](desc Descriptor[E], cfg Config) (*Binding[E], error) {
	if desc.EntityType == "" {
		return nil, errors.New("aside: entity type is required")
	}
	if desc.ID == nil {
		return nil, errors.New("aside: ID extractor is required")
	}

	single, err := frontcache.New[E](frontcache.Options[E]{
		Namespace: cfg.Namespace,
		Provider:  cfg.Provider,
		Logger:    cfg.Logger,
		Events:    cfg.Events,
		ShortTTL:  cfg.ShortTTL,
		MediumTTL: cfg.MediumTTL,
		LongTTL:   cfg.LongTTL,
		OpTimeout: cfg.OpTimeout,
		Disabled:  cfg.Disabled,
	})
	if err != nil {
		return nil, err
	}
	lists, err := frontcache.New[[]E](frontcache.Options[[]E]{
		Namespace:        cfg.Namespace,
		Provider:         cfg.Provider,
		Logger:           cfg.Logger,
		Events:           cfg.Events,
		ShortTTL:         cfg.ShortTTL,
		MediumTTL:        cfg.MediumTTL,
		LongTTL:          cfg.LongTTL,
		OpTimeout:        cfg.OpTimeout,
		Disabled:         cfg.Disabled,
		KeepProviderOpen: true, // single owns shutdown
	})
	if err != nil {
		return nil, err
	}
	counts, err := frontcache.New[int64](frontcache.Options[int64]{
		Namespace:        cfg.Namespace,
		Provider:         cfg.Provider,
		Logger:           cfg.Logger,
		Events:           cfg.Events,
		ShortTTL:         cfg.ShortTTL,
		MediumTTL:        cfg.MediumTTL,
		LongTTL:          cfg.LongTTL,
		OpTimeout:        cfg.OpTimeout,
		Disabled:         cfg.Disabled,
		KeepProviderOpen: true,
	})
	if err != nil {
		return nil, err
	}

	b := &Binding[E]{
		desc:   desc,
		single: single,
		lists:  lists,
		counts: counts,
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	qlen := cfg.QueueLen
	if qlen <= 0 {
		qlen = 256
	}
	b.pop = make(chan func(context.Context), qlen)
	b.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer b.wg.Done()
			for f := range b.pop {
				f(context.Background())
			}
		}()
	}
	return b, nil
}

// Ready reports backend connectivity (false also when no backend is
// configured).
func (b *Binding[E]) Ready() bool { return b.single.Ready() }

// Status reports connectivity and namespace for operational checks.
func (b *Binding[E]) Status() frontcache.Status { return b.single.Status() }

// SelfTest validates the backend round trip; see frontcache.Cache.SelfTest.
func (b *Binding[E]) SelfTest(ctx context.Context) error { return b.single.SelfTest(ctx) }

// Close drains the population queue, then shuts the caches down.
func (b *Binding[E]) Close(ctx context.Context) error {
	b.once.Do(func() {
		close(b.pop)
		b.wg.Wait()
	})
	return errors.Join(
		b.counts.Close(ctx),
		b.lists.Close(ctx),
		b.single.Close(ctx), // closes the shared provider
	)
}

// FindByID serves the entity from cache when possible; on a miss it runs
// the loader and schedules population of the id key and every secondary
// field key.
func (b *Binding[E]) FindByID(ctx context.Context, id string, load Loader[E]) (E, bool, error) {
	if v, ok := b.single.Get(ctx, keys.ByID(b.desc.EntityType, id)); ok {
		return v, true, nil
	}
	return b.loadAndPopulate(ctx, load)
}

// FindByField looks an entity up by a unique secondary field. A hit via the
// field key and a later FindByID both hit: population always writes the
// full key set for the entity, however it was discovered.
func (b *Binding[E]) FindByField(ctx context.Context, field, value string, load Loader[E]) (E, bool, error) {
	if v, ok := b.single.Get(ctx, keys.ByField(b.desc.EntityType, field, value)); ok {
		return v, true, nil
	}
	return b.loadAndPopulate(ctx, load)
}

// FindList caches exactly the page/filter combination requested - no
// speculative prefetch of adjacent pages.
func (b *Binding[E]) FindList(ctx context.Context, page *keys.Page, filters map[string]string, load ListLoader[E]) ([]E, error) {
	k := keys.List(b.desc.EntityType, page, filters)
	if v, ok := b.lists.Get(ctx, k); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	b.enqueue(func(ctx context.Context) {
		b.lists.Set(ctx, k, v, frontcache.TierShort)
	})
	return v, nil
}

// FindSearch caches one search query result under its own key.
func (b *Binding[E]) FindSearch(ctx context.Context, query string, page *keys.Page, load ListLoader[E]) ([]E, error) {
	k := keys.Search(b.desc.EntityType, query, page)
	if v, ok := b.lists.Get(ctx, k); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	b.enqueue(func(ctx context.Context) {
		b.lists.Set(ctx, k, v, frontcache.TierShort)
	})
	return v, nil
}

// FindCount caches an aggregate count.
func (b *Binding[E]) FindCount(ctx context.Context, filters map[string]string, load CountLoader) (int64, error) {
	k := keys.Count(b.desc.EntityType, filters)
	if v, ok := b.counts.Get(ctx, k); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return 0, err
	}
	b.enqueue(func(ctx context.Context) {
		b.counts.Set(ctx, k, v, frontcache.TierShort)
	})
	return v, nil
}

// OnCreated must be called after a create committed to the store of
// record. Any list's membership may have changed; field keys for the new
// values are cleared in case an earlier entity was cached under them.
func (b *Binding[E]) OnCreated(ctx context.Context, e E) {
	b.single.Delete(ctx, keys.ByID(b.desc.EntityType, b.desc.ID(e)))
	for f, v := range b.fieldsOf(e) {
		b.single.Delete(ctx, keys.ByField(b.desc.EntityType, f, v))
	}
	b.invalidateCollections(ctx)
}

// OnUpdated must be called after an update committed to the store of
// record, with the entity as it was before and after. For every secondary
// field whose value changed (including first-time set and unset), both the
// old and the new value's keys are removed - invalidating only the new
// side would leave a stale entry reachable via the old value.
func (b *Binding[E]) OnUpdated(ctx context.Context, old, updated E) {
	b.single.Delete(ctx, keys.ByID(b.desc.EntityType, b.desc.ID(updated)))

	oldFields := b.fieldsOf(old)
	newFields := b.fieldsOf(updated)
	for f, ov := range oldFields {
		nv, stillSet := newFields[f]
		if !stillSet || nv != ov {
			b.single.Delete(ctx, keys.ByField(b.desc.EntityType, f, ov))
		}
	}
	for f, nv := range newFields {
		ov, wasSet := oldFields[f]
		if !wasSet || ov != nv {
			b.single.Delete(ctx, keys.ByField(b.desc.EntityType, f, nv))
		}
	}

	b.invalidateCollections(ctx)
}

// OnDeleted must be called after a delete committed to the store of record.
func (b *Binding[E]) OnDeleted(ctx context.Context, e E) {
	b.single.Delete(ctx, keys.ByID(b.desc.EntityType, b.desc.ID(e)))
	for f, v := range b.fieldsOf(e) {
		b.single.Delete(ctx, keys.ByField(b.desc.EntityType, f, v))
	}
	b.invalidateCollections(ctx)
}

func (b *Binding[E]) loadAndPopulate(ctx context.Context, load Loader[E]) (E, bool, error) {
	var zero E
	v, found, err := load(ctx)
	if err != nil || !found {
		return zero, false, err
	}
	e := v
	b.enqueue(func(ctx context.Context) {
		b.single.Set(ctx, keys.ByID(b.desc.EntityType, b.desc.ID(e)), e, frontcache.TierMedium)
		for f, val := range b.fieldsOf(e) {
			b.single.Set(ctx, keys.ByField(b.desc.EntityType, f, val), e, frontcache.TierMedium)
		}
	})
	return v, true, nil
}

// invalidateCollections drops every list/search/count variant for the
// type. Any mutation can change membership or ordering of any list, so no
// attempt is made to pick out affected variants: over-invalidation is cheap
// and safe, under-invalidation shows users stale data.
func (b *Binding[E]) invalidateCollections(ctx context.Context) {
	b.lists.DeletePattern(ctx, keys.ListPattern(b.desc.EntityType))
	b.lists.DeletePattern(ctx, keys.SearchPattern(b.desc.EntityType))
	b.counts.DeletePattern(ctx, keys.CountPattern(b.desc.EntityType))
}

func (b *Binding[E]) fieldsOf(e E) map[string]string {
	if b.desc.Fields == nil {
		return nil
	}
	return b.desc.Fields(e)
}

func (b *Binding[E]) enqueue(f func(context.Context)) {
	select {
	case b.pop <- f:
	default: // queue full; population is best-effort
	}
}
