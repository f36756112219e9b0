package frontcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	cd "github.com/unkn0wn-root/frontcache/codec"
	"github.com/unkn0wn-root/frontcache/internal/wire"
	pr "github.com/unkn0wn-root/frontcache/provider"
)

type cache[V any] struct {
	ns       string
	provider pr.Provider
	codec    cd.Codec[V]
	log      Logger
	events   Events
	enabled  bool

	ttl       [3]time.Duration // indexed by TTLTier
	opTimeout time.Duration

	// breaker implements the degradation lifecycle: closed=live,
	// open=degraded (ops short-circuit), half-open=reconnect probe.
	breaker *gobreaker.CircuitBreaker
	up      atomic.Bool // last backend interaction succeeded

	probeEvery   time.Duration
	probeBackoff time.Duration

	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once

	keepProvider bool
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	enabled := opts.Provider != nil && !opts.Disabled
	if enabled && opts.Namespace == "" {
		return nil, fmt.Errorf("frontcache: namespace is required")
	}

	c := &cache[V]{
		ns:           opts.Namespace,
		provider:     opts.Provider,
		enabled:      enabled,
		keepProvider: opts.KeepProviderOpen,
	}

	if opts.Codec != nil {
		c.codec = opts.Codec
	} else {
		c.codec = cd.JSON[V]{}
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.events = coalesce[Events](opts.Events, NopEvents{})
	c.ttl[TierShort] = coalesce(opts.ShortTTL, defaultShortTTL)
	c.ttl[TierMedium] = coalesce(opts.MediumTTL, defaultMediumTTL)
	c.ttl[TierLong] = coalesce(opts.LongTTL, defaultLongTTL)
	c.opTimeout = coalesce(opts.OpTimeout, defaultOpTimeout)
	c.probeEvery = coalesce(opts.ProbeInterval, defaultProbeEvery)
	c.probeBackoff = coalesce(opts.MaxProbeBackoff, defaultProbeBackoff)

	if !c.enabled {
		c.log.Info("cache disabled (no backend configured)", Fields{"namespace": c.ns})
		return c, nil
	}

	trip := coalesce(opts.TripAfter, uint32(defaultTripAfter))
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "frontcache:" + c.ns,
		MaxRequests: 1,
		Timeout:     coalesce(opts.OpenFor, defaultOpenFor),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		OnStateChange: c.onStateChange,
		IsSuccessful: func(err error) bool {
			// a backend that cannot enumerate keys is limited, not down
			return err == nil || errors.Is(err, pr.ErrEnumerationUnsupported)
		},
	})

	c.stopCh = make(chan struct{})
	c.closeWg.Add(1)
	go c.watchLoop()
	return c, nil
}

func (c *cache[V]) Enabled() bool     { return c.enabled }
func (c *cache[V]) Namespace() string { return c.ns }
func (c *cache[V]) Ready() bool       { return c.state() == StateConnected }
func (c *cache[V]) Status() Status    { return Status{State: c.state(), Namespace: c.ns} }

func (c *cache[V]) state() State {
	if !c.enabled {
		return StateDisabled
	}
	switch c.breaker.State() {
	case gobreaker.StateOpen:
		return StateDegraded
	case gobreaker.StateHalfOpen:
		return StateConnecting
	default:
		if c.up.Load() {
			return StateConnected
		}
		return StateConnecting
	}
}

func (c *cache[V]) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		if c.stopCh != nil {
			close(c.stopCh)
			c.closeWg.Wait()
		}
	})
	if c.provider != nil && !c.keepProvider {
		return c.provider.Close(ctx)
	}
	return nil
}

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	if !c.enabled {
		return zero, false
	}
	k := c.storageKey(key)

	var (
		raw []byte
		ok  bool
	)
	err := c.exec(ctx, "get", key, func(ctx context.Context) error {
		var err error
		raw, ok, err = c.provider.Get(ctx, k)
		return err
	})
	if err != nil || !ok {
		c.events.Miss(c.ns, key)
		return zero, false
	}

	_, payload, err := wire.DecodeValue(raw)
	if err != nil {
		c.selfHeal(ctx, key, k, "corrupt")
		return zero, false
	}
	v, err := c.codec.Decode(payload)
	if err != nil {
		c.selfHeal(ctx, key, k, "value_decode")
		return zero, false
	}

	c.events.Hit(c.ns, key)
	return v, true
}

func (c *cache[V]) Set(ctx context.Context, key string, value V, tier TTLTier) bool {
	if !c.enabled {
		return false
	}
	payload, err := c.codec.Encode(value)
	if err != nil {
		c.log.Error("value encode failed; skipping cache write", Fields{"key": key, "err": err.Error()})
		c.events.SetRejected(c.ns, key)
		return false
	}
	framed := wire.EncodeValue(byte(tier), payload)
	k := c.storageKey(key)

	var ok bool
	err = c.exec(ctx, "set", key, func(ctx context.Context) error {
		var err error
		ok, err = c.provider.Set(ctx, k, framed, c.ttlFor(tier))
		return err
	})
	if err != nil || !ok {
		c.events.SetRejected(c.ns, key)
		return false
	}
	c.log.Debug("cached", Fields{"key": key, "tier": tier.String()})
	return true
}

func (c *cache[V]) Delete(ctx context.Context, key string) bool {
	if !c.enabled {
		return false
	}
	k := c.storageKey(key)

	var n int64
	err := c.exec(ctx, "delete", key, func(ctx context.Context) error {
		var err error
		n, err = c.provider.Del(ctx, k)
		return err
	})
	if err != nil {
		return false
	}
	c.events.Invalidate(c.ns, key, n)
	c.log.Debug("invalidated", Fields{"key": key, "removed": n})
	return n > 0
}

func (c *cache[V]) DeletePattern(ctx context.Context, pattern string) int64 {
	if !c.enabled {
		return 0
	}
	n := c.deleteByGlob(ctx, c.storageKey(pattern), pattern)
	c.events.PatternInvalidate(c.ns, pattern, n)
	return n
}

func (c *cache[V]) Exists(ctx context.Context, key string) bool {
	if !c.enabled {
		return false
	}
	k := c.storageKey(key)

	var ok bool
	err := c.exec(ctx, "exists", key, func(ctx context.Context) error {
		var err error
		ok, err = c.provider.Exists(ctx, k)
		return err
	})
	return err == nil && ok
}

func (c *cache[V]) Flush(ctx context.Context) int64 {
	if !c.enabled {
		return 0
	}
	c.log.Warn("flushing namespace", Fields{"namespace": c.ns})
	n := c.deleteByGlob(ctx, c.ns+":*", "*")
	c.events.PatternInvalidate(c.ns, "*", n)
	return n
}

// deleteByGlob enumerates then deletes. Zero matches and an unreachable
// backend both report 0: callers treat them identically, only the logs
// differ.
func (c *cache[V]) deleteByGlob(ctx context.Context, storageGlob, pattern string) int64 {
	var matched []string
	err := c.exec(ctx, "keys", pattern, func(ctx context.Context) error {
		var err error
		matched, err = c.provider.Keys(ctx, storageGlob)
		return err
	})
	if errors.Is(err, pr.ErrEnumerationUnsupported) {
		c.log.Warn("backend cannot enumerate keys; pattern invalidation skipped", Fields{"pattern": pattern})
		return 0
	}
	if err != nil {
		return 0
	}
	if len(matched) == 0 {
		c.log.Debug("pattern matched no keys", Fields{"pattern": pattern})
		return 0
	}

	var n int64
	err = c.exec(ctx, "delete_pattern", pattern, func(ctx context.Context) error {
		var err error
		n, err = c.provider.Del(ctx, matched...)
		return err
	})
	if err != nil {
		return 0
	}
	c.log.Debug("pattern invalidated", Fields{"pattern": pattern, "removed": n})
	return n
}

// exec routes one backend call through the breaker with a bounded timeout.
// Timeouts count as failures like any other backend error.
func (c *cache[V]) exec(ctx context.Context, op, key string, fn func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, fn(opCtx)
	})
	if err == nil || errors.Is(err, pr.ErrEnumerationUnsupported) {
		c.up.Store(true)
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.log.Debug("cache degraded; operation skipped", Fields{"op": op, "key": key})
		return err
	}
	opErr := &OpError{Op: op, Key: key, Err: err}
	c.log.Warn("cache operation failed; degrading", Fields{"op": op, "key": key, "err": opErr.Error()})
	return opErr
}

// selfHeal drops an entry that failed framing or decoding so the next read
// repopulates from the store of record.
func (c *cache[V]) selfHeal(ctx context.Context, key, storageKey, reason string) {
	_ = c.exec(ctx, "self_heal_del", key, func(ctx context.Context) error {
		_, err := c.provider.Del(ctx, storageKey)
		return err
	})
	c.log.Warn("deleted undecodable cache entry", Fields{"key": key, "reason": reason})
	c.events.SelfHeal(c.ns, key, reason)
	c.events.Miss(c.ns, key)
}

func (c *cache[V]) ttlFor(tier TTLTier) time.Duration {
	if int(tier) < len(c.ttl) {
		return c.ttl[tier]
	}
	return c.ttl[TierMedium]
}

func (c *cache[V]) storageKey(key string) string {
	// isolate by namespace
	return c.ns + ":" + key
}

func (c *cache[V]) onStateChange(_ string, from, to gobreaker.State) {
	switch to {
	case gobreaker.StateOpen:
		c.up.Store(false)
		c.log.Warn("backend unreachable; cache degraded", Fields{"namespace": c.ns})
		c.events.Degraded(c.ns)
	case gobreaker.StateClosed:
		if from == gobreaker.StateHalfOpen {
			c.log.Info("backend reachable again", Fields{"namespace": c.ns})
			c.events.Recovered(c.ns)
		}
	}
}

// watchLoop pings the backend so recovery does not depend on request
// traffic. The probe interval backs off exponentially while the backend
// stays down, capped at probeBackoff, and resets on success.
func (c *cache[V]) watchLoop() {
	defer c.closeWg.Done()

	interval := c.probeEvery
	timer := time.NewTimer(0) // first probe immediately
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if err := c.probe(); err != nil {
				interval = min(interval*2, c.probeBackoff)
			} else {
				interval = c.probeEvery
			}
			timer.Reset(interval)
		case <-c.stopCh:
			return
		}
	}
}

func (c *cache[V]) probe() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.provider.Ping(ctx)
	})
	if err == nil {
		c.up.Store(true)
	}
	return err
}
