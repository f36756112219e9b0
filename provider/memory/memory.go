// Package memory implements the frontcache provider contract with a plain
// in-process map. It exists for tests and single-process deployments that
// want cache-aside semantics without an external backend.
package memory

import (
	"context"
	"path"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/frontcache/provider"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero => no TTL
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Provider is a concurrency-safe map store with lazy expiry and an optional
// background sweep. Lazy expiry alone keeps reads correct; the sweep exists
// so keys written once and never read again don't pin memory forever.
type Provider struct {
	mu    sync.RWMutex
	items map[string]entry

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	// SweepInterval enables the background cleanup loop when > 0.
	SweepInterval time.Duration
}

func New(cfg Config) *Provider {
	p := &Provider{items: make(map[string]entry)}
	if cfg.SweepInterval > 0 {
		p.ticker = time.NewTicker(cfg.SweepInterval)
		p.stopCh = make(chan struct{})
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ticker.C:
					p.sweep()
				case <-p.stopCh:
					return
				}
			}
		}()
	}
	return p
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	e, ok := p.items[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		p.mu.Lock()
		delete(p.items, key)
		p.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	p.mu.Lock()
	p.items[key] = entry{value: cp, expiresAt: exp}
	p.mu.Unlock()
	return true, nil
}

func (p *Provider) Del(_ context.Context, keys ...string) (int64, error) {
	now := time.Now()
	var n int64
	p.mu.Lock()
	for _, k := range keys {
		if e, ok := p.items[k]; ok {
			if !e.expired(now) {
				n++
			}
			delete(p.items, k)
		}
	}
	p.mu.Unlock()
	return n, nil
}

// Keys matches live keys against a glob with path.Match semantics, which
// agree with redis globs for the colon-segmented keys frontcache derives.
func (p *Provider) Keys(_ context.Context, pattern string) ([]string, error) {
	now := time.Now()
	var out []string
	p.mu.RLock()
	for k, e := range p.items {
		if e.expired(now) {
			continue
		}
		ok, err := path.Match(pattern, k)
		if err != nil {
			p.mu.RUnlock()
			return nil, err
		}
		if ok {
			out = append(out, k)
		}
	}
	p.mu.RUnlock()
	return out, nil
}

func (p *Provider) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Get(ctx, key)
	return ok, err
}

func (p *Provider) Ping(context.Context) error { return nil }

func (p *Provider) Close(context.Context) error {
	p.once.Do(func() {
		if p.stopCh != nil {
			close(p.stopCh)
			p.ticker.Stop()
			p.wg.Wait()
		}
	})
	return nil
}

// Len reports live (unexpired) entries. Test helper.
func (p *Provider) Len() int {
	now := time.Now()
	n := 0
	p.mu.RLock()
	for _, e := range p.items {
		if !e.expired(now) {
			n++
		}
	}
	p.mu.RUnlock()
	return n
}

func (p *Provider) sweep() {
	now := time.Now()
	p.mu.Lock()
	for k, e := range p.items {
		if e.expired(now) {
			delete(p.items, k)
		}
	}
	p.mu.Unlock()
}
