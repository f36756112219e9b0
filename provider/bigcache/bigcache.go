// Package bigcache adapts allegro/bigcache to the frontcache provider
// contract. BigCache has no per-entry TTL; the global LifeWindow acts as a
// single expiry class, so TTL tiers collapse to LifeWindow when this
// provider is used.
package bigcache

import (
	"context"
	"errors"
	"path"
	"time"

	bc "github.com/allegro/bigcache/v3"

	pr "github.com/unkn0wn-root/frontcache/provider"
)

type Provider struct {
	c *bc.BigCache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	return true, p.c.Set(key, value)
}

func (p *Provider) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		err := p.c.Delete(k)
		if errors.Is(err, bc.ErrEntryNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Keys walks the entry iterator and glob-matches each key. BigCache exposes
// no index, so this is a full scan; acceptable for bulk invalidation.
func (p *Provider) Keys(_ context.Context, pattern string) ([]string, error) {
	var out []string
	it := p.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			return nil, err
		}
		ok, err := path.Match(pattern, info.Key())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, info.Key())
		}
	}
	return out, nil
}

func (p *Provider) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Get(ctx, key)
	return ok, err
}

func (p *Provider) Ping(context.Context) error { return nil }

func (p *Provider) Close(context.Context) error {
	return p.c.Close()
}
