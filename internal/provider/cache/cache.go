// Package cache wraps a provider with a per-symbol TTL cache so the free
// upstream tiers are not hammered on every dashboard refresh. Staleness is
// a caller-layer concern; the resolver core does not depend on this wrapper.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"stockdash/internal/provider"
	"stockdash/internal/quote"
)

type quoteEntry struct {
	expiresAt time.Time
	q         quote.Quote
}

type seriesEntry struct {
	expiresAt time.Time
	s         quote.Series
}

// Provider caches quote and history results from the wrapped provider.
type Provider struct {
	P        provider.Provider
	TTL      time.Duration
	MaxItems int

	mu     sync.RWMutex
	quotes map[string]quoteEntry
	series map[string]seriesEntry

	// coalesce concurrent refreshes per key
	sf singleflight.Group
}

func (c *Provider) Name() string { return c.P.Name() }

func (c *Provider) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	if c.TTL <= 0 {
		return c.P.Quote(ctx, symbol)
	}
	now := time.Now()

	c.mu.RLock()
	e, ok := c.quotes[symbol]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.q, nil
	}

	v, err, _ := c.sf.Do("q:"+symbol, func() (any, error) {
		q, err := c.P.Quote(ctx, symbol)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.quotes == nil {
			c.quotes = make(map[string]quoteEntry)
		}
		c.quotes[symbol] = quoteEntry{expiresAt: time.Now().Add(c.TTL), q: q}
		c.evictLocked()
		c.mu.Unlock()
		return q, nil
	})
	if err != nil {
		// Serve the stale entry rather than failing the whole attempt.
		if ok {
			return e.q, nil
		}
		return quote.Quote{}, err
	}
	return v.(quote.Quote), nil
}

func (c *Provider) History(ctx context.Context, symbol string, rng quote.Range) (quote.Series, error) {
	if c.TTL <= 0 {
		return c.P.History(ctx, symbol, rng)
	}
	key := symbol + "|" + string(rng)
	now := time.Now()

	c.mu.RLock()
	e, ok := c.series[key]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.s, nil
	}

	v, err, _ := c.sf.Do("h:"+key, func() (any, error) {
		s, err := c.P.History(ctx, symbol, rng)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.series == nil {
			c.series = make(map[string]seriesEntry)
		}
		c.series[key] = seriesEntry{expiresAt: time.Now().Add(c.TTL), s: s}
		c.evictLocked()
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		if ok {
			return e.s, nil
		}
		return nil, err
	}
	return v.(quote.Series), nil
}

// evictLocked caps cache size best-effort: expired entries first, then
// arbitrary keys. Caller holds the write lock.
func (c *Provider) evictLocked() {
	if c.MaxItems <= 0 {
		return
	}
	now := time.Now()
	for k, e := range c.quotes {
		if len(c.quotes)+len(c.series) <= c.MaxItems {
			return
		}
		if now.After(e.expiresAt) {
			delete(c.quotes, k)
		}
	}
	for k, e := range c.series {
		if len(c.quotes)+len(c.series) <= c.MaxItems {
			return
		}
		if now.After(e.expiresAt) {
			delete(c.series, k)
		}
	}
	for k := range c.quotes {
		if len(c.quotes)+len(c.series) <= c.MaxItems {
			return
		}
		delete(c.quotes, k)
	}
	for k := range c.series {
		if len(c.quotes)+len(c.series) <= c.MaxItems {
			return
		}
		delete(c.series, k)
	}
}
