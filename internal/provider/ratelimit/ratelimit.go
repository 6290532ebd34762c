// Package ratelimit gates a provider behind free-tier request quotas.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"stockdash/internal/provider"
	"stockdash/internal/quote"
)

// Provider wraps an upstream provider and gates every call through a token
// bucket. A timed-out wait counts as a transport failure; the resolver just
// advances to the next provider in the chain.
type Provider struct {
	P  provider.Provider
	TB *TokenBucket
}

func (t *Provider) Name() string { return t.P.Name() }

func (t *Provider) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	if t.TB != nil {
		if err := t.TB.wait(ctx); err != nil {
			return quote.Quote{}, err
		}
	}
	return t.P.Quote(ctx, symbol)
}

func (t *Provider) History(ctx context.Context, symbol string, rng quote.Range) (quote.Series, error) {
	if t.TB != nil {
		if err := t.TB.wait(ctx); err != nil {
			return nil, err
		}
	}
	return t.P.History(ctx, symbol, rng)
}

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent calls wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	if err := m.gate(ctx); err != nil {
		return quote.Quote{}, err
	}
	q, err := m.P.Quote(ctx, symbol)
	m.stamp()
	return q, err
}

func (m *MinInterval) History(ctx context.Context, symbol string, rng quote.Range) (quote.Series, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	s, err := m.P.History(ctx, symbol, rng)
	m.stamp()
	return s, err
}

func (m *MinInterval) gate(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	wait := time.Until(m.last.Add(m.Interval))
	m.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MinInterval) stamp() {
	if m.Interval <= 0 {
		return
	}
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
}
