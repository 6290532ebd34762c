// Package resolver implements the quote-acquisition fallback chain: an
// ordered list of providers tried with a per-attempt timeout, returning the
// first structurally valid result, degrading to synthetic data when every
// live source fails. Resolution never surfaces an error to the caller.
package resolver

import (
	"context"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"stockdash/internal/provider"
	"stockdash/internal/quote"
	"stockdash/internal/synthetic"
)

// DefaultAttemptTimeout bounds a single provider attempt. Each attempt gets
// its own budget; it is not shared across the chain.
const DefaultAttemptTimeout = 10 * time.Second

// IndexSymbol maps tracked index display names to their quote symbols.
var IndexSymbol = map[string]string{
	"S&P 500":      "^GSPC",
	"NASDAQ":       "^IXIC",
	"Dow Jones":    "^DJI",
	"Russell 2000": "^RUT",
}

// Resolver tries providers in their configured order. It holds no mutable
// state between calls and may be used concurrently.
type Resolver struct {
	providers      []provider.Provider
	synth          *synthetic.Generator
	attemptTimeout time.Duration
	logf           func(format string, args ...any)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAttemptTimeout overrides the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.attemptTimeout = d
		}
	}
}

// WithSynthetic overrides the fallback generator, e.g. with a seeded one.
func WithSynthetic(g *synthetic.Generator) Option {
	return func(r *Resolver) {
		if g != nil {
			r.synth = g
		}
	}
}

// WithLogger overrides the attempt-failure logger. nil silences it.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(r *Resolver) { r.logf = logf }
}

// New builds a resolver over providers, tried in the given order.
func New(providers []provider.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		providers:      providers,
		synth:          synthetic.New(),
		attemptTimeout: DefaultAttemptTimeout,
		logf:           log.Printf,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveQuote returns the first structurally valid live quote, or a
// synthetic one when the chain is exhausted. It never fails.
func (r *Resolver) ResolveQuote(ctx context.Context, symbol string) quote.Quote {
	symbol = quote.NormalizeSymbol(symbol)
	for _, p := range r.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		q, err := p.Quote(attemptCtx, symbol)
		cancel()
		if err != nil {
			r.fail("quote", symbol, p.Name(), err)
			continue
		}
		if !validPrice(q.Price) {
			r.fail("quote", symbol, p.Name(), provider.ErrMalformed)
			continue
		}
		return normalize(q, symbol)
	}
	return r.synth.Quote(symbol)
}

// ResolveMultiple fans out one resolution per symbol and awaits all.
// A failing symbol degrades to synthetic on its own; it never aborts the
// rest of the batch.
func (r *Resolver) ResolveMultiple(ctx context.Context, symbols []string) []quote.Quote {
	out := make([]quote.Quote, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range symbols {
		g.Go(func() error {
			out[i] = r.ResolveQuote(gctx, s)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ResolveHistory returns a historical series for the named window, live when
// a provider can serve it and synthetic otherwise. The series is strictly
// ascending by day regardless of provider response order.
func (r *Resolver) ResolveHistory(ctx context.Context, symbol string, rng quote.Range) quote.Series {
	symbol = quote.NormalizeSymbol(symbol)
	for _, p := range r.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		s, err := p.History(attemptCtx, symbol, rng)
		cancel()
		if err != nil {
			r.fail("history", symbol, p.Name(), err)
			continue
		}
		if len(s) == 0 {
			r.fail("history", symbol, p.Name(), provider.ErrMalformed)
			continue
		}
		s.Sort()
		for i := range s {
			s[i].Price = quote.Round2(s[i].Price)
		}
		return s
	}
	return r.synth.History(symbol, rng)
}

// ResolveIndices resolves the tracked market indices with per-index
// isolation; an unreachable index degrades to synthetic alone.
func (r *Resolver) ResolveIndices(ctx context.Context) []quote.Index {
	out := make([]quote.Index, len(synthetic.IndexNames))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range synthetic.IndexNames {
		g.Go(func() error {
			out[i] = r.resolveIndex(gctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Resolver) resolveIndex(ctx context.Context, name string) quote.Index {
	symbol := IndexSymbol[name]
	for _, p := range r.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		q, err := p.Quote(attemptCtx, symbol)
		cancel()
		if err != nil {
			r.fail("index", symbol, p.Name(), err)
			continue
		}
		if !validPrice(q.Price) {
			r.fail("index", symbol, p.Name(), provider.ErrMalformed)
			continue
		}
		q = normalize(q, symbol)
		return quote.Index{Name: name, Value: q.Price, Change: q.Change, ChangePercent: q.ChangePercent}
	}
	return r.synth.Index(name)
}

func (r *Resolver) fail(op, symbol, name string, err error) {
	if r.logf != nil {
		r.logf("%s %s: %s: %v", op, symbol, name, err)
	}
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// normalize fills derivable fields and applies final rounding. Live data is
// otherwise trusted as-is; high/low bounds are not validated here.
func normalize(q quote.Quote, symbol string) quote.Quote {
	q.Symbol = symbol
	if q.PreviousClose > 0 {
		if q.Change == 0 && q.Price != q.PreviousClose {
			q.Change = q.Price - q.PreviousClose
		}
		if q.ChangePercent == 0 && q.Change != 0 {
			q.ChangePercent = q.Change / q.PreviousClose * 100
		}
	}
	if q.Volume < 0 {
		q.Volume = 0
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = quote.Today()
	}
	return q.Rounded()
}
