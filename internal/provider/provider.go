package provider

import (
	"context"
	"errors"

	"stockdash/internal/quote"
)

// Provider is one upstream quote source in the resolver chain.
// Quote and History return an error for any transport or structural
// failure; the resolver treats both identically and advances the chain.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (quote.Quote, error)
	History(ctx context.Context, symbol string, rng quote.Range) (quote.Series, error)
}

// ErrNotConfigured marks a provider that is missing required credentials.
// The resolver treats it as a permanent failure for that provider only.
var ErrNotConfigured = errors.New("provider not configured")

// ErrMalformed marks a syntactically successful response that lacks the
// fields required to build a quote.
var ErrMalformed = errors.New("malformed provider response")

// ErrNoHistory marks a provider that only serves point quotes.
var ErrNoHistory = errors.New("provider does not serve history")
