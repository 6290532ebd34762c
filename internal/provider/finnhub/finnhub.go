// Package finnhub fetches point quotes from the Finnhub REST API. The free
// tier serves /quote only, so History is not supported.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"stockdash/internal/provider"
	"stockdash/internal/quote"
)

type Config struct {
	Name    string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Provider struct {
	cfg    Config
	client *resty.Client
}

func New(cfg Config) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Finnhub"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://finnhub.io/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "stockdash/1.0")
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return p.cfg.Name }

// quoteBody is the Finnhub /quote payload: current, change, percent change,
// high, low, open, previous close, epoch seconds.
type quoteBody struct {
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Dp float64 `json:"dp"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	Pc float64 `json:"pc"`
	T  int64   `json:"t"`
}

func (p *Provider) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	if p.cfg.APIKey == "" {
		return quote.Quote{}, fmt.Errorf("finnhub: %w", provider.ErrNotConfigured)
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"token":  p.cfg.APIKey,
		}).
		Get("/quote")
	if err != nil {
		return quote.Quote{}, fmt.Errorf("finnhub: %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return quote.Quote{}, fmt.Errorf("finnhub: %s: status %d: %s", symbol, resp.StatusCode(), resp.String())
	}
	var body quoteBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return quote.Quote{}, fmt.Errorf("finnhub: %s: parse: %w", symbol, err)
	}
	// Finnhub answers all zeros for unknown symbols.
	if body.C <= 0 && body.Pc <= 0 {
		return quote.Quote{}, fmt.Errorf("finnhub: %s: zero quote: %w", symbol, provider.ErrMalformed)
	}

	ts := quote.Today()
	if body.T > 0 {
		ts = quote.DayOf(time.Unix(body.T, 0))
	}
	return quote.Quote{
		Symbol:        symbol,
		Price:         body.C,
		Change:        body.D,
		ChangePercent: body.Dp,
		Open:          body.O,
		High:          body.H,
		Low:           body.L,
		PreviousClose: body.Pc,
		Timestamp:     ts,
	}, nil
}

func (p *Provider) History(ctx context.Context, symbol string, rng quote.Range) (quote.Series, error) {
	return nil, fmt.Errorf("finnhub: %w", provider.ErrNoHistory)
}
