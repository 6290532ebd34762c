// Package yahoo fetches quotes and historical series from the Yahoo Finance
// chart endpoint. It needs no credentials but wants a browser-like
// User-Agent to avoid being rejected.
package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"stockdash/internal/httpx"
	"stockdash/internal/provider"
	"stockdash/internal/quote"
)

type Config struct {
	Name      string
	BaseURL   string
	UserAgent string
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Yahoo"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	resp, err := p.chart(ctx, symbol, quote.Range1D)
	if err != nil {
		return quote.Quote{}, err
	}
	res := resp.result()
	if res == nil || res.Meta.RegularMarketPrice == nil {
		return quote.Quote{}, fmt.Errorf("yahoo: %s: missing price: %w", symbol, provider.ErrMalformed)
	}

	price := *res.Meta.RegularMarketPrice
	prev := res.Meta.ChartPreviousClose
	if res.Meta.PreviousClose > 0 {
		prev = res.Meta.PreviousClose
	}
	q := quote.Quote{
		Symbol:        symbol,
		Price:         price,
		Open:          res.open(),
		High:          res.Meta.RegularMarketDayHigh,
		Low:           res.Meta.RegularMarketDayLow,
		PreviousClose: prev,
		Volume:        res.Meta.RegularMarketVolume,
		Timestamp:     quote.Today(),
	}
	if prev > 0 {
		q.Change = price - prev
		q.ChangePercent = q.Change / prev * 100
	}
	return q, nil
}

func (p *Provider) History(ctx context.Context, symbol string, rng quote.Range) (quote.Series, error) {
	resp, err := p.chart(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}
	res := resp.result()
	if res == nil || len(res.Timestamp) == 0 || len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: %s: empty series: %w", symbol, provider.ErrMalformed)
	}
	bars := res.Indicators.Quote[0]
	out := make(quote.Series, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(bars.Close) || bars.Close[i] == nil {
			continue // market holiday / null bar
		}
		pt := quote.Point{
			Timestamp: quote.DayOf(epoch(ts)),
			Price:     *bars.Close[i],
		}
		if i < len(bars.Volume) && bars.Volume[i] != nil {
			pt.Volume = *bars.Volume[i]
		}
		out = append(out, pt)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("yahoo: %s: all bars null: %w", symbol, provider.ErrMalformed)
	}
	return out, nil
}

func (p *Provider) chart(ctx context.Context, symbol string, rng quote.Range) (*chartResponse, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d", p.cfg.BaseURL, url.PathEscape(symbol), rng)
	var resp chartResponse
	if err := p.client.GetJSON(ctx, u, map[string]string{"User-Agent": p.cfg.UserAgent}, &resp); err != nil {
		return nil, fmt.Errorf("yahoo: %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: %s: api error: %v", symbol, resp.Chart.Error)
	}
	return &resp, nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  any           `json:"error"`
	} `json:"chart"`
}

func (r *chartResponse) result() *chartResult {
	if len(r.Chart.Result) == 0 {
		return nil
	}
	return &r.Chart.Result[0]
}

type chartResult struct {
	Meta struct {
		Symbol              string   `json:"symbol"`
		RegularMarketPrice  *float64 `json:"regularMarketPrice"`
		ChartPreviousClose  float64  `json:"chartPreviousClose"`
		PreviousClose       float64  `json:"previousClose"`
		RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
		RegularMarketVolume  int64   `json:"regularMarketVolume"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// open prefers today's bar open over nothing; the chart meta has no open.
func (r *chartResult) open() float64 {
	if len(r.Indicators.Quote) == 0 {
		return 0
	}
	for _, o := range r.Indicators.Quote[0].Open {
		if o != nil {
			return *o
		}
	}
	return 0
}

func epoch(sec int64) time.Time { return time.Unix(sec, 0).UTC() }
