// Package alphavantage fetches quotes and daily series from Alpha Vantage.
// The API authenticates with a key passed as a query parameter and returns
// every numeric field as a string, percentages with a trailing "%".
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"stockdash/internal/provider"
	"stockdash/internal/quote"
)

const defaultBaseURL = "https://www.alphavantage.co"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=alphavantage.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Provider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

// Option is a configuration option for the provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(p *Provider) { p.httpClient = httpClient }
}

// WithName overrides the provider name reported in logs.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

func New(apiKey string, options ...Option) *Provider {
	p := &Provider{
		name:       "AlphaVantage",
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *Provider) Name() string { return p.name }

// globalQuote carries the GLOBAL_QUOTE payload with its numbered keys.
type globalQuote struct {
	Symbol        string `json:"01. symbol"`
	Open          string `json:"02. open"`
	High          string `json:"03. high"`
	Low           string `json:"04. low"`
	Price         string `json:"05. price"`
	Volume        string `json:"06. volume"`
	TradingDay    string `json:"07. latest trading day"`
	PreviousClose string `json:"08. previous close"`
	Change        string `json:"09. change"`
	ChangePercent string `json:"10. change percent"`
}

func (p *Provider) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	if p.apiKey == "" {
		return quote.Quote{}, fmt.Errorf("alphavantage: %w", provider.ErrNotConfigured)
	}
	var body struct {
		GlobalQuote globalQuote `json:"Global Quote"`
		Note        string      `json:"Note"`
	}
	if err := p.get(ctx, "GLOBAL_QUOTE", symbol, &body); err != nil {
		return quote.Quote{}, err
	}
	gq := body.GlobalQuote
	if gq.Price == "" {
		// Empty object: unknown symbol or the free-tier rate-limit note.
		return quote.Quote{}, fmt.Errorf("alphavantage: %s: missing price: %w", symbol, provider.ErrMalformed)
	}

	price, err := parseNumber(gq.Price)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("alphavantage: %s: price: %w", symbol, provider.ErrMalformed)
	}
	q := quote.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        softNumber(gq.Change),
		ChangePercent: softNumber(gq.ChangePercent),
		Open:          softNumber(gq.Open),
		High:          softNumber(gq.High),
		Low:           softNumber(gq.Low),
		PreviousClose: softNumber(gq.PreviousClose),
		Volume:        int64(softNumber(gq.Volume)),
		Timestamp:     quote.Today(),
	}
	var day quote.Day
	if err := day.UnmarshalJSON([]byte(`"` + gq.TradingDay + `"`)); err == nil && !day.IsZero() {
		q.Timestamp = day
	}
	return q, nil
}

func (p *Provider) History(ctx context.Context, symbol string, rng quote.Range) (quote.Series, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("alphavantage: %w", provider.ErrNotConfigured)
	}
	var body struct {
		Series map[string]struct {
			Close  string `json:"4. close"`
			Volume string `json:"5. volume"`
		} `json:"Time Series (Daily)"`
	}
	if err := p.get(ctx, "TIME_SERIES_DAILY", symbol, &body); err != nil {
		return nil, err
	}
	if len(body.Series) == 0 {
		return nil, fmt.Errorf("alphavantage: %s: empty series: %w", symbol, provider.ErrMalformed)
	}

	cutoff := quote.Today().AddDate(0, 0, -rng.Days())
	out := make(quote.Series, 0, rng.Points())
	for date, bar := range body.Series {
		var day quote.Day
		if err := day.UnmarshalJSON([]byte(`"` + date + `"`)); err != nil {
			continue
		}
		if day.Before(cutoff) {
			continue
		}
		price, err := parseNumber(bar.Close)
		if err != nil {
			continue
		}
		out = append(out, quote.Point{
			Timestamp: day,
			Price:     price,
			Volume:    int64(softNumber(bar.Volume)),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("alphavantage: %s: no points in window: %w", symbol, provider.ErrMalformed)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp.Time) })
	return out, nil
}

func (p *Provider) get(ctx context.Context, function, symbol string, v any) error {
	q := url.Values{}
	q.Set("function", function)
	q.Set("symbol", symbol)
	q.Set("apikey", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/query?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("alphavantage: %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alphavantage: %s: status %d", symbol, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("alphavantage: %s: decode: %w", symbol, err)
	}
	return nil
}

// parseNumber reads an Alpha Vantage numeric string, tolerating a trailing
// percent sign ("1.2345%" and "1.2345" both parse to 1.2345).
func parseNumber(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	return strconv.ParseFloat(s, 64)
}

func softNumber(s string) float64 {
	v, err := parseNumber(s)
	if err != nil {
		return 0
	}
	return v
}
