// Command fetch resolves quotes from the command line and prints JSON.
// Useful for smoke-testing the provider chain without running the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"stockdash/internal/config"
	"stockdash/internal/httpx"
	"stockdash/internal/provider"
	"stockdash/internal/provider/alphavantage"
	"stockdash/internal/provider/finnhub"
	"stockdash/internal/provider/ratelimit"
	"stockdash/internal/provider/yahoo"
	"stockdash/internal/quote"
	"stockdash/internal/resolver"
)

func main() {
	var symbolsCSV string
	var rangeName string
	var withHistory bool
	var withIndices bool
	var timeout int
	var configPath string

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "AAPL"), "comma-separated instrument symbols")
	flag.StringVar(&rangeName, "range", "1mo", "history range: 1d, 5d, 1mo, 3mo, 6mo, 1y")
	flag.BoolVar(&withHistory, "history", false, "also fetch the historical series per symbol")
	flag.BoolVar(&withIndices, "indices", false, "also fetch the tracked market indices")
	flag.IntVar(&timeout, "timeout", 0, "per-attempt timeout seconds (overrides config)")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeout > 0 {
		cfg.Resolver.AttemptTimeoutSec = timeout
	}
	rng, err := quote.ParseRange(rangeName)
	if err != nil {
		log.Fatalf("range: %v", err)
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	res := resolver.New(buildProviders(cfg, httpClient),
		resolver.WithAttemptTimeout(time.Duration(cfg.Resolver.AttemptTimeoutSec)*time.Second))

	ctx := context.Background()
	out := struct {
		Quotes  []quote.Quote           `json:"quotes"`
		History map[string]quote.Series `json:"history,omitempty"`
		Indices []quote.Index           `json:"indices,omitempty"`
	}{}

	symbols := splitCSV(symbolsCSV)
	out.Quotes = res.ResolveMultiple(ctx, symbols)
	if withHistory {
		out.History = make(map[string]quote.Series, len(symbols))
		for _, s := range symbols {
			out.History[quote.NormalizeSymbol(s)] = res.ResolveHistory(ctx, s, rng)
		}
	}
	if withIndices {
		out.Indices = res.ResolveIndices(ctx)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

// buildProviders mirrors the server wiring: configured order, rate limits
// and caches applied per provider.
func buildProviders(cfg config.Config, httpClient *httpx.Client) []provider.Provider {
	providers := make([]provider.Provider, 0, len(cfg.Resolver.Order))
	for _, name := range cfg.Resolver.Order {
		switch strings.ToLower(name) {
		case "yahoo":
			if !cfg.Yahoo.Enabled {
				continue
			}
			providers = append(providers, yahoo.New(yahoo.Config{
				BaseURL:   cfg.Yahoo.Endpoint,
				UserAgent: cfg.Yahoo.UserAgent,
			}, httpClient))
		case "finnhub":
			if !cfg.Finnhub.Enabled {
				continue
			}
			var p provider.Provider = finnhub.New(finnhub.Config{
				BaseURL: cfg.Finnhub.Endpoint,
				APIKey:  cfg.Finnhub.APIKey,
			})
			p = limit(p, cfg.Finnhub.MaxRequestsPerMinute, cfg.Finnhub.Burst)
			providers = append(providers, p)
		case "alphavantage":
			if !cfg.AlphaVantage.Enabled {
				continue
			}
			var p provider.Provider = alphavantage.New(cfg.AlphaVantage.APIKey,
				alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint),
				alphavantage.WithHTTPClient(httpClient.HTTP))
			p = limit(p, cfg.AlphaVantage.MaxRequestsPerMinute, cfg.AlphaVantage.Burst)
			providers = append(providers, p)
		default:
			log.Printf("warning: unknown provider %q in resolver order; skipping", name)
		}
	}
	return providers
}

// limit picks the gate matching the quota shape, as cmd/server does.
func limit(p provider.Provider, rpm, burst int) provider.Provider {
	if rpm <= 0 {
		return p
	}
	if burst <= 1 {
		return &ratelimit.MinInterval{P: p, Interval: time.Minute / time.Duration(rpm)}
	}
	return &ratelimit.Provider{P: p, TB: ratelimit.NewTokenBucket(float64(rpm)/60.0, burst)}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
