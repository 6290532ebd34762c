package main

import (
	"compress/gzip"
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"stockdash/internal/analysis"
	"stockdash/internal/config"
	"stockdash/internal/httpx"
	"stockdash/internal/provider"
	"stockdash/internal/provider/alphavantage"
	"stockdash/internal/provider/cache"
	"stockdash/internal/provider/finnhub"
	"stockdash/internal/provider/ratelimit"
	"stockdash/internal/provider/yahoo"
	"stockdash/internal/resolver"
	"stockdash/internal/store"
)

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.Finnhub.Enabled && cfg.Finnhub.APIKey == "" {
		log.Println("warning: finnhub.enabled=true but FINNHUB_API_KEY not set; provider will be skipped in the chain")
	}
	if cfg.AlphaVantage.Enabled && cfg.AlphaVantage.APIKey == "" {
		log.Println("warning: alphavantage.enabled=true but ALPHAVANTAGE_API_KEY not set; provider will be skipped in the chain")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	res := resolver.New(buildProviders(cfg, httpClient),
		resolver.WithAttemptTimeout(time.Duration(cfg.Resolver.AttemptTimeoutSec)*time.Second))

	analyzer := analysis.New(analysis.Config{
		APIKey:    cfg.Analysis.APIKey,
		BaseURL:   cfg.Analysis.Endpoint,
		Model:     cfg.Analysis.Model,
		MaxTokens: cfg.Analysis.MaxTokens,
	})

	st, err := store.Load(cfg.Store.Path)
	if err != nil {
		log.Printf("store: %v (starting with defaults)", err)
	}

	a := &api{res: res, analyzer: analyzer, store: st}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/quote", a.handleQuote)
	mux.HandleFunc("/api/quotes", a.handleQuotes)
	mux.HandleFunc("/api/history", a.handleHistory)
	mux.HandleFunc("/api/indices", a.handleIndices)
	mux.HandleFunc("/api/analysis", a.handleAnalysis)
	mux.HandleFunc("/api/watchlist", a.handleWatchlist)
	mux.HandleFunc("/api/portfolio", a.handlePortfolio)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := st.Save(cfg.Store.Path); err != nil {
		log.Printf("store save: %v", err)
	}
}

// buildProviders assembles the resolver chain in configured order, wrapping
// each provider with its rate limit and cache where configured.
func buildProviders(cfg config.Config, httpClient *httpx.Client) []provider.Provider {
	providers := make([]provider.Provider, 0, len(cfg.Resolver.Order))
	for _, name := range cfg.Resolver.Order {
		switch strings.ToLower(name) {
		case "yahoo":
			if !cfg.Yahoo.Enabled {
				continue
			}
			var p provider.Provider = yahoo.New(yahoo.Config{
				BaseURL:   cfg.Yahoo.Endpoint,
				UserAgent: cfg.Yahoo.UserAgent,
			}, httpClient)
			if cfg.Yahoo.CacheTTLSeconds > 0 {
				p = &cache.Provider{P: p, TTL: time.Duration(cfg.Yahoo.CacheTTLSeconds) * time.Second, MaxItems: cfg.Yahoo.CacheMaxItems}
			}
			providers = append(providers, p)
		case "finnhub":
			if !cfg.Finnhub.Enabled {
				continue
			}
			var p provider.Provider = finnhub.New(finnhub.Config{
				BaseURL: cfg.Finnhub.Endpoint,
				APIKey:  cfg.Finnhub.APIKey,
			})
			p = limit(p, cfg.Finnhub.MaxRequestsPerMinute, cfg.Finnhub.Burst)
			if cfg.Finnhub.CacheTTLSeconds > 0 {
				p = &cache.Provider{P: p, TTL: time.Duration(cfg.Finnhub.CacheTTLSeconds) * time.Second, MaxItems: cfg.Finnhub.CacheMaxItems}
			}
			providers = append(providers, p)
		case "alphavantage":
			if !cfg.AlphaVantage.Enabled {
				continue
			}
			var p provider.Provider = alphavantage.New(cfg.AlphaVantage.APIKey,
				alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint),
				alphavantage.WithHTTPClient(httpClient.HTTP))
			p = limit(p, cfg.AlphaVantage.MaxRequestsPerMinute, cfg.AlphaVantage.Burst)
			if cfg.AlphaVantage.CacheTTLSeconds > 0 {
				p = &cache.Provider{P: p, TTL: time.Duration(cfg.AlphaVantage.CacheTTLSeconds) * time.Second, MaxItems: cfg.AlphaVantage.CacheMaxItems}
			}
			providers = append(providers, p)
		default:
			log.Printf("warning: unknown provider %q in resolver order; skipping", name)
		}
	}
	return providers
}

// limit picks the gate that fits the quota: a strict minimum interval for
// burst-less tiers, a token bucket otherwise.
func limit(p provider.Provider, rpm, burst int) provider.Provider {
	if rpm <= 0 {
		return p
	}
	if burst <= 1 {
		return &ratelimit.MinInterval{P: p, Interval: time.Minute / time.Duration(rpm)}
	}
	return &ratelimit.Provider{P: p, TB: ratelimit.NewTokenBucket(float64(rpm)/60.0, burst)}
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for the browser dashboard; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses responses when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
