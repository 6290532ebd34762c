package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"stockdash/internal/analysis"
	"stockdash/internal/quote"
	"stockdash/internal/resolver"
	"stockdash/internal/store"
)

const maxBatchSymbols = 100

// api bundles the handler dependencies. Quote endpoints never report a
// fetch failure; the synthetic fallback inside the resolver masks it.
type api struct {
	res      *resolver.Resolver
	analyzer *analysis.Analyzer
	store    *store.Store
}

type quoteResponse struct {
	Quote quote.Quote `json:"quote"`
}

func (a *api) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	writeJSON(w, quoteResponse{Quote: a.res.ResolveQuote(ctx, symbol)})
}

type quotesResponse struct {
	Quotes []quote.Quote `json:"quotes"`
}

type quotesRequest struct {
	Symbols []string `json:"symbols"`
}

func (a *api) handleQuotes(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	switch r.Method {
	case http.MethodGet:
		symbols = splitCSV(r.URL.Query().Get("symbols"))
	case http.MethodPost:
		var b quotesRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		symbols = b.Symbols
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(symbols) == 0 {
		http.Error(w, "symbols cannot be empty", http.StatusBadRequest)
		return
	}
	if len(symbols) > maxBatchSymbols {
		http.Error(w, "too many symbols (max 100)", http.StatusBadRequest)
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	writeJSON(w, quotesResponse{Quotes: a.res.ResolveMultiple(ctx, symbols)})
}

type historyResponse struct {
	Symbol string       `json:"symbol"`
	Range  quote.Range  `json:"range"`
	Points quote.Series `json:"points"`
}

func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	rangeName := r.URL.Query().Get("range")
	if rangeName == "" {
		rangeName = string(quote.Range1Mo)
	}
	rng, err := quote.ParseRange(rangeName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	writeJSON(w, historyResponse{
		Symbol: quote.NormalizeSymbol(symbol),
		Range:  rng,
		Points: a.res.ResolveHistory(ctx, symbol, rng),
	})
}

type indicesResponse struct {
	Indices []quote.Index `json:"indices"`
}

func (a *api) handleIndices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	writeJSON(w, indicesResponse{Indices: a.res.ResolveIndices(ctx)})
}

func (a *api) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()
	q := a.res.ResolveQuote(ctx, symbol)
	writeJSON(w, a.analyzer.AnalyzeQuote(ctx, q))
}

type watchlistResponse struct {
	Symbols []string      `json:"symbols"`
	Quotes  []quote.Quote `json:"quotes,omitempty"`
}

type symbolRequest struct {
	Symbol string `json:"symbol"`
}

func (a *api) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ctx, cancel := requestContext(r)
		defer cancel()
		symbols := a.store.Watchlist.Symbols()
		writeJSON(w, watchlistResponse{
			Symbols: symbols,
			Quotes:  a.res.ResolveMultiple(ctx, symbols),
		})
	case http.MethodPost:
		var b symbolRequest
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil || strings.TrimSpace(b.Symbol) == "" {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		a.store.Watchlist.Add(b.Symbol)
		writeJSON(w, watchlistResponse{Symbols: a.store.Watchlist.Symbols()})
	case http.MethodDelete:
		symbol := r.URL.Query().Get("symbol")
		if strings.TrimSpace(symbol) == "" {
			http.Error(w, "missing symbol query param", http.StatusBadRequest)
			return
		}
		a.store.Watchlist.Remove(symbol)
		writeJSON(w, watchlistResponse{Symbols: a.store.Watchlist.Symbols()})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *api) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ctx, cancel := requestContext(r)
		defer cancel()
		symbols := a.store.Portfolio.Symbols()
		prices := make(map[string]float64, len(symbols))
		for _, q := range a.res.ResolveMultiple(ctx, symbols) {
			prices[q.Symbol] = q.Price
		}
		writeJSON(w, a.store.Portfolio.Valuation(prices))
	case http.MethodPost:
		var pos store.Position
		if err := json.NewDecoder(r.Body).Decode(&pos); err != nil || strings.TrimSpace(pos.Symbol) == "" {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if pos.Shares <= 0 || pos.AvgCost < 0 {
			http.Error(w, "shares must be positive and avgCost non-negative", http.StatusBadRequest)
			return
		}
		a.store.Portfolio.Add(pos)
		writeJSON(w, struct {
			Positions []store.Position `json:"positions"`
		}{a.store.Portfolio.Positions()})
	case http.MethodDelete:
		symbol := r.URL.Query().Get("symbol")
		if strings.TrimSpace(symbol) == "" {
			http.Error(w, "missing symbol query param", http.StatusBadRequest)
			return
		}
		a.store.Portfolio.Remove(symbol)
		writeJSON(w, struct {
			Positions []store.Position `json:"positions"`
		}{a.store.Portfolio.Positions()})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 25*time.Second)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
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
