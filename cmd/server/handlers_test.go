package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"stockdash/internal/analysis"
	"stockdash/internal/provider"
	"stockdash/internal/quote"
	"stockdash/internal/resolver"
	"stockdash/internal/store"
)

type fakeProvider struct {
	name   string
	quotes map[string]quote.Quote
}

func (f fakeProvider) Name() string { return f.name }

func (f fakeProvider) Quote(_ context.Context, symbol string) (quote.Quote, error) {
	q, ok := f.quotes[quote.NormalizeSymbol(symbol)]
	if !ok {
		return quote.Quote{}, provider.ErrMalformed
	}
	return q, nil
}

func (f fakeProvider) History(_ context.Context, _ string, _ quote.Range) (quote.Series, error) {
	return nil, provider.ErrNoHistory
}

func testAPI(providers ...provider.Provider) *api {
	return &api{
		res:      resolver.New(providers),
		analyzer: analysis.New(analysis.Config{}),
		store:    store.New(),
	}
}

func TestHandleQuote_ProviderAnswer(t *testing.T) {
	a := testAPI(fakeProvider{"fake", map[string]quote.Quote{
		"AAPL": {Symbol: "AAPL", Price: 199.5, PreviousClose: 195},
	}})

	rr := httptest.NewRecorder()
	a.handleQuote(rr, httptest.NewRequest("GET", "/api/quote?symbol=aapl", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp quoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Quote.Symbol != "AAPL" || resp.Quote.Price != 199.5 {
		t.Fatalf("unexpected: %+v", resp.Quote)
	}
	if resp.Quote.Change != 4.5 {
		t.Fatalf("change should be derived from previous close: %+v", resp.Quote)
	}
}

func TestHandleQuote_MissingSymbol(t *testing.T) {
	a := testAPI()
	rr := httptest.NewRecorder()
	a.handleQuote(rr, httptest.NewRequest("GET", "/api/quote", nil))
	if rr.Code != 400 {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}

func TestHandleQuote_UnknownSymbolStillServed(t *testing.T) {
	// An empty chain means every lookup falls through to generated data;
	// the endpoint must answer 200 regardless.
	a := testAPI()
	rr := httptest.NewRecorder()
	a.handleQuote(rr, httptest.NewRequest("GET", "/api/quote?symbol=ZZZZ", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp quoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Quote.Symbol != "ZZZZ" || resp.Quote.Price <= 0 {
		t.Fatalf("unexpected: %+v", resp.Quote)
	}
}

func TestHandleQuotes_PostBody(t *testing.T) {
	a := testAPI(fakeProvider{"fake", map[string]quote.Quote{
		"AAPL": {Symbol: "AAPL", Price: 199.5, PreviousClose: 195},
		"MSFT": {Symbol: "MSFT", Price: 430, PreviousClose: 428},
	}})

	body := strings.NewReader(`{"symbols":["AAPL","MSFT"]}`)
	rr := httptest.NewRecorder()
	a.handleQuotes(rr, httptest.NewRequest("POST", "/api/quotes", body))
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp quotesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Quotes) != 2 || resp.Quotes[0].Symbol != "AAPL" || resp.Quotes[1].Symbol != "MSFT" {
		t.Fatalf("unexpected: %+v", resp.Quotes)
	}
}

func TestHandleQuotes_EmptyAndOversized(t *testing.T) {
	a := testAPI()

	rr := httptest.NewRecorder()
	a.handleQuotes(rr, httptest.NewRequest("GET", "/api/quotes?symbols=", nil))
	if rr.Code != 400 {
		t.Fatalf("empty list: status=%d, want 400", rr.Code)
	}

	big := make([]string, maxBatchSymbols+1)
	for i := range big {
		big[i] = "AAPL"
	}
	rr = httptest.NewRecorder()
	a.handleQuotes(rr, httptest.NewRequest("GET", "/api/quotes?symbols="+strings.Join(big, ","), nil))
	if rr.Code != 400 {
		t.Fatalf("oversized list: status=%d, want 400", rr.Code)
	}
}

func TestHandleHistory_DefaultRangeAndBadRange(t *testing.T) {
	a := testAPI()

	rr := httptest.NewRecorder()
	a.handleHistory(rr, httptest.NewRequest("GET", "/api/history?symbol=AAPL", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp historyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Range != quote.Range1Mo {
		t.Fatalf("range = %q, want default 1mo", resp.Range)
	}
	if len(resp.Points) != quote.Range1Mo.Points() {
		t.Fatalf("points = %d, want %d", len(resp.Points), quote.Range1Mo.Points())
	}

	rr = httptest.NewRecorder()
	a.handleHistory(rr, httptest.NewRequest("GET", "/api/history?symbol=AAPL&range=2w", nil))
	if rr.Code != 400 {
		t.Fatalf("bad range: status=%d, want 400", rr.Code)
	}
}

func TestHandleIndices(t *testing.T) {
	a := testAPI()
	rr := httptest.NewRecorder()
	a.handleIndices(rr, httptest.NewRequest("GET", "/api/indices", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp indicesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Indices) != 4 {
		t.Fatalf("want 4 indices, got %+v", resp.Indices)
	}
}

func TestHandleWatchlist_AddAndRemove(t *testing.T) {
	a := testAPI()

	rr := httptest.NewRecorder()
	a.handleWatchlist(rr, httptest.NewRequest("POST", "/api/watchlist", strings.NewReader(`{"symbol":"nvda"}`)))
	if rr.Code != 200 {
		t.Fatalf("add: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp watchlistResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Symbols[len(resp.Symbols)-1] != "NVDA" {
		t.Fatalf("NVDA not appended: %v", resp.Symbols)
	}

	rr = httptest.NewRecorder()
	a.handleWatchlist(rr, httptest.NewRequest("DELETE", "/api/watchlist?symbol=NVDA", nil))
	if rr.Code != 200 {
		t.Fatalf("remove: status=%d", rr.Code)
	}
	for _, s := range a.store.Watchlist.Symbols() {
		if s == "NVDA" {
			t.Fatal("NVDA still present after delete")
		}
	}
}

func TestHandlePortfolio_AddValidation(t *testing.T) {
	a := testAPI()

	rr := httptest.NewRecorder()
	a.handlePortfolio(rr, httptest.NewRequest("POST", "/api/portfolio", strings.NewReader(`{"symbol":"AAPL","shares":0,"avgCost":150}`)))
	if rr.Code != 400 {
		t.Fatalf("zero shares: status=%d, want 400", rr.Code)
	}

	rr = httptest.NewRecorder()
	a.handlePortfolio(rr, httptest.NewRequest("POST", "/api/portfolio", strings.NewReader(`{"symbol":"AAPL","shares":10,"avgCost":150}`)))
	if rr.Code != 200 {
		t.Fatalf("valid position: status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := a.store.Portfolio.Positions(); len(got) != 1 || got[0].Symbol != "AAPL" {
		t.Fatalf("unexpected positions: %+v", got)
	}
}
