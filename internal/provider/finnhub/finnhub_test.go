package finnhub_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"stockdash/internal/provider"
	"stockdash/internal/provider/finnhub"
	"stockdash/internal/quote"
)

func newTestProvider(t *testing.T, apiKey string, handler http.HandlerFunc) *finnhub.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return finnhub.New(finnhub.Config{BaseURL: srv.URL, APIKey: apiKey})
}

func TestQuote_ParsesPayload(t *testing.T) {
	p := newTestProvider(t, "key", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		require.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		require.Equal(t, "key", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"c":201.08,"d":1.58,"dp":0.79,"h":202.3,"l":198.9,"o":200.1,"pc":199.5,"t":1735948800}`))
	})

	q, err := p.Quote(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "AAPL", q.Symbol)
	require.InDelta(t, 201.08, q.Price, 1e-9)
	require.InDelta(t, 1.58, q.Change, 1e-9)
	require.InDelta(t, 0.79, q.ChangePercent, 1e-9)
	require.InDelta(t, 199.5, q.PreviousClose, 1e-9)
	require.Equal(t, "2025-01-04", q.Timestamp.String())
}

func TestQuote_MissingKeyIsNotConfigured(t *testing.T) {
	p := finnhub.New(finnhub.Config{BaseURL: "http://localhost:0"})
	_, err := p.Quote(t.Context(), "AAPL")
	require.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestQuote_ZeroPayloadIsStructuralFailure(t *testing.T) {
	// Finnhub answers all zeros for unknown symbols.
	p := newTestProvider(t, "key", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
	})

	_, err := p.Quote(t.Context(), "UNKNOWNSYM")
	require.ErrorIs(t, err, provider.ErrMalformed)
}

func TestQuote_Non2xxFails(t *testing.T) {
	p := newTestProvider(t, "key", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"API limit reached"}`, http.StatusTooManyRequests)
	})

	_, err := p.Quote(t.Context(), "AAPL")
	require.Error(t, err)
}

func TestHistory_Unsupported(t *testing.T) {
	p := finnhub.New(finnhub.Config{APIKey: "key"})
	_, err := p.History(t.Context(), "AAPL", quote.Range1Mo)
	require.ErrorIs(t, err, provider.ErrNoHistory)
}
