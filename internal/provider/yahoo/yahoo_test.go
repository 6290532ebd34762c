package yahoo_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockdash/internal/httpx"
	"stockdash/internal/provider"
	"stockdash/internal/provider/yahoo"
	"stockdash/internal/quote"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {
        "symbol": "AAPL",
        "regularMarketPrice": 201.08,
        "chartPreviousClose": 199.50,
        "regularMarketDayHigh": 202.30,
        "regularMarketDayLow": 198.90,
        "regularMarketVolume": 51234567
      },
      "timestamp": [1735776000, 1735862400, 1735948800],
      "indicators": {
        "quote": [{
          "open": [200.10, 200.80, null],
          "close": [200.55, null, 201.08],
          "volume": [40000000, null, 51234567]
        }]
      }
    }],
    "error": null
  }
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *yahoo.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return yahoo.New(yahoo.Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
}

func TestQuote_ParsesChartMeta(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		require.Equal(t, "1d", r.URL.Query().Get("range"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(chartFixture))
	})

	q, err := p.Quote(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "AAPL", q.Symbol)
	require.InDelta(t, 201.08, q.Price, 1e-9)
	require.InDelta(t, 199.50, q.PreviousClose, 1e-9)
	require.InDelta(t, 201.08-199.50, q.Change, 1e-9)
	require.InDelta(t, 202.30, q.High, 1e-9)
	require.InDelta(t, 198.90, q.Low, 1e-9)
	require.InDelta(t, 200.10, q.Open, 1e-9) // first non-null bar open
	require.EqualValues(t, 51234567, q.Volume)
}

func TestQuote_MissingPriceIsStructuralFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"AAPL"}}],"error":null}}`))
	})

	_, err := p.Quote(t.Context(), "AAPL")
	require.ErrorIs(t, err, provider.ErrMalformed)
}

func TestQuote_Non2xxIsTransportFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	_, err := p.Quote(t.Context(), "AAPL")
	require.Error(t, err)
}

func TestHistory_SkipsNullBars(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1mo", r.URL.Query().Get("range"))
		_, _ = w.Write([]byte(chartFixture))
	})

	s, err := p.History(t.Context(), "AAPL", quote.Range1Mo)
	require.NoError(t, err)
	require.Len(t, s, 2) // middle bar has a null close
	require.True(t, s[0].Timestamp.Before(s[1].Timestamp.Time))
	require.InDelta(t, 200.55, s[0].Price, 1e-9)
	require.EqualValues(t, 51234567, s[1].Volume)
}

func TestHistory_APIErrorSurfaces(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found"}}}`))
	})

	_, err := p.History(t.Context(), "NOPE", quote.Range1Mo)
	require.Error(t, err)
}
