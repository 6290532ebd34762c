package alphavantage_test

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stockdash/internal/provider"
	"stockdash/internal/provider/alphavantage"
	"stockdash/internal/quote"
)

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestQuote_ParsesStringFieldsAndPercentSuffix(t *testing.T) {
	t.Parallel()

	// Arrange: stub the HTTP client with a GLOBAL_QUOTE payload.
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "GLOBAL_QUOTE", req.URL.Query().Get("function"))
			require.Equal(t, "AAPL", req.URL.Query().Get("symbol"))
			require.Equal(t, "test", req.URL.Query().Get("apikey"))
			return jsonResponse(`{"Global Quote": {
				"01. symbol": "AAPL",
				"02. open": "200.1000",
				"03. high": "202.3000",
				"04. low": "198.9000",
				"05. price": "201.0800",
				"06. volume": "51234567",
				"07. latest trading day": "2025-01-04",
				"08. previous close": "199.5000",
				"09. change": "1.5800",
				"10. change percent": "0.7920%"
			}}`), nil
		}).
		Times(1)

	p := alphavantage.New("test", alphavantage.WithHTTPClient(httpClient))

	// Act
	q, err := p.Quote(t.Context(), "AAPL")

	// Assert: percent suffix stripped, all strings parsed.
	require.NoError(t, err)
	require.InDelta(t, 201.08, q.Price, 1e-9)
	require.InDelta(t, 0.792, q.ChangePercent, 1e-9)
	require.InDelta(t, 1.58, q.Change, 1e-9)
	require.EqualValues(t, 51234567, q.Volume)
	require.Equal(t, "2025-01-04", q.Timestamp.String())
}

func TestQuote_EmptyObjectIsStructuralFailure(t *testing.T) {
	t.Parallel()

	// The free tier answers an empty object (or a Note) when throttled.
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(`{"Note": "Thank you for using Alpha Vantage!"}`), nil).
		Times(1)

	p := alphavantage.New("test", alphavantage.WithHTTPClient(httpClient))
	_, err := p.Quote(t.Context(), "AAPL")
	require.ErrorIs(t, err, provider.ErrMalformed)
}

func TestQuote_MissingKeyIsNotConfigured(t *testing.T) {
	t.Parallel()

	p := alphavantage.New("")
	_, err := p.Quote(t.Context(), "AAPL")
	require.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestHistory_WindowedAndAscending(t *testing.T) {
	t.Parallel()

	today := time.Now().UTC()
	day := func(offset int) string { return today.AddDate(0, 0, -offset).Format("2006-01-02") }
	payload := fmt.Sprintf(`{"Time Series (Daily)": {
		%q: {"4. close": "201.0800", "5. volume": "51234567"},
		%q: {"4. close": "199.5000", "5. volume": "40000000"},
		%q: {"4. close": "198.0000", "5. volume": "39000000"},
		%q: {"4. close": "10.0000", "5. volume": "1"}
	}}`, day(0), day(1), day(2), day(400))

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "TIME_SERIES_DAILY", req.URL.Query().Get("function"))
			return jsonResponse(payload), nil
		}).
		Times(1)

	p := alphavantage.New("test", alphavantage.WithHTTPClient(httpClient))
	s, err := p.History(t.Context(), "AAPL", quote.Range1Mo)
	require.NoError(t, err)
	require.Len(t, s, 3) // the 400-day-old point is outside the window
	for i := 1; i < len(s); i++ {
		require.True(t, s[i-1].Timestamp.Before(s[i].Timestamp.Time), "series must ascend")
	}
	require.InDelta(t, 201.08, s[2].Price, 1e-9)
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	baseURL := "http://localhost:8080"
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, strings.HasPrefix(req.URL.String(), baseURL), "expected url to start with base url, received: %s", req.URL.String())
			return jsonResponse(`{}`), nil
		}).
		Times(1)

	p := alphavantage.New("test", alphavantage.WithHTTPClient(httpClient), alphavantage.WithBaseURL(baseURL))
	_, _ = p.Quote(t.Context(), "AAPL")
}
