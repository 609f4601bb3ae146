package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestLimiter(burst int, refillEvery time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(refillEvery), burst)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient("test-token", 5*time.Second).WithBaseURL(server.URL)
	return client, server
}

func TestQuoteParsesPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		w.Write([]byte(`{"c":151.25,"h":152.1,"l":149.8,"o":150.0,"pc":149.0,"t":1717300000}`))
	})

	quote, err := client.Quote(context.Background(), "aapl")
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.True(t, quote.Current.Equal(decimal.NewFromFloat(151.25)))
	assert.True(t, quote.PreviousClose.Equal(decimal.NewFromFloat(149.0)))
	assert.Equal(t, int64(1717300000), quote.Timestamp)
}

func TestQuoteZeroCurrentMeansNoData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":0,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
	})

	quote, err := client.Quote(context.Background(), "ZZZZZ")
	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestQuoteServerErrorIsAbsence(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	quote, err := client.Quote(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.False(t, quote.HasData())
}

func TestCompanyProfileMemoized(t *testing.T) {
	var hits atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"name":"Apple Inc","ticker":"AAPL","exchange":"NASDAQ","marketCapitalization":2900000}`))
	})

	for i := 0; i < 3; i++ {
		profile, err := client.CompanyProfile(context.Background(), "AAPL")
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.Equal(t, "Apple Inc", profile.Name)
	}
	assert.Equal(t, int64(1), hits.Load(), "profile should be served from memo after the first call")

	// Expiry forces a refetch.
	client.now = func() time.Time { return time.Now().Add(memoTTL + time.Second) }
	_, err := client.CompanyProfile(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestBasicFinancialsUnwrapsMetric(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("metric"))
		w.Write([]byte(`{"metric":{"52WeekHigh":199.62,"52WeekLow":124.17,"beta":1.29}}`))
	})

	fin, err := client.BasicFinancials(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, fin)
	assert.True(t, fin.FiftyTwoWeekHigh.Equal(decimal.NewFromFloat(199.62)))
	assert.True(t, fin.Beta.Equal(decimal.NewFromFloat(1.29)))
}

func TestHistoricalNoData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "D", r.URL.Query().Get("resolution"))
		w.Write([]byte(`{"s":"no_data"}`))
	})

	candles, err := client.Historical(context.Background(), "AAPL", 30)
	require.NoError(t, err)
	assert.Nil(t, candles)
}

func TestMultiQuoteOmitsSentinelSymbols(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			w.Write([]byte(`{"c":151.0,"pc":149.0}`))
		case "MSFT":
			w.Write([]byte(`{"c":402.5,"pc":400.0}`))
		default:
			w.Write([]byte(`{"c":0}`))
		}
	})

	quotes := client.MultiQuote(context.Background(), []string{"AAPL", "MSFT", "GONE"})
	assert.Len(t, quotes, 2)
	assert.Contains(t, quotes, "AAPL")
	assert.Contains(t, quotes, "MSFT")
	assert.NotContains(t, quotes, "GONE")
}

func TestStockDetailRequiresQuote(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			w.Write([]byte(`{"c":0}`))
		case "/stock/profile2":
			w.Write([]byte(`{"name":"Ghost Corp","ticker":"GONE"}`))
		default:
			w.Write([]byte(`{}`))
		}
	})

	detail, err := client.StockDetail(context.Background(), "GONE")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestStockDetailFansOut(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			w.Write([]byte(`{"c":151.0,"pc":149.0}`))
		case "/stock/profile2":
			w.Write([]byte(`{"name":"Apple Inc","ticker":"AAPL"}`))
		case "/stock/metric":
			w.Write([]byte(`{"metric":{"beta":1.29}}`))
		case "/stock/recommendation":
			w.Write([]byte(`[{"period":"2025-05-01","strongBuy":20,"buy":15,"hold":8,"sell":1,"strongSell":0}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	detail, err := client.StockDetail(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.True(t, detail.Quote.HasData())
	assert.Equal(t, "Apple Inc", detail.Profile.Name)
	assert.NotNil(t, detail.Financials)
	require.Len(t, detail.Recommendations, 1)
	assert.Equal(t, 20, detail.Recommendations[0].StrongBuy)
}

func TestSearchReturnsResults(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		w.Write([]byte(`{"count":1,"result":[{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"}]}`))
	})

	results, err := client.Search(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AAPL", results[0].Symbol)
}

func TestRateBudgetConfiguration(t *testing.T) {
	client := NewClient("k", time.Second)

	// Token bucket of 58 permits, refilled continuously at 58 per 60 s.
	assert.Equal(t, rateBudget, client.limiter.Burst())
	assert.InDelta(t, float64(rateBudget)/60.0, float64(client.limiter.Limit()), 1e-9)
}

func TestRateLimiterBlocksBeyondBurst(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":1.0,"pc":1.0}`))
	})
	// Tiny budget so the test observes blocking without waiting a minute.
	client.limiter = newTestLimiter(2, 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Quote(context.Background(), "AAPL")
		require.NoError(t, err)
	}
	// Third call had to wait for a refill.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
