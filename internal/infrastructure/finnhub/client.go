package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

const (
	DefaultBaseURL = "https://finnhub.io/api/v1"

	// Free tier allows 60 calls/min. Budget 58 to stay strictly under it.
	rateBudget = 58
	ratePeriod = 60 * time.Second

	memoTTL = 5 * time.Minute
)

// Client talks to the Finnhub REST API under a process-wide rate budget.
// Every outbound request blocks on the limiter; slow-moving reads (profile,
// financials) are memoized per symbol for five minutes.
//
// Failures come back as absence: a nil result means "no data", whether the
// cause was transport, a vendor error, or an unknown symbol.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu              sync.Mutex
	profileCache    map[string]memoEntry[*CompanyProfile]
	financialsCache map[string]memoEntry[*BasicFinancials]

	now func() time.Time
}

type memoEntry[T any] struct {
	at    time.Time
	value T
}

func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:         DefaultBaseURL,
		apiKey:          apiKey,
		httpClient:      &http.Client{Timeout: timeout},
		limiter:         rate.NewLimiter(rate.Limit(float64(rateBudget)/ratePeriod.Seconds()), rateBudget),
		logger:          slog.Default().With("component", "finnhub"),
		profileCache:    make(map[string]memoEntry[*CompanyProfile]),
		financialsCache: make(map[string]memoEntry[*BasicFinancials]),
		now:             time.Now,
	}
}

// WithBaseURL points the client at a different host. Used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// --- Endpoints ---

// Quote fetches a real-time quote. Never cached: this is the freshness
// source. Returns nil when the vendor has no data (c == 0).
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var dto quoteDTO
	params := url.Values{"symbol": {strings.ToUpper(symbol)}}
	if err := c.get(ctx, "/quote", params, &dto); err != nil {
		c.logger.Error("quote fetch failed", "symbol", symbol, "err", err)
		return nil, err
	}

	if dto.Current.IsZero() {
		return nil, nil
	}

	return &domain.Quote{
		Current:       dto.Current,
		High:          dto.High,
		Low:           dto.Low,
		Open:          dto.Open,
		PreviousClose: dto.PreviousClose,
		Timestamp:     dto.Timestamp,
	}, nil
}

// CompanyProfile fetches /stock/profile2, memoized for five minutes.
func (c *Client) CompanyProfile(ctx context.Context, symbol string) (*CompanyProfile, error) {
	key := strings.ToUpper(symbol)
	if cached, ok := memoGet(c, c.profileCache, key); ok {
		return cached, nil
	}

	var profile CompanyProfile
	if err := c.get(ctx, "/stock/profile2", url.Values{"symbol": {key}}, &profile); err != nil {
		c.logger.Error("profile fetch failed", "symbol", symbol, "err", err)
		return nil, err
	}
	if profile.isEmpty() {
		return nil, nil
	}

	memoPut(c, c.profileCache, key, &profile)
	return &profile, nil
}

// BasicFinancials fetches /stock/metric?metric=all, memoized for five minutes.
func (c *Client) BasicFinancials(ctx context.Context, symbol string) (*BasicFinancials, error) {
	key := strings.ToUpper(symbol)
	if cached, ok := memoGet(c, c.financialsCache, key); ok {
		return cached, nil
	}

	var env metricEnvelope
	params := url.Values{"symbol": {key}, "metric": {"all"}}
	if err := c.get(ctx, "/stock/metric", params, &env); err != nil {
		c.logger.Error("financials fetch failed", "symbol", symbol, "err", err)
		return nil, err
	}
	if env.Metric == nil {
		return nil, nil
	}

	memoPut(c, c.financialsCache, key, env.Metric)
	return env.Metric, nil
}

// Recommendations fetches analyst recommendation trends.
func (c *Client) Recommendations(ctx context.Context, symbol string) ([]RecommendationTrend, error) {
	var trends []RecommendationTrend
	params := url.Values{"symbol": {strings.ToUpper(symbol)}}
	if err := c.get(ctx, "/stock/recommendation", params, &trends); err != nil {
		c.logger.Error("recommendations fetch failed", "symbol", symbol, "err", err)
		return nil, err
	}
	if len(trends) == 0 {
		return nil, nil
	}
	return trends, nil
}

// Search looks up symbols by free text.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var env searchEnvelope
	if err := c.get(ctx, "/search", url.Values{"q": {query}}, &env); err != nil {
		c.logger.Error("symbol search failed", "query", query, "err", err)
		return nil, err
	}
	return env.Result, nil
}

// Historical fetches daily candles covering the last `days` days.
func (c *Client) Historical(ctx context.Context, symbol string, days int) (*Candles, error) {
	end := c.now()
	start := end.AddDate(0, 0, -days)

	params := url.Values{
		"symbol":     {strings.ToUpper(symbol)},
		"resolution": {"D"},
		"from":       {strconv.FormatInt(start.Unix(), 10)},
		"to":         {strconv.FormatInt(end.Unix(), 10)},
	}

	var candles Candles
	if err := c.get(ctx, "/stock/candle", params, &candles); err != nil {
		c.logger.Error("candles fetch failed", "symbol", symbol, "err", err)
		return nil, err
	}
	if candles.Status == "no_data" {
		return nil, nil
	}
	return &candles, nil
}

// MultiQuote fans out quote calls concurrently and collects the symbols that
// returned data. The shared limiter paces the fan-out.
func (c *Client) MultiQuote(ctx context.Context, symbols []string) map[string]*domain.Quote {
	results := make(map[string]*domain.Quote, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			quote, _ := c.Quote(gctx, symbol)
			if quote.HasData() {
				mu.Lock()
				results[symbol] = quote
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// StockDetail combines quote, profile, financials and recommendations,
// fetched in parallel. Absent quote means absent detail.
type StockDetail struct {
	Quote           *domain.Quote
	Profile         *CompanyProfile
	Financials      *BasicFinancials
	Recommendations []RecommendationTrend
}

func (c *Client) StockDetail(ctx context.Context, symbol string) (*StockDetail, error) {
	var detail StockDetail

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		detail.Quote, _ = c.Quote(gctx, symbol)
		return nil
	})
	g.Go(func() error {
		detail.Profile, _ = c.CompanyProfile(gctx, symbol)
		return nil
	})
	g.Go(func() error {
		detail.Financials, _ = c.BasicFinancials(gctx, symbol)
		return nil
	})
	g.Go(func() error {
		detail.Recommendations, _ = c.Recommendations(gctx, symbol)
		return nil
	})
	_ = g.Wait()

	if !detail.Quote.HasData() {
		return nil, nil
	}
	return &detail, nil
}

// --- Memoization ---

func memoGet[T any](c *Client, cache map[string]memoEntry[T], key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := cache[key]
	if !ok || c.now().Sub(entry.at) >= memoTTL {
		var zero T
		return zero, false
	}
	return entry.value, true
}

func memoPut[T any](c *Client, cache map[string]memoEntry[T], key string, value T) {
	c.mu.Lock()
	cache[key] = memoEntry[T]{at: c.now(), value: value}
	c.mu.Unlock()
}

// --- Transport ---

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("token", c.apiKey)
	fullURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("finnhub %s: status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("finnhub %s: decode: %w", endpoint, err)
	}
	return nil
}
