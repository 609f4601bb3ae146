package usecase

import (
	"context"
	"time"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

// fallbackDelay paces sequential HTTP fallback calls so a burst of cache
// misses alone can never blow the upstream budget. The global limiter is the
// second safety net.
const fallbackDelay = 1100 * time.Millisecond

// sleepFunc is injected so tests can observe pacing without waiting it out.
type sleepFunc func(ctx context.Context, d time.Duration)

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// collectPairs joins the cache against the symbol set and falls back to the
// upstream quote endpoint for symbols missing a live tick or a previous
// close. Symbols without data anywhere are simply absent from the result.
func (e *AlertEngine) collectPairs(ctx context.Context, symbols []string) map[string]domain.PricePair {
	pairs := make(map[string]domain.PricePair, len(symbols))
	live := e.cache.GetAllLive(ctx, symbols)

	for _, symbol := range symbols {
		current, haveLive := live[symbol]
		prevClose, havePrev := e.cache.GetPrevClose(ctx, symbol)

		if haveLive && havePrev {
			pairs[symbol] = domain.PricePair{Current: current, PreviousClose: prevClose}
			continue
		}

		e.logger.Debug("cache miss, falling back to HTTP", "symbol", symbol)
		quote, err := e.quotes.Quote(ctx, symbol)
		if err == nil && quote.HasData() {
			pairs[symbol] = domain.PricePair{
				Current:       quote.Current,
				PreviousClose: quote.PreviousClose,
			}
		}
		e.sleep(ctx, fallbackDelay)
		if ctx.Err() != nil {
			return pairs
		}
	}
	return pairs
}

func distinctSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
