package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

// refreshPace is the self-imposed gap between refresher HTTP calls. The
// refresher is one long uninterruptible burst, so it paces itself under the
// upstream budget independently of the global limiter.
const refreshPace = 1100 * time.Millisecond

// DailyRefresher walks every watched symbol once a day and repopulates the
// previous-close cache from the quote endpoint.
type DailyRefresher struct {
	quotes  domain.QuoteProvider
	cache   domain.MarketCache
	symbols func(ctx context.Context) []string
	logger  *slog.Logger

	hour, minute int
	pace         time.Duration
	now          func() time.Time
}

func NewDailyRefresher(quotes domain.QuoteProvider, cache domain.MarketCache, symbols func(ctx context.Context) []string, hour, minute int) *DailyRefresher {
	return &DailyRefresher{
		quotes:  quotes,
		cache:   cache,
		symbols: symbols,
		logger:  slog.Default().With("component", "daily_refresher"),
		hour:    hour,
		minute:  minute,
		pace:    refreshPace,
		now:     time.Now,
	}
}

// WithPace overrides the inter-call gap. Used by tests.
func (r *DailyRefresher) WithPace(d time.Duration) *DailyRefresher {
	r.pace = d
	return r
}

// WithClock overrides the time source. Used by tests.
func (r *DailyRefresher) WithClock(now func() time.Time) *DailyRefresher {
	r.now = now
	return r
}

// Run refreshes immediately so the cache is warm before the first evaluator
// tick, then once a day at the configured wall-clock time.
func (r *DailyRefresher) Run(ctx context.Context) {
	r.Refresh(ctx)

	for {
		next := r.nextRun(r.now())
		wait := next.Sub(r.now())
		r.logger.Info("next previous-close refresh scheduled", "at", next, "in", wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		r.Refresh(ctx)
	}
}

// nextRun projects the next occurrence of the target wall-clock time. It
// advances in 24 h steps and re-projects onto the target hour/minute each
// step, so month boundaries and DST shifts cannot skip a day.
func (r *DailyRefresher) nextRun(now time.Time) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), r.hour, r.minute, 0, 0, now.Location())
	for !target.After(now) {
		stepped := target.Add(24 * time.Hour)
		target = time.Date(stepped.Year(), stepped.Month(), stepped.Day(), r.hour, r.minute, 0, 0, stepped.Location())
	}
	return target
}

// Refresh performs one full walk. Per-symbol failures are logged and
// skipped; a single bad symbol never aborts the run.
func (r *DailyRefresher) Refresh(ctx context.Context) {
	symbols := r.symbols(ctx)
	r.logger.Info("previous-close refresh starting", "symbols", len(symbols))

	refreshed := 0
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}

		quote, err := r.quotes.Quote(ctx, symbol)
		if err != nil {
			r.logger.Error("failed to fetch previous close", "symbol", symbol, "err", err)
		} else if quote.HasData() && !quote.PreviousClose.IsZero() {
			r.cache.PutPrevClose(ctx, symbol, quote.PreviousClose)
			refreshed++
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.pace):
		}
	}

	r.logger.Info("previous-close refresh completed", "symbols", len(symbols), "refreshed", refreshed)
}
