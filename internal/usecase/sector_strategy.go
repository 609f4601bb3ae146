package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type basketMove struct {
	Symbol string
	Price  decimal.Decimal
	Change decimal.Decimal // percent move vs previous close
}

// CheckSectorStrategies runs one strategy tick: for each active strategy it
// computes the sector basket's percent moves and emits a divergence
// notification when a clear majority trends one way and exactly one stock
// lags the other way.
func (e *AlertEngine) CheckSectorStrategies(ctx context.Context) (int, error) {
	strategies, err := e.sectors.GetActiveStrategies(ctx)
	if err != nil {
		return 0, err
	}
	if len(strategies) == 0 {
		return 0, nil
	}

	var symbols []string
	for _, st := range strategies {
		for _, stock := range st.Sector.Stocks {
			symbols = append(symbols, stock.Symbol)
		}
	}
	if len(symbols) == 0 {
		return 0, nil
	}
	pairs := e.collectPairs(ctx, distinctSymbols(symbols))

	triggered := 0
	for i := range strategies {
		st := &strategies[i]
		if e.evaluateStrategy(ctx, st, pairs) {
			triggered++
		}
	}
	return triggered, nil
}

func (e *AlertEngine) evaluateStrategy(ctx context.Context, st *domain.SectorStrategy, pairs map[string]domain.PricePair) bool {
	stocks := st.Sector.Stocks
	total := len(stocks)
	if total < 2 {
		// Relative strength needs a cohort.
		return false
	}

	moves := make([]basketMove, 0, total)
	for _, stock := range stocks {
		pair, ok := pairs[stock.Symbol]
		if !ok || pair.Current.IsZero() || pair.PreviousClose.IsZero() {
			continue
		}
		pct := pair.Current.Sub(pair.PreviousClose).Div(pair.PreviousClose).Mul(hundred)
		moves = append(moves, basketMove{Symbol: stock.Symbol, Price: pair.Current, Change: pct})
	}
	if len(moves) != total {
		// Cohort statistics need the whole basket.
		return false
	}

	upCount, downCount := 0, 0
	for _, m := range moves {
		if m.Change.GreaterThanOrEqual(st.TrendThreshold) {
			upCount++
		}
		if m.Change.LessThanOrEqual(st.TrendThreshold.Neg()) {
			downCount++
		}
	}
	totalDec := decimal.NewFromInt(int64(total))
	upPercent := decimal.NewFromInt(int64(upCount)).Div(totalDec).Mul(hundred)
	downPercent := decimal.NewFromInt(int64(downCount)).Div(totalDec).Mul(hundred)

	var (
		laggard   *basketMove
		direction string
	)
	switch {
	case upPercent.GreaterThanOrEqual(st.PercentMajority):
		// Sector trending up: the divergence play is the one stock still down.
		laggard = singleLaggard(moves, func(m basketMove) bool {
			return m.Change.LessThanOrEqual(st.LaggardThreshold)
		})
		direction = "UP"
	case downPercent.GreaterThanOrEqual(st.PercentMajority):
		// Sector trending down: look for the one stock still up. The
		// threshold is stored signed (e.g. -1.0), so flip its magnitude.
		positive := st.LaggardThreshold.Abs()
		laggard = singleLaggard(moves, func(m basketMove) bool {
			return m.Change.GreaterThanOrEqual(positive)
		})
		direction = "DOWN"
	}
	if laggard == nil {
		return false
	}

	now := e.now()
	title := fmt.Sprintf("Sector Divergence Play: %s is diverging from %s", laggard.Symbol, st.Sector.Name)
	message := fmt.Sprintf("%s is trending %s. %s is lagging heavily at %s%%.",
		st.Sector.Name, direction, laggard.Symbol, laggard.Change.StringFixed(2))

	notification := &domain.Notification{
		UserID:       st.UserID,
		Channel:      domain.ChannelInApp,
		Title:        title,
		Message:      message,
		Symbol:       laggard.Symbol,
		TriggerPrice: decimal.NewNullDecimal(laggard.Price),
		Kind:         domain.KindSectorDivergence,
		Threshold:    decimal.NewNullDecimal(laggard.Change),
	}
	if err := e.notifications.Create(ctx, notification); err != nil {
		e.logger.Error("failed to create divergence notification", "strategy_id", st.ID, "err", err)
		return false
	}
	if err := e.sectors.MarkStrategyTriggered(ctx, st.ID, now); err != nil {
		e.logger.Error("failed to mark strategy triggered", "strategy_id", st.ID, "err", err)
	}

	e.logger.Info("sector divergence detected",
		"strategy_id", st.ID, "sector", st.Sector.Name,
		"laggard", laggard.Symbol, "direction", direction,
		"change", laggard.Change.StringFixed(2))
	return true
}

// singleLaggard returns the matching move only when exactly one matches.
// Ties suppress emission: the strategy surfaces THE outlier, not a subset.
func singleLaggard(moves []basketMove, match func(basketMove) bool) *basketMove {
	var found *basketMove
	for i := range moves {
		if match(moves[i]) {
			if found != nil {
				return nil
			}
			found = &moves[i]
		}
	}
	return found
}
