package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

type stubAlertRepo struct {
	symbols []string
}

func (r *stubAlertRepo) GetActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	return nil, nil
}

func (r *stubAlertRepo) GetActiveSymbols(ctx context.Context) ([]string, error) {
	return r.symbols, nil
}

func (r *stubAlertRepo) MarkTriggered(ctx context.Context, id int64, price decimal.Decimal, at time.Time, final bool) error {
	return nil
}

func (r *stubAlertRepo) TouchLastChecked(ctx context.Context, ids []int64, at time.Time) error {
	return nil
}

type stubSectorRepo struct {
	symbols []string
}

func (r *stubSectorRepo) GetActiveStrategies(ctx context.Context) ([]domain.SectorStrategy, error) {
	return nil, nil
}

func (r *stubSectorRepo) GetSectorSymbols(ctx context.Context) ([]string, error) {
	return r.symbols, nil
}

func (r *stubSectorRepo) MarkStrategyTriggered(ctx context.Context, id int64, at time.Time) error {
	return nil
}

func TestSubscriptionOrderAndDedup(t *testing.T) {
	source := NewSymbolSource(
		&stubAlertRepo{symbols: []string{"AAPL", "SPY", "TSLA"}},
		&stubSectorRepo{symbols: []string{"TSLA", "NVDA"}},
	)

	got := source.Subscription(context.Background())
	// Indexes first, then alert symbols, then sector symbols, deduplicated.
	assert.Equal(t, []string{"SPY", "QQQ", "IWM", "AAPL", "TSLA", "NVDA"}, got)
}

func TestSubscriptionTruncatesAtVendorCap(t *testing.T) {
	var many []string
	for i := 0; i < 80; i++ {
		many = append(many, fmt.Sprintf("S%d", i))
	}
	source := NewSymbolSource(&stubAlertRepo{symbols: many}, &stubSectorRepo{})

	got := source.Subscription(context.Background())
	assert.Len(t, got, maxStreamSymbols)
	assert.Equal(t, "SPY", got[0], "indexes keep priority under truncation")
}

func TestWatchedIsUntruncatedAndExcludesIndexes(t *testing.T) {
	var many []string
	for i := 0; i < 80; i++ {
		many = append(many, fmt.Sprintf("S%d", i))
	}
	source := NewSymbolSource(
		&stubAlertRepo{symbols: many},
		&stubSectorRepo{symbols: []string{"NVDA", "S0"}},
	)

	got := source.Watched(context.Background())
	assert.Len(t, got, 81, "80 alert symbols plus NVDA, S0 deduplicated")
	assert.NotContains(t, got, "QQQ")
}
