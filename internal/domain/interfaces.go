package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AlertRepository covers what the evaluator loops need from the alerts table.
type AlertRepository interface {
	GetActiveAlerts(ctx context.Context) ([]Alert, error)

	// GetActiveSymbols returns the distinct symbols of active alerts.
	GetActiveSymbols(ctx context.Context) ([]string, error)

	// MarkTriggered records the trigger; when final is true the alert leaves
	// the active set (non-repeating alerts).
	MarkTriggered(ctx context.Context, id int64, price decimal.Decimal, at time.Time, final bool) error

	TouchLastChecked(ctx context.Context, ids []int64, at time.Time) error
}

// SectorRepository loads strategies with their sector baskets attached.
type SectorRepository interface {
	GetActiveStrategies(ctx context.Context) ([]SectorStrategy, error)
	GetSectorSymbols(ctx context.Context) ([]string, error)
	MarkStrategyTriggered(ctx context.Context, id int64, at time.Time) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
}

// MarketCache is the hybrid live/previous-close price cache. Every method is
// fail-soft: backend errors surface as absence, never as a failed tick.
type MarketCache interface {
	PutLive(ctx context.Context, symbol string, price decimal.Decimal)
	GetLive(ctx context.Context, symbol string) (decimal.Decimal, bool)
	PutPrevClose(ctx context.Context, symbol string, price decimal.Decimal)
	GetPrevClose(ctx context.Context, symbol string) (decimal.Decimal, bool)
	GetAllLive(ctx context.Context, symbols []string) map[string]decimal.Decimal
}

// QuoteProvider is the rate-limited HTTP quote source the evaluators fall
// back to on cache misses. A nil quote means "no data"; callers must not
// distinguish transport failure from an unknown symbol.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (*Quote, error)
}

// EmailSender delivers one message. Callers own retries.
type EmailSender interface {
	Send(to, subject, textBody, htmlBody string) error
}
