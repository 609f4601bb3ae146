package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
	"github.com/romanzzaa/cortex-alerts/internal/infrastructure/email"
)

const emailAttempts = 3

// AlertEngine evaluates price alerts and sector strategies against the
// hybrid market data cache. One instance serves both periodic loops; each
// Check method is one tick.
type AlertEngine struct {
	alerts        domain.AlertRepository
	sectors       domain.SectorRepository
	notifications domain.NotificationRepository
	users         domain.UserRepository
	cache         domain.MarketCache
	quotes        domain.QuoteProvider
	mailer        domain.EmailSender
	logger        *slog.Logger

	sleep sleepFunc
	now   func() time.Time
}

func NewAlertEngine(
	alerts domain.AlertRepository,
	sectors domain.SectorRepository,
	notifications domain.NotificationRepository,
	users domain.UserRepository,
	cache domain.MarketCache,
	quotes domain.QuoteProvider,
	mailer domain.EmailSender,
) *AlertEngine {
	return &AlertEngine{
		alerts:        alerts,
		sectors:       sectors,
		notifications: notifications,
		users:         users,
		cache:         cache,
		quotes:        quotes,
		mailer:        mailer,
		logger:        slog.Default().With("component", "alert_engine"),
		sleep:         sleepCtx,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (e *AlertEngine) WithClock(now func() time.Time) *AlertEngine {
	e.now = now
	return e
}

// WithSleeper overrides fallback pacing. Used by tests.
func (e *AlertEngine) WithSleeper(sleep func(ctx context.Context, d time.Duration)) *AlertEngine {
	e.sleep = sleep
	return e
}

// triggeredAlert snapshots everything the email batch needs, so a
// concurrently mutated or deleted alert cannot change the digest.
type triggeredAlert struct {
	AlertID      int64
	Symbol       string
	StockName    string
	Kind         domain.AlertType
	Title        string
	Threshold    decimal.Decimal
	TriggerPrice decimal.Decimal
	Message      string
	NotifyEmail  bool
	TriggeredAt  time.Time
}

// CheckAlerts runs one evaluator tick and returns the number of alerts
// triggered. An alert with no usable price data is skipped without touching
// last_checked_at; every examined alert gets its timestamp bumped.
func (e *AlertEngine) CheckAlerts(ctx context.Context) (int, error) {
	active, err := e.alerts.GetActiveAlerts(ctx)
	if err != nil {
		return 0, err
	}
	if len(active) == 0 {
		return 0, nil
	}

	symbols := make([]string, 0, len(active))
	for _, a := range active {
		symbols = append(symbols, a.Symbol)
	}
	pairs := e.collectPairs(ctx, distinctSymbols(symbols))

	var (
		triggered int
		examined  []int64
		byUser    = make(map[int64][]triggeredAlert)
	)

	for i := range active {
		alert := &active[i]

		if !alert.Threshold.IsPositive() {
			// The store refuses these; a row that slipped through anyway
			// must not fire on garbage.
			e.logger.Warn("skipping alert with non-positive threshold", "alert_id", alert.ID)
			continue
		}

		pair, ok := pairs[alert.Symbol]
		if !ok || pair.Current.IsZero() {
			// No data this tick: not examined, no timestamp update.
			continue
		}

		if alert.CheckCondition(pair.Current, pair.PreviousClose) {
			now := e.now()
			if err := e.triggerAlert(ctx, alert, pair.Current, now); err != nil {
				e.logger.Error("failed to trigger alert", "alert_id", alert.ID, "err", err)
			} else {
				triggered++
				byUser[alert.UserID] = append(byUser[alert.UserID], triggeredAlert{
					AlertID:      alert.ID,
					Symbol:       alert.Symbol,
					StockName:    alert.StockName,
					Kind:         alert.Type,
					Title:        alert.Title(),
					Threshold:    alert.Threshold,
					TriggerPrice: pair.Current,
					Message:      alert.Message,
					NotifyEmail:  alert.NotifyEmail,
					TriggeredAt:  now,
				})
			}
		}

		examined = append(examined, alert.ID)
	}

	if err := e.alerts.TouchLastChecked(ctx, examined, e.now()); err != nil {
		e.logger.Error("failed to update last_checked_at", "err", err)
	}

	for userID, items := range byUser {
		e.sendBatchedEmail(ctx, userID, items)
	}

	return triggered, nil
}

func (e *AlertEngine) triggerAlert(ctx context.Context, alert *domain.Alert, price decimal.Decimal, now time.Time) error {
	final := !alert.IsRepeating
	if err := e.alerts.MarkTriggered(ctx, alert.ID, price, now, final); err != nil {
		return err
	}

	alertID := alert.ID
	notification := &domain.Notification{
		UserID:       alert.UserID,
		AlertID:      &alertID,
		Channel:      domain.ChannelInApp,
		Title:        alert.Title(),
		Message:      alert.Message,
		Symbol:       alert.Symbol,
		TriggerPrice: decimal.NewNullDecimal(price),
		Kind:         string(alert.Type),
		Threshold:    decimal.NewNullDecimal(alert.Threshold),
	}
	if err := e.notifications.Create(ctx, notification); err != nil {
		e.logger.Error("failed to create notification", "alert_id", alert.ID, "err", err)
	}

	e.logger.Info("alert triggered",
		"alert_id", alert.ID, "symbol", alert.Symbol, "price", price.String())
	return nil
}

// sendBatchedEmail delivers one digest per user per tick, honoring the
// user-level and per-alert email switches, and records one email-channel
// notification per included alert.
func (e *AlertEngine) sendBatchedEmail(ctx context.Context, userID int64, items []triggeredAlert) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		e.logger.Error("failed to load user for email batch", "user_id", userID, "err", err)
		return
	}
	if !user.EmailNotifications {
		return
	}

	var included []triggeredAlert
	for _, item := range items {
		if item.NotifyEmail {
			included = append(included, item)
		}
	}
	if len(included) == 0 {
		return
	}

	digest := make([]email.DigestItem, len(included))
	subjectSymbols := make([]string, len(included))
	for i, item := range included {
		subjectSymbols[i] = item.Symbol
		digest[i] = email.DigestItem{
			Symbol:       item.Symbol,
			StockName:    item.StockName,
			Headline:     item.Title,
			Threshold:    domain.FormatMoney(item.Threshold),
			TriggerPrice: domain.FormatMoney(item.TriggerPrice),
			Message:      item.Message,
			TriggeredAt:  item.TriggeredAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		}
	}

	sent := false
	for attempt := 1; attempt <= emailAttempts; attempt++ {
		if err := e.mailer.Send(user.Email, email.Subject(subjectSymbols), email.TextBody(digest), email.HTMLBody(digest)); err != nil {
			e.logger.Warn("email send failed", "user_id", userID, "attempt", attempt, "err", err)
			continue
		}
		sent = true
		break
	}

	var sentAt *time.Time
	if sent {
		t := e.now()
		sentAt = &t
	}

	for _, item := range included {
		alertID := item.AlertID
		notification := &domain.Notification{
			UserID:       userID,
			AlertID:      &alertID,
			Channel:      domain.ChannelEmail,
			Title:        item.Title,
			Message:      item.Message,
			Symbol:       item.Symbol,
			TriggerPrice: decimal.NewNullDecimal(item.TriggerPrice),
			Kind:         string(item.Kind),
			Threshold:    decimal.NewNullDecimal(item.Threshold),
			IsRead:       true,
			EmailSentAt:  sentAt,
		}
		if err := e.notifications.Create(ctx, notification); err != nil {
			e.logger.Error("failed to record email notification", "alert_id", item.AlertID, "err", err)
		}
	}
}
