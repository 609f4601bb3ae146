package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

const alertColumns = `id, user_id, symbol, stock_name, alert_type, threshold_value,
	status, is_repeating, notify_email, notify_sms, notify_push, message,
	last_checked_at, triggered_at, trigger_price, created_at, updated_at`

var thresholdMax = decimal.NewFromInt(999999)

type AlertRepository struct {
	db          *DB
	logger      *slog.Logger
	maxPerUser  int
}

func NewAlertRepository(db *DB, maxPerUser int) *AlertRepository {
	return &AlertRepository{
		db:         db,
		logger:     slog.Default().With("component", "alert_repo"),
		maxPerUser: maxPerUser,
	}
}

func (r *AlertRepository) GetActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE status = $1`

	rows, err := r.db.QueryContext(ctx, query, domain.AlertStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

func (r *AlertRepository) GetActiveSymbols(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT symbol FROM alerts WHERE status = $1 ORDER BY symbol`

	rows, err := r.db.QueryContext(ctx, query, domain.AlertStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get active symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// CreateAlert validates the aggregate before inserting: symbol shape,
// threshold bounds, and the per-user cap. Invalid alerts are refused, not
// sanitized.
func (r *AlertRepository) CreateAlert(ctx context.Context, alert *domain.Alert) error {
	symbol, err := domain.ParseSymbol(alert.Symbol)
	if err != nil {
		return err
	}
	alert.Symbol = symbol.String()

	if !alert.Threshold.IsPositive() || alert.Threshold.GreaterThan(thresholdMax) {
		return fmt.Errorf("threshold %s out of range (0, 999999]", alert.Threshold)
	}

	var count int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE user_id = $1`, alert.UserID).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count user alerts: %w", err)
	}
	if r.maxPerUser > 0 && count >= r.maxPerUser {
		return fmt.Errorf("user %d reached the alert limit of %d", alert.UserID, r.maxPerUser)
	}

	if alert.Status == "" {
		alert.Status = domain.AlertStatusActive
	}

	query := `
		INSERT INTO alerts (
			user_id, symbol, stock_name, alert_type, threshold_value, status,
			is_repeating, notify_email, notify_sms, notify_push, message,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		alert.UserID, alert.Symbol, nullString(alert.StockName), alert.Type,
		alert.Threshold, alert.Status, alert.IsRepeating, alert.NotifyEmail,
		alert.NotifySMS, alert.NotifyPush, nullString(alert.Message),
	).Scan(&alert.ID)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (r *AlertRepository) MarkTriggered(ctx context.Context, id int64, price decimal.Decimal, at time.Time, final bool) error {
	status := domain.AlertStatusActive
	if final {
		status = domain.AlertStatusTriggered
	}

	query := `
		UPDATE alerts
		SET triggered_at = $1, trigger_price = $2, status = $3, updated_at = NOW()
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query, at, price, status, id)
	if err != nil {
		return fmt.Errorf("failed to mark alert %d triggered: %w", id, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("alert %d not found", id)
	}
	return nil
}

// TouchLastChecked bumps last_checked_at for every examined alert in one
// statement. The GREATEST keeps the column monotonic.
func (r *AlertRepository) TouchLastChecked(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE alerts
		SET last_checked_at = GREATEST(COALESCE(last_checked_at, to_timestamp(0)), $1)
		WHERE id = ANY($2)
	`
	if _, err := r.db.ExecContext(ctx, query, at, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to touch last_checked_at: %w", err)
	}
	return nil
}

func scanAlert(row interface{ Scan(...any) error }) (*domain.Alert, error) {
	a := &domain.Alert{}
	var (
		stockName   sql.NullString
		message     sql.NullString
		lastChecked sql.NullTime
		triggered   sql.NullTime
		updated     sql.NullTime
	)

	err := row.Scan(
		&a.ID, &a.UserID, &a.Symbol, &stockName, &a.Type, &a.Threshold,
		&a.Status, &a.IsRepeating, &a.NotifyEmail, &a.NotifySMS, &a.NotifyPush,
		&message, &lastChecked, &triggered, &a.TriggerPrice, &a.CreatedAt, &updated,
	)
	if err != nil {
		return nil, fmt.Errorf("alert scan error: %w", err)
	}

	a.StockName = stockName.String
	a.Message = message.String
	a.LastCheckedAt = timePtr(lastChecked)
	a.TriggeredAt = timePtr(triggered)
	if updated.Valid {
		a.UpdatedAt = updated.Time
	}
	return a, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
