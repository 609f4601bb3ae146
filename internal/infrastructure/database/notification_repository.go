package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

type NotificationRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: slog.Default().With("component", "notification_repo"),
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (
			user_id, alert_id, channel, title, message, symbol,
			trigger_price, alert_type, threshold_value, is_read, email_sent_at,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id, created_at
	`

	var alertID sql.NullInt64
	if n.AlertID != nil {
		alertID = sql.NullInt64{Int64: *n.AlertID, Valid: true}
	}
	var emailSentAt sql.NullTime
	if n.EmailSentAt != nil {
		emailSentAt = sql.NullTime{Time: *n.EmailSentAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		n.UserID, alertID, n.Channel, n.Title, nullString(n.Message), n.Symbol,
		n.TriggerPrice, nullString(n.Kind), n.Threshold, n.IsRead, emailSentAt,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}
