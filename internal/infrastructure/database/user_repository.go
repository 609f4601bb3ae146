package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
	"github.com/romanzzaa/cortex-alerts/internal/infrastructure/crypto"
)

// UserRepository reads notification preferences and contact details. Phone
// numbers are stored encrypted; a nil encryptor leaves them blank on read.
type UserRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

func NewUserRepository(db *DB, encryptor *crypto.Encryptor) *UserRepository {
	return &UserRepository{
		db:        db,
		encryptor: encryptor,
		logger:    slog.Default().With("component", "user_repo"),
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, email, username, is_active, email_notifications,
			   sms_notifications, phone_number_enc, created_at
		FROM users
		WHERE id = $1
	`

	user := &domain.User{}
	var phoneEnc sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Username, &user.IsActive,
		&user.EmailNotifications, &user.SMSNotifications, &phoneEnc, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user scan error: %w", err)
	}

	if phoneEnc.Valid && r.encryptor != nil {
		phone, err := r.encryptor.Decrypt(phoneEnc.String)
		if err != nil {
			r.logger.Error("failed to decrypt phone number", "user_id", id, "err", err)
		} else {
			user.PhoneNumber = phone
		}
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id FROM users WHERE email = $1`
	var id int64
	err := r.db.QueryRowContext(ctx, query, email).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user lookup error: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	var phoneEnc sql.NullString
	if user.PhoneNumber != "" {
		if r.encryptor == nil {
			return fmt.Errorf("cannot store phone number without an encryption key")
		}
		enc, err := r.encryptor.Encrypt(user.PhoneNumber)
		if err != nil {
			return fmt.Errorf("failed to encrypt phone number: %w", err)
		}
		phoneEnc = sql.NullString{String: enc, Valid: true}
	}

	query := `
		INSERT INTO users (
			email, username, is_active, email_notifications, sms_notifications,
			phone_number_enc, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Username, user.IsActive, user.EmailNotifications,
		user.SMSNotifications, phoneEnc,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
