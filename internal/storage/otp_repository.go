package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OTPRepository handles one-time-password token persistence
type OTPRepository struct {
	db *PostgresDB
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *PostgresDB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Replace deletes any unconsumed tokens for the user and purpose, then
// stores the new one. Only the latest issued token is ever redeemable.
func (r *OTPRepository) Replace(ctx context.Context, token *models.OTPToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	token.CreatedAt = time.Now()

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx,
		`DELETE FROM otp_tokens WHERE user_id = $1 AND purpose = $2 AND consumed = FALSE`,
		token.UserID, token.Purpose)
	if err != nil {
		return fmt.Errorf("failed to clear stale OTP tokens: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO otp_tokens (id, user_id, purpose, secret, consumed, created_at, expires_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)`,
		token.ID, token.UserID, token.Purpose, token.Secret, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to store OTP token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit OTP replacement: %w", err)
	}
	return nil
}

// LatestUnconsumed returns the newest unconsumed token for the user/purpose
func (r *OTPRepository) LatestUnconsumed(ctx context.Context, userID string, purpose types.OTPPurpose) (*models.OTPToken, error) {
	query := `
		SELECT id, user_id, purpose, secret, consumed, created_at, expires_at
		FROM otp_tokens
		WHERE user_id = $1 AND purpose = $2 AND consumed = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`

	var token models.OTPToken
	err := r.db.Pool().QueryRow(ctx, query, userID, purpose).Scan(
		&token.ID,
		&token.UserID,
		&token.Purpose,
		&token.Secret,
		&token.Consumed,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &types.ServiceError{Code: "OTP_NOT_FOUND", Message: "no valid OTP found"}
		}
		return nil, fmt.Errorf("failed to get OTP token: %w", err)
	}
	return &token, nil
}

// MarkConsumed flags a token as used
func (r *OTPRepository) MarkConsumed(ctx context.Context, tokenID string) error {
	result, err := r.db.Pool().Exec(ctx,
		`UPDATE otp_tokens SET consumed = TRUE WHERE id = $1`, tokenID)
	if err != nil {
		return fmt.Errorf("failed to consume OTP token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &types.ServiceError{Code: "OTP_NOT_FOUND", Message: "no valid OTP found"}
	}
	return nil
}
