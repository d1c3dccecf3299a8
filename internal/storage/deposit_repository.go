package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/copiqat-backend/internal/models"
)

// DepositRepository handles deposit proof persistence
type DepositRepository struct {
	db *PostgresDB
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(db *PostgresDB) *DepositRepository {
	return &DepositRepository{db: db}
}

// Create records a submitted deposit proof
func (r *DepositRepository) Create(ctx context.Context, deposit *models.Deposit) error {
	deposit.CreatedAt = time.Now()

	query := `
		INSERT INTO deposits (user_id, receipt_path, content_type, size_bytes, is_approved, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		RETURNING id
	`
	err := r.db.Pool().QueryRow(ctx, query,
		deposit.UserID,
		deposit.ReceiptPath,
		deposit.ContentType,
		deposit.SizeBytes,
		deposit.CreatedAt,
	).Scan(&deposit.ID)
	if err != nil {
		return fmt.Errorf("failed to create deposit: %w", err)
	}
	return nil
}

// ListAll returns every deposit newest first; staff-only surface
func (r *DepositRepository) ListAll(ctx context.Context) ([]*models.Deposit, error) {
	query := `
		SELECT id, user_id, receipt_path, content_type, size_bytes, is_approved, created_at
		FROM deposits
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	var deposits []*models.Deposit
	for rows.Next() {
		var deposit models.Deposit
		err := rows.Scan(
			&deposit.ID,
			&deposit.UserID,
			&deposit.ReceiptPath,
			&deposit.ContentType,
			&deposit.SizeBytes,
			&deposit.IsApproved,
			&deposit.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, &deposit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposits: %w", err)
	}
	return deposits, nil
}
