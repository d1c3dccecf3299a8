package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/types"
	"github.com/jackc/pgx/v5"
)

// VaultRepository handles vault persistence. Vault rows are created by
// UserRepository.Create; this repository only reads and updates them.
type VaultRepository struct {
	db *PostgresDB
}

// NewVaultRepository creates a new vault repository
func NewVaultRepository(db *PostgresDB) *VaultRepository {
	return &VaultRepository{db: db}
}

// GetByUser retrieves the vault for a user
func (r *VaultRepository) GetByUser(ctx context.Context, userID string) (*models.Vault, error) {
	query := `
		SELECT id, user_id, balance, earning, today, daily_pl, weekly_pl, monthly_pl, updated_at
		FROM vaults
		WHERE user_id = $1
	`

	var vault models.Vault
	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(
		&vault.ID,
		&vault.UserID,
		&vault.Balance,
		&vault.Earning,
		&vault.Today,
		&vault.DailyPL,
		&vault.WeeklyPL,
		&vault.MonthlyPL,
		&vault.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &types.ServiceError{Code: "VAULT_NOT_FOUND", Message: fmt.Sprintf("vault not found for user: %s", userID)}
		}
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}
	return &vault, nil
}
