package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AssetRepository handles asset price persistence. Rows are written by the
// price refresh job and seeding; everything else only reads.
type AssetRepository struct {
	db *PostgresDB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *PostgresDB) *AssetRepository {
	return &AssetRepository{db: db}
}

// GetBySymbol retrieves an asset by its symbol
func (r *AssetRepository) GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error) {
	query := `
		SELECT id, symbol, name, asset_class, current_price, last_updated
		FROM assets
		WHERE symbol = $1
	`

	var asset models.Asset
	err := r.db.Pool().QueryRow(ctx, query, symbol).Scan(
		&asset.ID,
		&asset.Symbol,
		&asset.Name,
		&asset.Class,
		&asset.CurrentPrice,
		&asset.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &types.ServiceError{Code: "ASSET_NOT_FOUND", Message: fmt.Sprintf("asset not found: %s", symbol)}
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

// GetBySymbols retrieves assets for a set of symbols, keyed by symbol.
// Missing symbols are simply absent from the result.
func (r *AssetRepository) GetBySymbols(ctx context.Context, symbols []string) (map[string]*models.Asset, error) {
	result := make(map[string]*models.Asset, len(symbols))
	if len(symbols) == 0 {
		return result, nil
	}

	query := `
		SELECT id, symbol, name, asset_class, current_price, last_updated
		FROM assets
		WHERE symbol = ANY($1)
	`

	rows, err := r.db.Pool().Query(ctx, query, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to get assets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var asset models.Asset
		err := rows.Scan(
			&asset.ID,
			&asset.Symbol,
			&asset.Name,
			&asset.Class,
			&asset.CurrentPrice,
			&asset.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		result[asset.Symbol] = &asset
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return result, nil
}

// ListSymbols returns every tracked symbol
func (r *AssetRepository) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT symbol FROM assets ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}
	return symbols, nil
}

// UpsertPrice writes the latest price for a symbol, creating the asset row
// if it is not yet tracked. Symbol is the natural key.
func (r *AssetRepository) UpsertPrice(ctx context.Context, symbol string, price decimal.Decimal, updatedAt time.Time) error {
	query := `
		INSERT INTO assets (symbol, name, asset_class, current_price, last_updated)
		VALUES ($1, '', 'crypto', $2, $3)
		ON CONFLICT (symbol) DO UPDATE
		SET current_price = EXCLUDED.current_price,
		    last_updated = EXCLUDED.last_updated
	`
	_, err := r.db.Pool().Exec(ctx, query, symbol, price, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s: %w", symbol, err)
	}
	return nil
}

// UpsertMeta writes an asset's descriptive fields, used by seeding
func (r *AssetRepository) UpsertMeta(ctx context.Context, asset *models.Asset) error {
	query := `
		INSERT INTO assets (symbol, name, asset_class, current_price, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE
		SET name = EXCLUDED.name,
		    asset_class = EXCLUDED.asset_class
	`
	_, err := r.db.Pool().Exec(ctx, query,
		asset.Symbol, asset.Name, asset.Class, asset.CurrentPrice, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", asset.Symbol, err)
	}
	return nil
}
