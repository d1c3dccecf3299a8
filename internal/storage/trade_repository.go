package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TradeRepository handles trade ledger persistence
type TradeRepository struct {
	db *PostgresDB
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *PostgresDB) *TradeRepository {
	return &TradeRepository{db: db}
}

const uniqueViolationCode = "23505"

// Create inserts an open trade. The partial unique index on
// (user_id, asset, side) WHERE status = 'open' makes the duplicate-open
// check a single atomic conditional insert instead of read-then-write.
func (r *TradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	trade.Status = types.StatusOpen
	trade.CreatedAt = time.Now()

	query := `
		INSERT INTO trades (user_id, asset, side, status, entry_price, duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.Pool().QueryRow(ctx, query,
		trade.UserID,
		trade.Asset,
		trade.Side,
		trade.Status,
		trade.EntryPrice,
		trade.Duration,
		trade.CreatedAt,
	).Scan(&trade.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return &types.ServiceError{
				Code:    "DUPLICATE_OPEN_TRADE",
				Message: fmt.Sprintf("an open %s trade for %s already exists", trade.Side, trade.Asset),
			}
		}
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

// GetByIDAndUser retrieves a trade owned by the given user
func (r *TradeRepository) GetByIDAndUser(ctx context.Context, id int64, userID string) (*models.Trade, error) {
	query := `
		SELECT id, user_id, asset, side, status, entry_price, duration, created_at
		FROM trades
		WHERE id = $1 AND user_id = $2
	`

	var trade models.Trade
	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(
		&trade.ID,
		&trade.UserID,
		&trade.Asset,
		&trade.Side,
		&trade.Status,
		&trade.EntryPrice,
		&trade.Duration,
		&trade.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &types.ServiceError{Code: "TRADE_NOT_FOUND", Message: fmt.Sprintf("trade not found: %d", id)}
		}
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return &trade, nil
}

// Close transitions a trade from open to closed. The status predicate in the
// WHERE clause keeps the transition terminal: a second close affects zero
// rows and is reported as a conflict, never applied.
func (r *TradeRepository) Close(ctx context.Context, id int64, userID string) error {
	result, err := r.db.Pool().Exec(ctx, `
		UPDATE trades
		SET status = $3
		WHERE id = $1 AND user_id = $2 AND status = $4`,
		id, userID, types.StatusClosed, types.StatusOpen)
	if err != nil {
		return fmt.Errorf("failed to close trade: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish "already closed" from "not yours / does not exist"
		trade, getErr := r.GetByIDAndUser(ctx, id, userID)
		if getErr != nil {
			return getErr
		}
		if trade.Status == types.StatusClosed {
			return &types.ServiceError{Code: "TRADE_ALREADY_CLOSED", Message: "trade already closed"}
		}
		return fmt.Errorf("failed to close trade %d", id)
	}
	return nil
}

// ListByUser returns the user's trades newest first, optionally filtered by status
func (r *TradeRepository) ListByUser(ctx context.Context, userID string, status *types.TradeStatus) ([]*models.Trade, error) {
	query := `
		SELECT id, user_id, asset, side, status, entry_price, duration, created_at
		FROM trades
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
	`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.db.Pool().Query(ctx, query, userID, statusArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var trade models.Trade
		err := rows.Scan(
			&trade.ID,
			&trade.UserID,
			&trade.Asset,
			&trade.Side,
			&trade.Status,
			&trade.EntryPrice,
			&trade.Duration,
			&trade.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, &trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// CountOpenByUser counts the user's open trades
func (r *TradeRepository) CountOpenByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM trades WHERE user_id = $1 AND status = $2`,
		userID, types.StatusOpen).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open trades: %w", err)
	}
	return count, nil
}
