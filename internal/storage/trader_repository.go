package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/copiqat-backend/internal/models"
)

// TraderRepository handles leaderboard persistence
type TraderRepository struct {
	db *PostgresDB
}

// NewTraderRepository creates a new trader repository
func NewTraderRepository(db *PostgresDB) *TraderRepository {
	return &TraderRepository{db: db}
}

// TraderQuery captures the leaderboard's filter/search/ordering parameters
type TraderQuery struct {
	Stars    *int
	Search   string
	Ordering []string
}

// Ordering is restricted to a whitelist; anything else is ignored so user
// input never reaches the ORDER BY clause directly.
var traderOrderColumns = map[string]string{
	"win_rate": "win_rate",
	"returns":  "returns",
	"copiers":  "copiers",
}

// ValidTraderOrderField reports whether an ordering param (with or
// without the leading "-" for descending) names a sortable column.
func ValidTraderOrderField(field string) bool {
	_, ok := traderOrderColumns[strings.TrimPrefix(field, "-")]
	return ok
}

func buildTraderOrderBy(ordering []string) string {
	var clauses []string
	for _, field := range ordering {
		direction := "ASC"
		name := field
		if strings.HasPrefix(field, "-") {
			direction = "DESC"
			name = field[1:]
		}
		column, ok := traderOrderColumns[name]
		if !ok {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s %s", column, direction))
	}
	if len(clauses) == 0 {
		clauses = []string{"win_rate DESC", "returns DESC", "copiers DESC"}
	}
	return strings.Join(clauses, ", ")
}

// List returns leaderboard entries matching the query
func (r *TraderRepository) List(ctx context.Context, q TraderQuery) ([]*models.Trader, error) {
	query := fmt.Sprintf(`
		SELECT id, stars, name, returns, win_rate, copiers
		FROM traders
		WHERE ($1::int IS NULL OR stars = $1)
		  AND ($2 = '' OR name ILIKE '%%' || $2 || '%%')
		ORDER BY %s
	`, buildTraderOrderBy(q.Ordering))

	rows, err := r.db.Pool().Query(ctx, query, q.Stars, q.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to list traders: %w", err)
	}
	defer rows.Close()

	var traders []*models.Trader
	for rows.Next() {
		var trader models.Trader
		err := rows.Scan(
			&trader.ID,
			&trader.Stars,
			&trader.Name,
			&trader.Returns,
			&trader.WinRate,
			&trader.Copiers,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trader: %w", err)
		}
		traders = append(traders, &trader)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating traders: %w", err)
	}
	return traders, nil
}

// Upsert writes a leaderboard entry by name, used by seeding
func (r *TraderRepository) Upsert(ctx context.Context, trader *models.Trader) error {
	query := `
		INSERT INTO traders (stars, name, returns, win_rate, copiers)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET stars = EXCLUDED.stars,
		    returns = EXCLUDED.returns,
		    win_rate = EXCLUDED.win_rate,
		    copiers = EXCLUDED.copiers
	`
	_, err := r.db.Pool().Exec(ctx, query,
		trader.Stars, trader.Name, trader.Returns, trader.WinRate, trader.Copiers)
	if err != nil {
		return fmt.Errorf("failed to upsert trader %s: %w", trader.Name, err)
	}
	return nil
}
