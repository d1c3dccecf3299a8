package models

import (
	"time"

	"github.com/copiqat-backend/internal/types"
	"github.com/shopspring/decimal"
)

// Asset represents a tradable symbol and its latest known price.
// Rows are written only by the price refresh job and seeding.
type Asset struct {
	ID           int64            `json:"id" db:"id"`
	Symbol       string           `json:"symbol" db:"symbol"`
	Name         string           `json:"name" db:"name"`
	Class        types.AssetClass `json:"assetType" db:"asset_class"`
	CurrentPrice *decimal.Decimal `json:"currentPrice" db:"current_price"`
	LastUpdated  time.Time        `json:"lastUpdated" db:"last_updated"`
}

// Trade represents a single position in the ledger. The entry price is
// snapshotted at open time and never changes; P/L is always derived.
type Trade struct {
	ID         int64             `json:"id" db:"id"`
	UserID     string            `json:"userId" db:"user_id"`
	Asset      string            `json:"asset" db:"asset"`
	Side       types.TradeSide   `json:"tradeType" db:"side"`
	Status     types.TradeStatus `json:"tradeStatus" db:"status"`
	EntryPrice decimal.Decimal   `json:"entryPrice" db:"entry_price"`
	Duration   string            `json:"duration" db:"duration"`
	CreatedAt  time.Time         `json:"createdAt" db:"created_at"`
}

// TradeValuation is a trade joined with the current asset price and the
// derived P/L figures, as served by the listing endpoint.
type TradeValuation struct {
	ID           int64             `json:"id"`
	Asset        string            `json:"asset"`
	Side         types.TradeSide   `json:"tradeType"`
	Status       types.TradeStatus `json:"tradeStatus"`
	EntryPrice   string            `json:"entryPrice"`
	CurrentPrice string            `json:"currentPrice"`
	PL           string            `json:"pl"`
	PLPercent    string            `json:"plPercent"`
	Duration     string            `json:"duration"`
	CreatedAt    time.Time         `json:"createdAt"`
}
