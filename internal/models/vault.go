package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vault is the per-user balance/earnings ledger, one-to-one with a user.
// It is created automatically when the user is created.
type Vault struct {
	ID        int64           `json:"id" db:"id"`
	UserID    string          `json:"userId" db:"user_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Earning   decimal.Decimal `json:"earning" db:"earning"`
	Today     decimal.Decimal `json:"today" db:"today"`
	DailyPL   decimal.Decimal `json:"dailyPl" db:"daily_pl"`
	WeeklyPL  decimal.Decimal `json:"weeklyPl" db:"weekly_pl"`
	MonthlyPL decimal.Decimal `json:"monthlyPl" db:"monthly_pl"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// Deposit records a user-submitted deposit proof awaiting staff approval
type Deposit struct {
	ID          int64     `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	ReceiptPath string    `json:"receipt" db:"receipt_path"`
	ContentType string    `json:"contentType" db:"content_type"`
	SizeBytes   int64     `json:"sizeBytes" db:"size_bytes"`
	IsApproved  bool      `json:"isApproved" db:"is_approved"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Trader is a leaderboard entry for a copyable trader
type Trader struct {
	ID      int64           `json:"id" db:"id"`
	Stars   int             `json:"stars" db:"stars"`
	Name    string          `json:"name" db:"name"`
	Returns decimal.Decimal `json:"returns" db:"returns"`
	WinRate decimal.Decimal `json:"winRate" db:"win_rate"`
	Copiers int64           `json:"copiers" db:"copiers"`
}
