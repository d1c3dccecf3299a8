package service

import (
	"context"
	"strings"

	"github.com/copiqat-backend/internal/errors"
	"github.com/copiqat-backend/internal/logging"
	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/types"
)

// Repository interfaces for dependency injection

// TradeWriter interface for trade persistence
type TradeWriter interface {
	Create(ctx context.Context, trade *models.Trade) error
	Close(ctx context.Context, id int64, userID string) error
}

// AssetGetter interface for single-asset lookups
type AssetGetter interface {
	GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error)
}

// ListingInvalidator bumps a user's listing-cache generation after a write
type ListingInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// TradeService handles opening and closing positions. The entry price is
// snapshotted from the asset's stored price at open time and never changes
// afterwards; valuations compare it against whatever the price feed says
// later.
type TradeService struct {
	tradeRepo TradeWriter
	assetRepo AssetGetter
	cache     ListingInvalidator
	logger    *logging.Logger
}

// NewTradeService creates a new trade service
func NewTradeService(
	tradeRepo TradeWriter,
	assetRepo AssetGetter,
	cache ListingInvalidator,
	logger *logging.Logger,
) *TradeService {
	return &TradeService{
		tradeRepo: tradeRepo,
		assetRepo: assetRepo,
		cache:     cache,
		logger:    logger,
	}
}

// OpenTradeInput represents input for opening a position
type OpenTradeInput struct {
	Asset     string `json:"asset"`
	TradeType string `json:"tradeType"`
	Duration  string `json:"duration"`
}

// OpenTrade opens a position for the user. At most one open trade may
// exist per (user, asset, side); the uniqueness check and the insert are
// a single atomic statement, so two concurrent opens of the same
// position race down to exactly one winner.
func (s *TradeService) OpenTrade(ctx context.Context, userID string, input OpenTradeInput) (*models.Trade, error) {
	symbol := strings.TrimSpace(input.Asset)
	if symbol == "" {
		return nil, errors.NewValidationError("asset is required", nil)
	}

	side := types.TradeSide(strings.ToLower(strings.TrimSpace(input.TradeType)))
	if !side.Valid() {
		return nil, errors.NewValidationError("tradeType must be one of: buy, sell", map[string]interface{}{
			"tradeType": input.TradeType,
		})
	}

	asset, err := s.assetRepo.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, errors.Categorize(err, "resolve asset")
	}
	if asset.CurrentPrice == nil {
		return nil, errors.NewValidationError("asset has no price yet, try again shortly", map[string]interface{}{
			"asset": asset.Symbol,
		})
	}

	trade := &models.Trade{
		UserID:     userID,
		Asset:      asset.Symbol,
		Side:       side,
		Status:     types.StatusOpen,
		EntryPrice: *asset.CurrentPrice,
		Duration:   strings.TrimSpace(input.Duration),
	}

	if err := s.tradeRepo.Create(ctx, trade); err != nil {
		return nil, errors.Categorize(err, "open trade")
	}

	s.invalidateListing(ctx, userID)

	s.logger.WithFields(map[string]interface{}{
		"userID":     userID,
		"asset":      trade.Asset,
		"side":       trade.Side,
		"entryPrice": trade.EntryPrice.String(),
	}).Info("Trade opened")

	return trade, nil
}

// CloseTrade settles an open position. Closing is terminal: a second
// close of the same trade reports a conflict, not success.
func (s *TradeService) CloseTrade(ctx context.Context, userID string, tradeID int64) error {
	if err := s.tradeRepo.Close(ctx, tradeID, userID); err != nil {
		return errors.Categorize(err, "close trade")
	}

	s.invalidateListing(ctx, userID)

	s.logger.WithFields(map[string]interface{}{
		"userID":  userID,
		"tradeID": tradeID,
	}).Info("Trade closed")

	return nil
}

// invalidateListing bumps the user's cache generation. Failure here is
// logged and swallowed: cached listings expire on their own TTL, so the
// worst case is briefly stale reads, not a failed write.
func (s *TradeService) invalidateListing(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("userID", userID).Warn("Failed to invalidate listing cache")
	}
}
