package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/copiqat-backend/internal/errors"
	"github.com/copiqat-backend/internal/logging"
	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/storage"
	"github.com/copiqat-backend/internal/types"
	"github.com/shopspring/decimal"
)

// Repository interfaces for dependency injection

// TradeLister interface for reading a user's trades
type TradeLister interface {
	ListByUser(ctx context.Context, userID string, status *types.TradeStatus) ([]*models.Trade, error)
}

// AssetResolver interface for batch asset lookups
type AssetResolver interface {
	GetBySymbols(ctx context.Context, symbols []string) (map[string]*models.Asset, error)
}

// ValuationService computes the priced view of a user's trades: every
// trade annotated with the asset's current price, profit/loss, and
// profit/loss percentage. Listings are served from a per-user cache
// namespace so a write anywhere in the user's trade set invalidates
// every cached filter variant at once.
type ValuationService struct {
	tradeRepo TradeLister
	assetRepo AssetResolver
	cache     *storage.ListingCache
	logger    *logging.Logger
}

// NewValuationService creates a new valuation service
func NewValuationService(
	tradeRepo TradeLister,
	assetRepo AssetResolver,
	cache *storage.ListingCache,
	logger *logging.Logger,
) *ValuationService {
	return &ValuationService{
		tradeRepo: tradeRepo,
		assetRepo: assetRepo,
		cache:     cache,
		logger:    logger,
	}
}

// ComputePL returns the profit/loss of a position at the given current
// price. A long gains as the price rises, a short gains as it falls.
func ComputePL(side types.TradeSide, entry, current decimal.Decimal) decimal.Decimal {
	if side == types.SideSell {
		return entry.Sub(current)
	}
	return current.Sub(entry)
}

// ComputePLPercent returns the profit/loss as a percentage of the entry
// price. The ratio is undefined at a zero entry price; that case reports
// ok=false and callers render it as zero.
func ComputePLPercent(pl, entry decimal.Decimal) (decimal.Decimal, bool) {
	if entry.IsZero() {
		return decimal.Zero, false
	}
	return pl.Div(entry).Mul(decimal.NewFromInt(100)), true
}

// ListTrades returns the priced listing for a user, honoring an optional
// trade_status filter. The cache key embeds the user's invalidation
// generation, so a stale entry is simply never looked up again; cache
// trouble degrades to a recompute, never to an error.
func (s *ValuationService) ListTrades(ctx context.Context, userID string, query url.Values) ([]models.TradeValuation, error) {
	status, err := parseStatusFilter(query)
	if err != nil {
		return nil, err
	}

	// Only recognized filter params contribute to the cache key, so
	// requests that differ only in junk params share one entry.
	filterParams := url.Values{}
	if status != nil {
		filterParams.Set("trade_status", string(*status))
	}
	filter := storage.CanonicalFilter(filterParams)

	key := ""
	generation, err := s.cache.Generation(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read cache generation, recomputing listing")
	} else {
		key = s.cache.ListingKey(userID, generation, filter)
		var cached []models.TradeValuation
		hit, err := s.cache.GetListing(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Listing cache read failed, recomputing")
		} else if hit {
			return cached, nil
		}
	}

	listing, err := s.computeListing(ctx, userID, status)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := s.cache.SetListing(ctx, key, listing); err != nil {
			s.logger.WithError(err).Warn("Failed to cache trade listing")
		}
	}

	return listing, nil
}

// computeListing builds the priced listing from the database. Assets are
// resolved in one batch; a trade whose asset has no stored price is
// valued at its own entry price, which renders as zero profit/loss.
func (s *ValuationService) computeListing(ctx context.Context, userID string, status *types.TradeStatus) ([]models.TradeValuation, error) {
	trades, err := s.tradeRepo.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, errors.Categorize(err, "list trades")
	}

	assets, err := s.resolveAssets(ctx, trades)
	if err != nil {
		return nil, errors.Categorize(err, "resolve assets")
	}

	listing := make([]models.TradeValuation, 0, len(trades))
	for _, trade := range trades {
		current := trade.EntryPrice
		if asset, ok := assets[trade.Asset]; ok && asset.CurrentPrice != nil {
			current = *asset.CurrentPrice
		}

		pl := ComputePL(trade.Side, trade.EntryPrice, current)
		plPercent, defined := ComputePLPercent(pl, trade.EntryPrice)
		if !defined {
			plPercent = decimal.Zero
		}

		listing = append(listing, models.TradeValuation{
			ID:           trade.ID,
			Asset:        trade.Asset,
			Side:         trade.Side,
			Status:       trade.Status,
			EntryPrice:   trade.EntryPrice.StringFixed(2),
			CurrentPrice: current.StringFixed(2),
			PL:           pl.StringFixed(2),
			PLPercent:    plPercent.StringFixed(2),
			Duration:     trade.Duration,
			CreatedAt:    trade.CreatedAt,
		})
	}

	return listing, nil
}

func (s *ValuationService) resolveAssets(ctx context.Context, trades []*models.Trade) (map[string]*models.Asset, error) {
	if len(trades) == 0 {
		return map[string]*models.Asset{}, nil
	}

	seen := make(map[string]struct{}, len(trades))
	symbols := make([]string, 0, len(trades))
	for _, trade := range trades {
		if _, ok := seen[trade.Asset]; ok {
			continue
		}
		seen[trade.Asset] = struct{}{}
		symbols = append(symbols, trade.Asset)
	}

	return s.assetRepo.GetBySymbols(ctx, symbols)
}

// parseStatusFilter extracts the optional trade_status filter from the
// listing query. Matching is case-insensitive; an unknown status is a
// validation error rather than a silently empty listing.
func parseStatusFilter(query url.Values) (*types.TradeStatus, error) {
	raw := query.Get("trade_status")
	if raw == "" {
		return nil, nil
	}

	status := types.TradeStatus(strings.ToLower(raw))
	if !status.Valid() {
		return nil, errors.NewValidationError("trade_status must be one of: open, closed", map[string]interface{}{
			"trade_status": raw,
		})
	}
	return &status, nil
}
