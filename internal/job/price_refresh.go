// Package job contains the background jobs and their cron wiring.
package job

import (
	"context"
	"time"

	"github.com/copiqat-backend/internal/circuitbreaker"
	"github.com/copiqat-backend/internal/logging"
	"github.com/copiqat-backend/internal/retry"
	"github.com/shopspring/decimal"
)

// QuoteFetcher fetches a batch of quotes from the external provider
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// AssetStore is the slice of asset persistence the job needs
type AssetStore interface {
	ListSymbols(ctx context.Context) ([]string, error)
	UpsertPrice(ctx context.Context, symbol string, price decimal.Decimal, updatedAt time.Time) error
}

// LeaseAcquirer guards the scheduled run against concurrent instances
type LeaseAcquirer interface {
	Acquire(ctx context.Context) (release func(), acquired bool, err error)
}

// PriceRefreshJob fetches prices for tracked symbols in batches and upserts
// them into the asset store. A batch that fails is logged and skipped; it
// never aborts the remaining batches, so a partial run leaves some symbols
// stale rather than failing the whole refresh.
type PriceRefreshJob struct {
	quotes     QuoteFetcher
	assets     AssetStore
	lease      LeaseAcquirer
	breaker    *circuitbreaker.CircuitBreaker
	batchSize  int
	batchDelay time.Duration
	retryCfg   *retry.Config
	logger     *logging.Logger
}

// NewPriceRefreshJob creates a price refresh job
func NewPriceRefreshJob(
	quotes QuoteFetcher,
	assets AssetStore,
	lease LeaseAcquirer,
	batchSize int,
	batchDelay time.Duration,
	logger *logging.Logger,
) *PriceRefreshJob {
	if batchSize < 1 {
		batchSize = 1
	}
	return &PriceRefreshJob{
		quotes:     quotes,
		assets:     assets,
		lease:      lease,
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig("quote-provider"), logger),
		batchSize:  batchSize,
		batchDelay: batchDelay,
		retryCfg:   retry.DefaultConfig(),
		logger:     logger,
	}
}

// RunScheduled is the cron entry point. It takes the shared lease before
// doing any work; when another run holds it, this invocation is a no-op
// with zero writes. The lease release is deferred so it survives a panic
// in the refresh path, and the lease TTL covers a crashed process.
func (j *PriceRefreshJob) RunScheduled(ctx context.Context) error {
	release, acquired, err := j.lease.Acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		j.logger.Info("Price refresh already in flight, skipping run")
		return nil
	}
	defer release()

	return retry.WithBackoff(ctx, j.retryCfg, func(ctx context.Context, attempt int) error {
		return j.Refresh(ctx, nil)
	})
}

// Refresh fetches and upserts prices for the given symbols, or for every
// tracked symbol when the list is nil.
func (j *PriceRefreshJob) Refresh(ctx context.Context, symbols []string) error {
	if symbols == nil {
		var err error
		symbols, err = j.assets.ListSymbols(ctx)
		if err != nil {
			return err
		}
	}
	if len(symbols) == 0 {
		j.logger.Warn("No symbols to refresh; seed assets or pass symbols explicitly")
		return nil
	}

	batches := (len(symbols) + j.batchSize - 1) / j.batchSize
	j.logger.WithFields(map[string]interface{}{
		"symbols":   len(symbols),
		"batches":   batches,
		"batchSize": j.batchSize,
	}).Info("Refreshing asset prices")

	for i := 0; i < len(symbols); i += j.batchSize {
		end := i + j.batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[i:end]

		j.refreshBatch(ctx, batch)

		// Respect the provider's rate limit between batches; no pause
		// after the final batch.
		if end < len(symbols) {
			select {
			case <-time.After(j.batchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	j.logger.Info("Asset price refresh completed")
	return nil
}

// refreshBatch fetches one batch and upserts what it could resolve.
// Failures here are contained: the batch is skipped and the run continues.
func (j *PriceRefreshJob) refreshBatch(ctx context.Context, batch []string) {
	now := time.Now()

	// The breaker stops us from burning through the provider's quota
	// while it is refusing requests.
	var prices map[string]decimal.Decimal
	err := j.breaker.Execute(ctx, func() error {
		var fetchErr error
		prices, fetchErr = j.quotes.FetchQuotes(ctx, batch)
		return fetchErr
	})
	if err != nil {
		j.logger.WithError(err).WithField("batch", batch).Error("Quote request failed for batch, skipping")
		return
	}

	for _, symbol := range batch {
		price, ok := prices[symbol]
		if !ok {
			j.logger.WithField("symbol", symbol).Warn("No usable quote for symbol, skipping")
			continue
		}
		if err := j.assets.UpsertPrice(ctx, symbol, price, now); err != nil {
			j.logger.WithError(err).WithField("symbol", symbol).Error("Failed to upsert price")
			continue
		}
		j.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"price":  price.String(),
		}).Debug("Updated asset price")
	}
}
