package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/copiqat-backend/internal/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fakes for the job's collaborators

type fakeQuoteFetcher struct {
	mu      sync.Mutex
	batches [][]string
	prices  map[string]decimal.Decimal
	failFor map[string]bool // fail any batch containing this symbol
}

func (f *fakeQuoteFetcher) FetchQuotes(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches = append(f.batches, symbols)
	for _, s := range symbols {
		if f.failFor[s] {
			return nil, errors.New("provider unavailable")
		}
	}

	result := make(map[string]decimal.Decimal)
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			result[s] = p
		}
	}
	return result, nil
}

type fakeAssetStore struct {
	mu       sync.Mutex
	symbols  []string
	upserted map[string]decimal.Decimal
}

func (f *fakeAssetStore) ListSymbols(ctx context.Context) ([]string, error) {
	return f.symbols, nil
}

func (f *fakeAssetStore) UpsertPrice(ctx context.Context, symbol string, price decimal.Decimal, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upserted == nil {
		f.upserted = make(map[string]decimal.Decimal)
	}
	f.upserted[symbol] = price
	return nil
}

type fakeLease struct {
	held     bool
	acquires int
}

func (f *fakeLease) Acquire(ctx context.Context) (func(), bool, error) {
	f.acquires++
	if f.held {
		return nil, false, nil
	}
	f.held = true
	return func() { f.held = false }, true, nil
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, logging.FormatText)
}

func TestRefreshBatches(t *testing.T) {
	fetcher := &fakeQuoteFetcher{
		prices: map[string]decimal.Decimal{
			"A": decimal.NewFromInt(1),
			"B": decimal.NewFromInt(2),
			"C": decimal.NewFromInt(3),
			"D": decimal.NewFromInt(4),
			"E": decimal.NewFromInt(5),
		},
	}
	store := &fakeAssetStore{symbols: []string{"A", "B", "C", "D", "E"}}
	job := NewPriceRefreshJob(fetcher, store, &fakeLease{}, 2, 0, testLogger())

	require.NoError(t, job.Refresh(context.Background(), nil))

	// 5 symbols at batch size 2 means 3 requests
	require.Len(t, fetcher.batches, 3)
	assert.Equal(t, []string{"A", "B"}, fetcher.batches[0])
	assert.Equal(t, []string{"E"}, fetcher.batches[2])
	assert.Len(t, store.upserted, 5)
}

func TestRefreshFailedBatchDoesNotAbortRun(t *testing.T) {
	fetcher := &fakeQuoteFetcher{
		prices: map[string]decimal.Decimal{
			"A": decimal.NewFromInt(1),
			"C": decimal.NewFromInt(3),
		},
		failFor: map[string]bool{"B": true},
	}
	store := &fakeAssetStore{symbols: []string{"A", "B", "C"}}
	job := NewPriceRefreshJob(fetcher, store, &fakeLease{}, 1, 0, testLogger())

	require.NoError(t, job.Refresh(context.Background(), nil))

	// The failed batch is skipped, the rest still land
	assert.Contains(t, store.upserted, "A")
	assert.Contains(t, store.upserted, "C")
	assert.NotContains(t, store.upserted, "B")
}

func TestRefreshSkipsSymbolsWithoutQuotes(t *testing.T) {
	fetcher := &fakeQuoteFetcher{
		prices: map[string]decimal.Decimal{"A": decimal.NewFromInt(1)},
	}
	store := &fakeAssetStore{symbols: []string{"A", "MISSING"}}
	job := NewPriceRefreshJob(fetcher, store, &fakeLease{}, 10, 0, testLogger())

	require.NoError(t, job.Refresh(context.Background(), nil))

	assert.Len(t, store.upserted, 1)
	assert.Contains(t, store.upserted, "A")
}

func TestRunScheduledIsNoOpWhenLeaseHeld(t *testing.T) {
	fetcher := &fakeQuoteFetcher{prices: map[string]decimal.Decimal{"A": decimal.NewFromInt(1)}}
	store := &fakeAssetStore{symbols: []string{"A"}}
	lease := &fakeLease{held: true}
	job := NewPriceRefreshJob(fetcher, store, lease, 10, 0, testLogger())

	require.NoError(t, job.RunScheduled(context.Background()))

	// No fetches, no writes: the other holder owns this run
	assert.Empty(t, fetcher.batches)
	assert.Empty(t, store.upserted)
}

func TestRunScheduledReleasesLease(t *testing.T) {
	fetcher := &fakeQuoteFetcher{prices: map[string]decimal.Decimal{"A": decimal.NewFromInt(1)}}
	store := &fakeAssetStore{symbols: []string{"A"}}
	lease := &fakeLease{}
	job := NewPriceRefreshJob(fetcher, store, lease, 10, 0, testLogger())

	require.NoError(t, job.RunScheduled(context.Background()))
	require.NoError(t, job.RunScheduled(context.Background()))

	// Both runs acquired: the first release freed the lease
	assert.Equal(t, 2, len(fetcher.batches))
}
