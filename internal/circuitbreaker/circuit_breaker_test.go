package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/copiqat-backend/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProvider = errors.New("provider down")

func newTestBreaker(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return New(&Config{
		Name:             "test",
		MaxFailures:      maxFailures,
		Timeout:          timeout,
		HalfOpenMaxCalls: 1,
	}, logging.NewLogger(logging.LevelError, logging.FormatText))
}

func failing() error { return errProvider }
func succeeding() error { return nil }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, failing)
		assert.ErrorIs(t, err, errProvider)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	// Calls are now refused without invoking fn
	called := false
	err := cb.Execute(ctx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Error(t, cb.Execute(ctx, failing))
	require.NoError(t, cb.Execute(ctx, succeeding))
	require.Error(t, cb.Execute(ctx, failing))
	require.Error(t, cb.Execute(ctx, failing))

	// Two fails, a success, two fails: never three in a row
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := newTestBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	// First probe succeeds and closes the circuit
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	cb := newTestBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	time.Sleep(20 * time.Millisecond)

	require.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestBreakerManualReset(t *testing.T) {
	cb := newTestBreaker(1, time.Minute)

	require.Error(t, cb.Execute(context.Background(), failing))
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(context.Background(), succeeding))
}
