package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLease(t *testing.T, ttl time.Duration) (*Lease, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLease(NewRedisCacheFromClient(client), "jobs:test:lease", ttl), mr
}

func TestLeaseMutualExclusion(t *testing.T) {
	lease, _ := setupTestLease(t, time.Minute)
	ctx := context.Background()

	release, acquired, err := lease.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	// A second holder is refused while the first is live
	_, acquired2, err := lease.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, acquired2)

	release()

	_, acquired3, err := lease.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired3)
}

func TestLeaseExpiresOnItsOwn(t *testing.T) {
	lease, mr := setupTestLease(t, time.Minute)
	ctx := context.Background()

	_, acquired, err := lease.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	// A crashed holder never releases; the TTL frees the lease
	mr.FastForward(61 * time.Second)

	_, acquired2, err := lease.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired2)
}

func TestStaleReleaseLeavesNewHolderAlone(t *testing.T) {
	lease, mr := setupTestLease(t, time.Minute)
	ctx := context.Background()

	staleRelease, acquired, err := lease.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	// The first holder's lease expires and someone else takes over
	mr.FastForward(61 * time.Second)
	_, acquired2, err := lease.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired2)

	// The stale release must not clear the new holder's lease
	staleRelease()

	_, acquired3, err := lease.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, acquired3)
}
