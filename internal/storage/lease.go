package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lease is a TTL-bounded exclusive-access token backed by the shared cache.
// It serializes the price refresh job across instances: the scheduled run
// acquires the lease before doing any work and is a no-op if another run
// holds it. The TTL is the safety net for crash recovery; a holder that dies
// without releasing blocks other runs for at most the TTL.
type Lease struct {
	redis *RedisCache
	key   string
	ttl   time.Duration
}

// NewLease creates a lease on the given key
func NewLease(redis *RedisCache, key string, ttl time.Duration) *Lease {
	return &Lease{redis: redis, key: key, ttl: ttl}
}

// Acquire attempts to take the lease. On success it returns a release
// function that must be called (typically deferred) when the holder is done.
// Release only clears the lease if this holder still owns it, so an expired
// lease taken over by another run is never released out from under it.
func (l *Lease) Acquire(ctx context.Context) (release func(), acquired bool, err error) {
	token := uuid.New().String()

	ok, err := l.redis.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		// Best effort: compare the stored token before deleting so a
		// takeover after expiry is left alone.
		val, err := l.redis.Get(context.Background(), l.key)
		if err != nil || val != token {
			return
		}
		_ = l.redis.Del(context.Background(), l.key)
	}

	return release, true, nil
}
