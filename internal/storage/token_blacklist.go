package storage

import (
	"context"
	"fmt"
	"time"
)

// TokenBlacklist records revoked refresh tokens until their natural expiry.
// Logout blacklists the presented refresh token by its JWT ID.
type TokenBlacklist struct {
	redis *RedisCache
}

// NewTokenBlacklist creates a token blacklist backed by Redis
func NewTokenBlacklist(redis *RedisCache) *TokenBlacklist {
	return &TokenBlacklist{redis: redis}
}

func blacklistKey(jti string) string {
	return fmt.Sprintf("token:blacklist:%s", jti)
}

// Revoke marks a token ID as revoked until its expiry time
func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired, nothing to record
		return nil
	}
	if err := b.redis.Set(ctx, blacklistKey(jti), "revoked", ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token ID has been blacklisted
func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := b.redis.Exists(ctx, blacklistKey(jti))
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return exists, nil
}
