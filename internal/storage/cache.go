package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ListingCache caches computed trade listings per (user, filter) under a
// per-user generation counter. Any ledger write for a user bumps the
// generation, which orphans every cached listing for that user at once;
// orphaned entries fall off via their TTL. This makes invalidation total
// instead of an enumerated list of known filter keys.
type ListingCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewListingCache creates a listing cache with the given entry TTL
func NewListingCache(redis *RedisCache, ttl time.Duration) *ListingCache {
	return &ListingCache{redis: redis, ttl: ttl}
}

func generationKey(userID string) string {
	return fmt.Sprintf("trades:%s:gen", userID)
}

// Generation returns the user's current cache generation (0 if never bumped)
func (c *ListingCache) Generation(ctx context.Context, userID string) (int64, error) {
	val, err := c.redis.Get(ctx, generationKey(userID))
	if err != nil {
		if IsNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}

	var gen int64
	if _, err := fmt.Sscanf(val, "%d", &gen); err != nil {
		return 0, nil
	}
	return gen, nil
}

// Invalidate bumps the user's generation, orphaning all cached listings
func (c *ListingCache) Invalidate(ctx context.Context, userID string) error {
	if _, err := c.redis.Incr(ctx, generationKey(userID)); err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return nil
}

// ListingKey builds the cache key for a user, generation and canonical filter
func (c *ListingCache) ListingKey(userID string, generation int64, filter string) string {
	return fmt.Sprintf("trades:%s:g%d:%s", userID, generation, filter)
}

// CanonicalFilter normalizes a raw query into a stable cache key suffix.
// Parameters are sorted and lower-cased so equivalent queries share an entry.
func CanonicalFilter(query url.Values) string {
	if len(query) == 0 {
		return "all"
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", strings.ToLower(k), strings.ToLower(query.Get(k))))
	}
	return strings.Join(parts, "&")
}

// GetListing fetches a cached listing; found is false on a miss
func (c *ListingCache) GetListing(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := c.redis.Get(ctx, key)
	if err != nil {
		if IsNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read cached listing: %w", err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		// A corrupt entry behaves like a miss; it will be overwritten
		return false, nil
	}
	return true, nil
}

// SetListing stores a computed listing with the configured TTL
func (c *ListingCache) SetListing(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, c.ttl); err != nil {
		return fmt.Errorf("failed to store cached listing: %w", err)
	}
	return nil
}
