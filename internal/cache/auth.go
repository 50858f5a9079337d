package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/numberadder/numberadder/internal/auth"
)

const (
	// keyCachePrefix is the Redis key prefix for API-key resolutions.
	keyCachePrefix = "auth:key:"
	// revokedMarker is stored in place of a user id once a key hash is revoked.
	revokedMarker = "revoked"
)

var _ auth.KeyCache = (*Cache)(nil)

func keyCacheKey(keyHash string) string {
	return keyCachePrefix + keyHash
}

// decodeKeyEntry interprets a cached value.
func decodeKeyEntry(value string) (int64, auth.KeyCacheState) {
	if value == revokedMarker {
		return 0, auth.KeyCacheRevoked
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		// Corrupted cache entry - treat as miss
		return 0, auth.KeyCacheMiss
	}
	return id, auth.KeyCacheHit
}

// LookupKey returns the cached resolution for an API-key hash.
func (c *Cache) LookupKey(ctx context.Context, keyHash string) (int64, auth.KeyCacheState, error) {
	value, err := c.client.Get(ctx, keyCacheKey(keyHash)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, auth.KeyCacheMiss, nil
	}
	if err != nil {
		return 0, auth.KeyCacheMiss, fmt.Errorf("get key cache: %w", err)
	}
	id, state := decodeKeyEntry(value)
	return id, state, nil
}

// RememberKey caches a resolution unless an entry (including a revocation
// marker) already exists, so a late writer can never resurrect a revoked key.
func (c *Cache) RememberKey(ctx context.Context, keyHash string, userID int64) error {
	err := c.client.SetNX(ctx, keyCacheKey(keyHash), strconv.FormatInt(userID, 10), c.keyTTL).Err()
	if err != nil {
		return fmt.Errorf("set key cache: %w", err)
	}
	return nil
}

// ForgetKey replaces any cached resolution with a revocation marker.
func (c *Cache) ForgetKey(ctx context.Context, keyHash string) error {
	if err := c.client.Set(ctx, keyCacheKey(keyHash), revokedMarker, c.keyTTL).Err(); err != nil {
		return fmt.Errorf("invalidate key cache: %w", err)
	}
	return nil
}
