// internal/cache/entitlement_cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"paywall-service/internal/domain/entitlement"

	"github.com/redis/go-redis/v9"
)

// minGenerationTTL keeps a user's generation counter well past any in-flight
// read, so a counter never resets underneath a reader holding its old value.
const minGenerationTTL = 24 * time.Hour

// setIfGeneration writes the list only while the user's generation is still
// the one the reader saw before loading from the database.
// KEYS[1] generation, KEYS[2] list; ARGV[1] generation, ARGV[2] payload, ARGV[3] ttl ms.
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if (current or '0') ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// EntitlementCache keeps each user's full entitlement list in Redis.
// Entitlements never change after insert, so the list only goes stale when a
// new grant lands. Every invalidation bumps a per-user generation, and a list
// loaded under an older generation is never written back.
type EntitlementCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewEntitlementCache(client redis.Cmdable, ttl time.Duration) *EntitlementCache {
	return &EntitlementCache{client: client, ttl: ttl}
}

// Both keys share a hash tag so they live in one cluster slot.
func entitlementsKey(userID int64) string {
	return fmt.Sprintf("entitlements:{user:%d}", userID)
}

func generationKey(userID int64) string {
	return fmt.Sprintf("entitlements:{user:%d}:gen", userID)
}

// Get returns the cached list and whether it was present.
func (c *EntitlementCache) Get(ctx context.Context, userID int64) ([]entitlement.Entitlement, bool, error) {
	data, err := c.client.Get(ctx, entitlementsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read entitlement cache: %w", err)
	}

	var ents []entitlement.Entitlement
	if err := json.Unmarshal(data, &ents); err != nil {
		return nil, false, fmt.Errorf("failed to decode entitlement cache: %w", err)
	}
	return ents, true, nil
}

// Generation returns the user's current generation. Readers take it before
// loading from the database and hand it back to SetIfGeneration.
func (c *EntitlementCache) Generation(ctx context.Context, userID int64) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read entitlement generation: %w", err)
	}
	return gen, nil
}

// SetIfGeneration stores ents unless the user was invalidated after gen was
// read. It reports whether the list was stored.
func (c *EntitlementCache) SetIfGeneration(ctx context.Context, userID, gen int64, ents []entitlement.Entitlement) (bool, error) {
	if ents == nil {
		ents = []entitlement.Entitlement{}
	}
	data, err := json.Marshal(ents)
	if err != nil {
		return false, fmt.Errorf("failed to encode entitlement cache: %w", err)
	}

	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{generationKey(userID), entitlementsKey(userID)},
		strconv.FormatInt(gen, 10), data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to write entitlement cache: %w", err)
	}
	return stored == 1, nil
}

// Invalidate bumps the user's generation and drops the cached list in one
// MULTI, so no reader that started earlier can put the old list back.
func (c *EntitlementCache) Invalidate(ctx context.Context, userID int64) error {
	genKey := generationKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, max(minGenerationTTL, 2*c.ttl))
		pipe.Del(ctx, entitlementsKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate entitlement cache: %w", err)
	}
	return nil
}
