package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CatalogCache fronts catalog reads whose payload goes stale whenever stock
// changes. Invalidate is O(1): it bumps a version counter baked into every
// key instead of scanning for keys to delete.
type CatalogCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
	Invalidate(ctx context.Context) error
}

const versionKey = "catalog:version"

type redisCatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCatalogCache(rdb *redis.Client, ttl time.Duration) CatalogCache {
	return &redisCatalogCache{rdb: rdb, ttl: ttl}
}

func (c *redisCatalogCache) versionedKey(ctx context.Context, key string) (string, error) {
	version, err := c.rdb.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("catalog:v%d:%s", version, key), nil
}

// Get returns the cached payload, or false on miss. Redis being down reads
// as a miss so the caller falls through to the database.
func (c *redisCatalogCache) Get(ctx context.Context, key string) ([]byte, bool) {
	vk, err := c.versionedKey(ctx, key)
	if err != nil {
		return nil, false
	}
	payload, err := c.rdb.Get(ctx, vk).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (c *redisCatalogCache) Set(ctx context.Context, key string, payload []byte) {
	vk, err := c.versionedKey(ctx, key)
	if err != nil {
		return
	}
	// best effort; a failed Set just means the next read misses
	c.rdb.Set(ctx, vk, payload, c.ttl)
}

func (c *redisCatalogCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, versionKey).Err()
}

// Disabled is used when no Redis address is configured: every read misses
// and invalidation is a no-op.
type Disabled struct{}

func (Disabled) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }
func (Disabled) Set(ctx context.Context, key string, payload []byte) {}
func (Disabled) Invalidate(ctx context.Context) error               { return nil }
