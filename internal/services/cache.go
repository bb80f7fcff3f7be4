package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached views
	CacheKeyPrefix = "cache:"
	// DefaultCacheTTL applies when no TTL is configured
	DefaultCacheTTL = 10 * time.Minute

	// DashboardPath is the surface listing a user's entries.
	DashboardPath = "/dashboard"
)

// EntryPath is the detail surface of a single entry.
func EntryPath(entryID string) string {
	return "/journal/" + entryID
}

// ViewCache caches rendered views per user and surface. Each surface is a
// Redis hash whose fields are the view variants (list filters, detail), so
// invalidating a surface drops every variant at once.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ViewCache{client: client, ttl: ttl}
}

func viewKey(ownerID, path string) string {
	return CacheKeyPrefix + ownerID + ":" + path
}

// Get loads a cached variant of path into dest. A miss is (false, nil).
func (c *ViewCache) Get(ctx context.Context, ownerID, path, variant string, dest interface{}) (bool, error) {
	val, err := c.client.HGet(ctx, viewKey(ownerID, path), variant).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "read view cache")
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, errors.Wrap(err, "decode cached view")
	}
	return true, nil
}

// Set stores value as a variant of path and refreshes the surface TTL.
func (c *ViewCache) Set(ctx context.Context, ownerID, path, variant string, value interface{}) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}

	key := viewKey(ownerID, path)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, variant, jsonData)
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "write view cache")
}

// Invalidate drops every cached variant of path for ownerID.
func (c *ViewCache) Invalidate(ctx context.Context, ownerID, path string) error {
	return c.client.Del(ctx, viewKey(ownerID, path)).Err()
}
