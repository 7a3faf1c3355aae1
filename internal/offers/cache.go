package offers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores normalized per-proposal catalogs in Redis as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a catalog cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func catalogKey(proposalID string) string {
	return "offers:catalog:" + proposalID
}

// Get loads a cached catalog. It reports whether the key existed.
func (c *Cache) Get(ctx context.Context, proposalID string) (Catalog, bool, error) {
	var cat Catalog
	if c == nil || c.client == nil || proposalID == "" {
		return cat, false, nil
	}
	data, err := c.client.Get(ctx, catalogKey(proposalID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return cat, false, nil
		}
		return cat, false, err
	}
	if err := json.Unmarshal(data, &cat); err != nil {
		return Catalog{}, false, err
	}
	return cat, true, nil
}

// Set stores a catalog with the configured TTL.
func (c *Cache) Set(ctx context.Context, proposalID string, cat Catalog) error {
	if c == nil || c.client == nil || proposalID == "" || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(cat)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey(proposalID), data, c.ttl).Err()
}

// Invalidate drops the cached catalog for a proposal.
func (c *Cache) Invalidate(ctx context.Context, proposalID string) error {
	if c == nil || c.client == nil || proposalID == "" {
		return nil
	}
	return c.client.Del(ctx, catalogKey(proposalID)).Err()
}
