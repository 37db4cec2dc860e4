// Package cache provides a Redis-backed cache for the case catalog listing.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/config"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
)

const catalogKey = "cases:catalog:active"

// CatalogCache stores the active catalog listing shown to visitors.
// Draws never read from it.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient connects to Redis. It returns nil when no address is configured.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("Successfully connected to Redis")
	return client, nil
}

// NewCatalogCache creates a catalog cache. A nil client yields a cache
// that always misses.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

// Get returns the cached catalog. ok is false on a miss.
func (c *CatalogCache) Get(ctx context.Context) (items []model.CatalogItem, ok bool, err error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}

	raw, err := c.client.Get(ctx, catalogKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached catalog: %w", err)
	}

	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached catalog: %w", err)
	}
	return items, true, nil
}

// Set stores the catalog for the configured TTL.
func (c *CatalogCache) Set(ctx context.Context, items []model.CatalogItem) error {
	if c == nil || c.client == nil {
		return nil
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := c.client.Set(ctx, catalogKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache catalog: %w", err)
	}
	return nil
}

// Invalidate drops the cached catalog.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}
