package plancache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/formforge/FormForge/internal/models"
)

// RedisCache backs the plan cache with Redis so multiple engine
// instances share first-batch plans. Failures degrade to cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis URL and verifies it with a ping.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	slog.Debug("RedisCache.NewRedisCache: connected", "ttl", ClampTTL(ttl))
	return &RedisCache{client: client, ttl: ClampTTL(ttl)}, nil
}

// Get returns the cached plan for a session.
func (c *RedisCache) Get(ctx context.Context, sessionID string) ([]models.FlowPlanItem, bool) {
	if sessionID == "" {
		return nil, false
	}
	data, err := c.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("RedisCache.Get: lookup failed, treating as miss", "error", err)
		}
		return nil, false
	}
	var items []models.FlowPlanItem
	if err := json.Unmarshal(data, &items); err != nil {
		slog.Warn("RedisCache.Get: corrupt cache entry, treating as miss", "error", err)
		return nil, false
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

// Set stores a session's plan with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, sessionID string, items []models.FlowPlanItem) {
	if sessionID == "" || len(items) == 0 {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.Warn("RedisCache.Set: marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+sessionID, data, c.ttl).Err(); err != nil {
		slog.Warn("RedisCache.Set: store failed", "error", err)
	}
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
