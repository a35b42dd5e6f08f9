package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	platformredis "dwhmon/internal/platform/redis"
)

const cacheKey = "dwhmon:report:v1"

// Cache stores the last assembled report between runs. Implementations are
// fail-open: lookup errors count as misses and store errors are dropped.
type Cache interface {
	Get(ctx context.Context) (*Report, bool)
	Set(ctx context.Context, r *Report)
}

// RedisCache keeps the assembled report as a single JSON value with a TTL.
type RedisCache struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context) (*Report, bool) {
	payload, err := c.client.Client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var r Report
	if err := json.Unmarshal(payload, &r); err != nil {
		c.logger.Warn("decode cached report", "error", err)
		return nil, false
	}
	return &r, true
}

func (c *RedisCache) Set(ctx context.Context, r *Report) {
	payload, err := json.Marshal(r)
	if err != nil {
		c.logger.Error("encode report for cache", "error", err)
		return
	}
	if err := c.client.Client.Set(ctx, cacheKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("store report in cache", "error", err)
	}
}
