package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

const defaultKeyPrefix = "aftersales:analytics"

// generationTTL outlives any entry so an expired generation never resurrects
// stale entries.
const generationTTL = 7 * 24 * time.Hour

// RedisAnalyticsCache implements AnalyticsCache on Redis using per-tenant
// versioned keys.
type RedisAnalyticsCache struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// RedisAnalyticsCacheOption configures the cache.
type RedisAnalyticsCacheOption func(*RedisAnalyticsCache)

// WithKeyPrefix overrides the key namespace. Empty keeps the default.
func WithKeyPrefix(prefix string) RedisAnalyticsCacheOption {
	return func(c *RedisAnalyticsCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) RedisAnalyticsCacheOption {
	return func(c *RedisAnalyticsCache) {
		c.logger = logger
	}
}

// NewRedisAnalyticsCache wraps an existing client. The caller keeps ownership
// of the client.
func NewRedisAnalyticsCache(client redis.UniversalClient, opts ...RedisAnalyticsCacheOption) *RedisAnalyticsCache {
	c := &RedisAnalyticsCache{
		client: client,
		prefix: defaultKeyPrefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisAnalyticsCache) generationKey(tenantID string) string {
	return fmt.Sprintf("%s:gen:%s", c.prefix, tenantID)
}

func (c *RedisAnalyticsCache) entryKey(tenantID string, generation int64, key string) string {
	return fmt.Sprintf("%s:%s:%d:%s", c.prefix, tenantID, generation, key)
}

func (c *RedisAnalyticsCache) generation(ctx context.Context, tenantID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey(tenantID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get reads the entry of the tenant's current generation.
func (c *RedisAnalyticsCache) Get(ctx context.Context, tenantID, key string) (*domain.QualityAnalytics, error) {
	gen, err := c.generation(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("read cache generation: %w", err)
	}
	cacheKey := c.entryKey(tenantID, gen, key)
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("analytics cache miss", zap.String("key", cacheKey))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read analytics cache: %w", err)
	}

	var value domain.QualityAnalytics
	if err := json.Unmarshal(data, &value); err != nil {
		c.logger.Warn("dropping corrupt analytics cache entry", zap.String("key", cacheKey), zap.Error(err))
		_ = c.client.Del(ctx, cacheKey).Err()
		return nil, nil
	}
	return &value, nil
}

// Generation reads the tenant's current generation.
func (c *RedisAnalyticsCache) Generation(ctx context.Context, tenantID string) (int64, error) {
	gen, err := c.generation(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("read cache generation: %w", err)
	}
	return gen, nil
}

// Set writes value under generation while the generation key is watched. A
// concurrent Invalidate aborts the write.
func (c *RedisAnalyticsCache) Set(ctx context.Context, tenantID, key string, generation int64, value *domain.QualityAnalytics, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal analytics: %w", err)
	}

	genKey := c.generationKey(tenantID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if errors.Is(err, redis.Nil) {
			current, err = 0, nil
		}
		if err != nil {
			return err
		}
		if current != generation {
			c.logger.Debug("skipping stale analytics write",
				zap.String("tenant_id", tenantID),
				zap.Int64("loaded_generation", generation),
				zap.Int64("current_generation", current))
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.entryKey(tenantID, generation, key), data, ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("write analytics cache: %w", err)
	}
	return nil
}

// Invalidate bumps the tenant's generation. Old entries expire on their own.
func (c *RedisAnalyticsCache) Invalidate(ctx context.Context, tenantID string) error {
	genKey := c.generationKey(tenantID)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, generationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}
