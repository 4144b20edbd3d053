package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/diewo77/go-katalog/internal/logger"
	"github.com/diewo77/go-katalog/internal/metrics"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const categoriesKey = "katalog:categories"

// CategoryLister is the source of truth behind the cache.
type CategoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

// CategoryCache keeps the category list for ttl. With a Redis client the
// entry is shared between instances; otherwise it lives in process.
type CategoryCache struct {
	source  CategoryLister
	ttl     time.Duration
	rdb     *redis.Client
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.RWMutex
	cached  []models.Category
	expires time.Time
}

// NewCategoryCache wraps source. A ttl of zero disables caching; rdb may be nil.
func NewCategoryCache(source CategoryLister, ttl time.Duration, rdb *redis.Client, m *metrics.Metrics) *CategoryCache {
	return &CategoryCache{source: source, ttl: ttl, rdb: rdb, metrics: m, now: time.Now}
}

// Get returns the cached list or loads it from the source.
func (c *CategoryCache) Get(ctx context.Context) ([]models.Category, error) {
	if c.ttl <= 0 {
		return c.source.List(ctx)
	}
	if c.rdb != nil {
		return c.getShared(ctx)
	}

	c.mu.RLock()
	if c.cached != nil && c.now().Before(c.expires) {
		cats := c.cached
		c.mu.RUnlock()
		c.metrics.CacheLookup(true)
		return cats, nil
	}
	c.mu.RUnlock()
	c.metrics.CacheLookup(false)

	cats, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cached = cats
	c.expires = c.now().Add(c.ttl)
	c.mu.Unlock()
	return cats, nil
}

// getShared reads through Redis. Redis failures fall back to the source.
func (c *CategoryCache) getShared(ctx context.Context) ([]models.Category, error) {
	log := logger.FromContext(ctx)
	raw, err := c.rdb.Get(ctx, categoriesKey).Bytes()
	switch {
	case err == nil:
		var cats []models.Category
		if jerr := json.Unmarshal(raw, &cats); jerr == nil {
			c.metrics.CacheLookup(true)
			return cats, nil
		}
		log.Warn("discarding malformed category cache entry")
	case !errors.Is(err, redis.Nil):
		log.Warn("category cache read failed", zap.Error(err))
	}
	c.metrics.CacheLookup(false)

	cats, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(cats); err == nil {
		if err := c.rdb.Set(ctx, categoriesKey, b, c.ttl).Err(); err != nil {
			log.Warn("category cache write failed", zap.Error(err))
		}
	}
	return cats, nil
}

// Invalidate drops the cached list after a category write.
func (c *CategoryCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.cached = nil
	c.expires = time.Time{}
	c.mu.Unlock()
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, categoriesKey).Err(); err != nil {
			logger.FromContext(ctx).Warn("category cache invalidation failed", zap.Error(err))
		}
	}
}
