package memory

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"taskmanager/internal/core/port"
)

type cacheRepository struct {
	cache *cache.Cache
}

// NewCacheRepository returns a process-local cache. ttl is the default expiry
// used when Set is called with a zero ttl.
func NewCacheRepository(ttl time.Duration) port.CacheRepository {
	return &cacheRepository{cache: cache.New(ttl, 2*ttl)}
}

func (c *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = cache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
	return nil
}

func (c *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	v, found := c.cache.Get(key)
	if !found {
		return nil, nil
	}
	return v.([]byte), nil
}

func (c *cacheRepository) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

func (c *cacheRepository) DeleteByPrefix(ctx context.Context, prefix string) error {
	for key := range c.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
		}
	}
	return nil
}

func (c *cacheRepository) Close() error {
	c.cache.Flush()
	return nil
}

type noopCache struct{}

// NewNoopCache disables list caching.
func NewNoopCache() port.CacheRepository {
	return noopCache{}
}

func (noopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (noopCache) Get(ctx context.Context, key string) ([]byte, error)     { return nil, nil }
func (noopCache) Delete(ctx context.Context, key string) error            { return nil }
func (noopCache) DeleteByPrefix(ctx context.Context, prefix string) error { return nil }
func (noopCache) Close() error                                            { return nil }
