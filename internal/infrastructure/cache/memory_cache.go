package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the in-process TTL cache used when no Redis is configured.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates an in-process cache with the given default TTL.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

var _ ResponseCache = (*MemoryCache)(nil)

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := c.store.Get(key); ok {
		if b, ok := v.([]byte); ok {
			return b, true
		}
	}
	return nil, false
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

func (c *MemoryCache) Delete(ctx context.Context, key string) {
	c.store.Delete(key)
}

func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
}
