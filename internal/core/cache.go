package core

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const DefaultCacheTTL = time.Hour

// ResponseCache maps exact question strings to answers for a fixed ttl.
// It holds at most maxEntries answers; when full, expired entries are
// purged first and then the entry closest to expiry is dropped.
type ResponseCache struct {
	mu         sync.Mutex
	items      *gocache.Cache
	ttl        time.Duration
	maxEntries int
}

func NewResponseCache(ttl time.Duration, maxEntries int) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResponseCache{
		items:      gocache.New(ttl, 10*time.Minute),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

func (c *ResponseCache) Get(question string) (string, bool) {
	v, ok := c.items.Get(question)
	if !ok {
		// expired entries linger until the janitor runs
		c.items.Delete(question)
		return "", false
	}
	return v.(string), true
}

func (c *ResponseCache) Set(question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 {
		if _, exists := c.items.Get(question); !exists && c.items.ItemCount() >= c.maxEntries {
			c.evict()
		}
	}
	c.items.Set(question, answer, c.ttl)
}

func (c *ResponseCache) evict() {
	c.items.DeleteExpired()
	if c.items.ItemCount() < c.maxEntries {
		return
	}

	var oldestKey string
	var oldest int64
	found := false
	for k, item := range c.items.Items() {
		if !found || item.Expiration < oldest {
			oldestKey, oldest, found = k, item.Expiration, true
		}
	}
	if found {
		c.items.Delete(oldestKey)
	}
}

func (c *ResponseCache) Clear() {
	c.items.Flush()
}

func (c *ResponseCache) Len() int {
	return c.items.ItemCount()
}
