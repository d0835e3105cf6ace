package bundlestore

import (
	"context"
	"sync"
	"time"

	"github.com/i18nhub/translation-migrator/pkg/bundle"
	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// cacheEntry holds cached bundle bytes with expiry and insertion order.
type cacheEntry struct {
	data       []byte
	expiresAt  time.Time
	insertedAt time.Time
}

// CachingStore wraps a Store with a bounded in-memory byte cache for Fetch,
// so a preview followed by an apply reads the remote object once. Bundles
// are immutable artifacts; the TTL only bounds memory held for bundles that
// are never applied. Listing always passes through.
type CachingStore struct {
	inner   Store
	mu      sync.Mutex
	items   map[string]*cacheEntry
	maxSize int
	ttl     time.Duration
}

// NewCachingStore wraps inner with a cache of at most maxSize bundles,
// each kept for ttl.
func NewCachingStore(inner Store, maxSize int, ttl time.Duration) *CachingStore {
	if maxSize < 1 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachingStore{
		inner:   inner,
		items:   make(map[string]*cacheEntry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// ListManifests implements Store by delegating to the wrapped store.
func (c *CachingStore) ListManifests(ctx context.Context, tag interfaces.Tag) ([]*bundle.Manifest, error) {
	return c.inner.ListManifests(ctx, tag)
}

// Fetch implements Store, serving from cache when possible.
func (c *CachingStore) Fetch(ctx context.Context, tag interfaces.Tag, filename string) ([]byte, error) {
	key := objectKey(tag, filename)

	c.mu.Lock()
	if e, ok := c.items[key]; ok {
		if time.Now().Before(e.expiresAt) {
			data := make([]byte, len(e.data))
			copy(data, e.data)
			c.mu.Unlock()
			return data, nil
		}
		delete(c.items, key)
	}
	c.mu.Unlock()

	data, err := c.inner.Fetch(ctx, tag, filename)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.items) >= c.maxSize {
		c.evictOldest()
	}
	now := time.Now()
	stored := make([]byte, len(data))
	copy(stored, data)
	c.items[key] = &cacheEntry{data: stored, expiresAt: now.Add(c.ttl), insertedAt: now}
	c.mu.Unlock()

	return data, nil
}

func (c *CachingStore) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.items {
		if oldestKey == "" || e.insertedAt.Before(oldest) {
			oldestKey = k
			oldest = e.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
