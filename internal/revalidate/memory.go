package revalidate

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	page      []byte
	expiresAt time.Time
}

// MemoryPageCache is a process local PageCache.
type MemoryPageCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

var _ PageCache = (*MemoryPageCache)(nil)

func NewMemoryPageCache() *MemoryPageCache {
	return &MemoryPageCache{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (c *MemoryPageCache) Get(_ context.Context, pagePath string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.items[CacheKey(pagePath)]
	if !found || !c.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	page := make([]byte, len(entry.page))
	copy(page, entry.page)
	return page, true, nil
}

func (c *MemoryPageCache) Set(_ context.Context, pagePath string, page []byte, ttl time.Duration) error {
	stored := make([]byte, len(page))
	copy(stored, page)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[CacheKey(pagePath)] = memoryEntry{page: stored, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryPageCache) Invalidate(_ context.Context, pagePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, CacheKey(pagePath))
	return nil
}

// Len returns the number of entries, expired ones included until the next sweep.
func (c *MemoryPageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Run sweeps expired entries every interval until ctx is done.
func (c *MemoryPageCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryPageCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.items {
		if !now.Before(entry.expiresAt) {
			delete(c.items, key)
		}
	}
}
