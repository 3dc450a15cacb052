package cache

import (
	"sync"
	"time"

	"github.com/yomite/threadsnap/internal/model"
)

// entry is one cached page with the time it was stored.
type entry struct {
	page     *model.ThreadPage
	storedAt time.Time
}

// PageCache maps page keys to the most recent successfully extracted page.
// All methods are safe for concurrent use.
type PageCache struct {
	mu      sync.Mutex
	entries map[model.PageKey]entry
}

// NewPageCache creates an empty page cache.
func NewPageCache() *PageCache {
	return &PageCache{entries: make(map[model.PageKey]entry)}
}

// Get returns the cached page for key if it was stored no longer than
// maxAge ago. An older entry is reported as a miss but left in place; the
// Put following a refetch overwrites it. A maxAge of zero or less makes
// every lookup a miss.
func (c *PageCache) Get(key model.PageKey, maxAge time.Duration) (*model.ThreadPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.storedAt) > maxAge {
		return nil, false
	}
	return e.page, true
}

// Put stores page under key with the current timestamp, unconditionally
// overwriting any prior entry.
func (c *PageCache) Put(key model.PageKey, page *model.ThreadPage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{page: page, storedAt: time.Now()}
}

// Len returns the number of entries currently held, expired ones included.
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
