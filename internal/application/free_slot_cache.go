package application

import (
	"sync"
	"time"
)

// freeSlotCache remembers earliest-free-slot answers per requested duration
// until the timetable changes or the entry expires.
type freeSlotCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[int]freeSlotCacheEntry
}

type freeSlotCacheEntry struct {
	answer    string
	expiresAt time.Time
}

func newFreeSlotCache(ttl time.Duration, maxEntries int, now func() time.Time) *freeSlotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 32
	}
	if now == nil {
		now = time.Now
	}
	return &freeSlotCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[int]freeSlotCacheEntry),
	}
}

func (c *freeSlotCache) Get(hours int) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	entry, ok := c.entries[hours]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, hours)
		c.mu.Unlock()
		return "", false
	}
	return entry.answer, true
}

func (c *freeSlotCache) Store(hours int, answer string) {
	if c == nil {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[hours] = freeSlotCacheEntry{answer: answer, expiresAt: expiry}
}

func (c *freeSlotCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[int]freeSlotCacheEntry)
	c.mu.Unlock()
}

func (c *freeSlotCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *freeSlotCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}
