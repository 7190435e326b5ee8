package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/nebari-dev/promptlib/internal/models"
)

type memoryEntry struct {
	libs    []models.PromptLibrary
	expires time.Time
}

// MemoryCache is a process-local Cache with per-entry expiry.
// A janitor goroutine sweeps expired entries until Close is called.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[uint]memoryEntry
	gen     uint64
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache creates a MemoryCache and starts its janitor.
func NewMemoryCache(ttl, sweepInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[uint]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.janitor(sweepInterval)
	return c
}

func (c *MemoryCache) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, id)
		}
	}
}

// Get returns a copy of the cached slice.
func (c *MemoryCache) Get(_ context.Context, workspaceID uint) ([]models.PromptLibrary, bool) {
	c.mu.RLock()
	e, ok := c.entries[workspaceID]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return append([]models.PromptLibrary(nil), e.libs...), true
}

func (c *MemoryCache) Epoch(context.Context) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return strconv.FormatUint(c.gen, 10)
}

// Set stores libs unless Invalidate has run since epoch was taken.
func (c *MemoryCache) Set(_ context.Context, epoch string, workspaceID uint, libs []models.PromptLibrary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != strconv.FormatUint(c.gen, 10) {
		return
	}
	c.entries[workspaceID] = memoryEntry{
		libs:    append([]models.PromptLibrary(nil), libs...),
		expires: c.now().Add(c.ttl),
	}
}

func (c *MemoryCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[uint]memoryEntry)
}

// Len reports the number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor and waits for it to exit. Safe to call twice.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
	return nil
}
