package filecache

import (
	"context"
	"sync"
)

// MemoryCache is the default map-backed Cache implementation.
type MemoryCache struct {
	mu      sync.RWMutex
	handles map[string]string
}

// NewMemoryCache returns an empty in-memory file handle cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{handles: make(map[string]string)}
}

// Get returns the cached handle for name, or "" when absent.
func (c *MemoryCache) Get(_ context.Context, name string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handles[name], nil
}

// Set stores the handle for name.
func (c *MemoryCache) Set(_ context.Context, name, fileID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles[name] = fileID
	return nil
}

// Invalidate removes the cached handle for name.
func (c *MemoryCache) Invalidate(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handles, name)
	return nil
}
