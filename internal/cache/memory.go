// Package cache provides the in-process Cache used when no shared cache
// backend is configured.
package cache

import (
	"context"
	"sync"

	"conferencecentral/internal/domain"
)

type memoryCache struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryCache returns a Cache held in process memory.
func NewMemoryCache() domain.Cache {
	return &memoryCache{items: make(map[string]string)}
}

func (c *memoryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	c.items[key] = value
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()
	return v, ok, nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}
