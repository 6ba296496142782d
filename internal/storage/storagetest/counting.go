package storagetest

import (
	"context"
	"strings"
	"sync"

	"github.com/keshon/bvault/internal/storage"
)

// Counting wraps a Backend and counts writes and deletes by key.
type Counting struct {
	storage.Backend

	mu      sync.Mutex
	stores  map[string]int
	deletes int
}

// NewCounting wraps b.
func NewCounting(b storage.Backend) *Counting {
	return &Counting{Backend: b, stores: make(map[string]int)}
}

func (c *Counting) Store(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.stores[key]++
	c.mu.Unlock()
	return c.Backend.Store(ctx, key, value)
}

func (c *Counting) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.Backend.Delete(ctx, key)
}

// Stores returns how often key was written.
func (c *Counting) Stores(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stores[key]
}

// Writes returns the number of writes to keys starting with prefix.
func (c *Counting) Writes(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, v := range c.stores {
		if strings.HasPrefix(k, prefix) {
			n += v
		}
	}
	return n
}

// Deletes returns the number of Delete calls.
func (c *Counting) Deletes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

// Reset clears all counters.
func (c *Counting) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores = make(map[string]int)
	c.deletes = 0
}
