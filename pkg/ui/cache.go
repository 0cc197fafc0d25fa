package ui

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache compiles each distinct template source once. Concurrent requests
// for the same source share a single compilation. A Cache is safe for
// concurrent use.
type Cache struct {
	mu        sync.RWMutex
	templates map[string]*Template
	group     singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		templates: make(map[string]*Template),
	}
}

// Get returns the compiled template for src, compiling it on first use.
// Sources that fail to compile are not cached.
func (c *Cache) Get(name, src string) (*Template, error) {
	key := sourceKey(src)

	c.mu.RLock()
	t, ok := c.templates[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return t, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		t, ok := c.templates[key]
		c.mu.RUnlock()
		if ok {
			return t, nil
		}

		t, err := Compile(name, src)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.templates[key] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v.(*Template), nil
}

// Len returns the number of cached templates
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Delete drops the template compiled from src, reporting whether it was cached
func (c *Cache) Delete(src string) bool {
	key := sourceKey(src)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.templates[key]
	delete(c.templates, key)
	return ok
}

// Purge drops every cached template and resets the counters
func (c *Cache) Purge() {
	c.mu.Lock()
	c.templates = make(map[string]*Template)
	c.mu.Unlock()

	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns the hit and miss counts since creation or the last Purge
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}

func sourceKey(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}
