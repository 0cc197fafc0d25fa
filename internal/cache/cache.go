// Package cache stores rendered pages on disk, keyed by the content that
// produced them, so that unchanged template and data pairs are not rendered
// again on the next build.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

const indexVersion = "1"

// Cache is an on-disk artifact store with a JSON index. It is safe for
// concurrent use within one process.
type Cache struct {
	mu       sync.RWMutex
	dir      string
	index    *Index
	maxSize  int64
	maxAge   time.Duration
	strategy EvictionStrategy
}

// Index tracks all cached entries. Statistics are kept in the index so
// they accumulate across builds.
type Index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Stats   Stats             `json:"stats"`
	Updated time.Time         `json:"updated"`
}

// Entry is a single cached artifact
type Entry struct {
	Key         string    `json:"key"`
	Hash        string    `json:"hash"`
	File        string    `json:"file"`
	Source      string    `json:"source,omitempty"` // template the artifact was rendered from
	Size        int64     `json:"size"`
	Created     time.Time `json:"created"`
	LastAccess  time.Time `json:"last_access"`
	AccessCount int       `json:"access_count"`
}

// Stats tracks cache effectiveness
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	TotalSize  int64 `json:"total_size"`
	EntryCount int   `json:"entry_count"`
}

// EvictionStrategy picks which entry goes when the cache is full
type EvictionStrategy int

const (
	// LRU removes least recently used entries
	LRU EvictionStrategy = iota
	// LFU removes least frequently used entries
	LFU
	// FIFO removes oldest entries first
	FIFO
)

// ParseStrategy maps "lru", "lfu" or "fifo" to a strategy
func ParseStrategy(s string) (EvictionStrategy, error) {
	switch strings.ToLower(s) {
	case "", "lru":
		return LRU, nil
	case "lfu":
		return LFU, nil
	case "fifo":
		return FIFO, nil
	}
	return LRU, fmt.Errorf("unknown eviction strategy %q", s)
}

// Config holds cache configuration
type Config struct {
	Dir      string           // cache directory
	MaxSize  int64            // maximum total artifact size in bytes, 0 for no limit
	MaxAge   time.Duration    // maximum entry age, 0 for no limit
	Strategy EvictionStrategy // eviction strategy
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		Dir:      filepath.Join(".rocal", "cache"),
		MaxSize:  64 << 20, // 64 MB
		MaxAge:   7 * 24 * time.Hour,
		Strategy: LRU,
	}
}

// New opens the cache in config.Dir, creating it if needed. A missing or
// corrupt index starts an empty cache.
func New(config Config) (*Cache, error) {
	if config.Dir == "" {
		config.Dir = DefaultConfig().Dir
	}

	if err := os.MkdirAll(filepath.Join(config.Dir, "artifacts"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		dir:      config.Dir,
		maxSize:  config.MaxSize,
		maxAge:   config.MaxAge,
		strategy: config.Strategy,
		index:    newIndex(),
	}

	if err := c.loadIndex(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("⚠️  Cache index unreadable, starting fresh: %v", err)
		c.index = newIndex()
	}

	return c, nil
}

func newIndex() *Index {
	return &Index{
		Version: indexVersion,
		Entries: make(map[string]*Entry),
		Updated: time.Now(),
	}
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Get retrieves a cached artifact
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		c.index.Stats.Misses++
		return nil, false
	}

	if c.isExpired(entry) {
		c.removeEntry(key, entry)
		c.index.Stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(c.artifactPath(entry))
	if err != nil || c.hash(data) != entry.Hash {
		// Missing or damaged on disk
		c.removeEntry(key, entry)
		c.index.Stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	entry.AccessCount++
	c.index.Stats.Hits++

	return data, true
}

// Put stores an artifact. source names the template it came from and is
// kept for reporting only.
func (c *Cache) Put(key, source string, data []byte) error {
	hash := c.hash(data)
	size := int64(len(data))

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.index.Entries[key]; ok && existing.Hash == hash {
		return nil
	}

	c.ensureSpace(size)

	file := fmt.Sprintf("%s_%s", sanitizeKey(key), hash[:8])
	path := filepath.Join(c.dir, "artifacts", file)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if old, ok := c.index.Entries[key]; ok {
		c.removeEntry(key, old)
	}

	now := time.Now()
	c.index.Entries[key] = &Entry{
		Key:        key,
		Hash:       hash,
		File:       file,
		Source:     source,
		Size:       size,
		Created:    now,
		LastAccess: now,
	}
	c.index.Updated = now
	c.index.Stats.TotalSize += size

	return nil
}

// Delete removes an entry from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.index.Entries[key]; ok {
		c.removeEntry(key, entry)
	}
}

// InvalidateSource removes every entry rendered from source and returns
// how many were removed
func (c *Cache) InvalidateSource(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, entry := range c.index.Entries {
		if entry.Source == source {
			c.removeEntry(key, entry)
			count++
		}
	}
	return count
}

// Prune removes expired entries and returns how many were removed
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, entry := range c.index.Entries {
		if c.isExpired(entry) {
			c.removeEntry(key, entry)
			count++
		}
	}
	return count
}

// Clear removes all cached entries and resets the statistics
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	artifacts := filepath.Join(c.dir, "artifacts")
	if err := os.RemoveAll(artifacts); err != nil {
		return fmt.Errorf("failed to clear artifacts: %w", err)
	}
	if err := os.MkdirAll(artifacts, 0755); err != nil {
		return fmt.Errorf("failed to recreate artifacts directory: %w", err)
	}

	c.index = newIndex()

	return c.saveIndex()
}

// Stats returns a snapshot of the cache statistics
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.index.Stats
	s.EntryCount = len(c.index.Entries)
	return s
}

// Entries returns a copy of every index entry
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.index.Entries))
	for _, e := range c.index.Entries {
		out = append(out, *e)
	}
	return out
}

// Close writes the index to disk
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndex()
}

// Key derives a cache key from inputs. Each input is length-prefixed so
// that ("ab", "c") and ("a", "bc") differ.
func Key(inputs ...[]byte) string {
	h := sha256.New()
	for _, input := range inputs {
		fmt.Fprintf(h, "%d:", len(input))
		h.Write(input)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return err
	}
	if index.Version != indexVersion || index.Entries == nil {
		return fmt.Errorf("index version %q is not supported", index.Version)
	}

	index.Stats.TotalSize = 0
	for _, entry := range index.Entries {
		index.Stats.TotalSize += entry.Size
	}
	c.index = &index
	return nil
}

// saveIndex writes the index. Caller must hold the lock.
func (c *Cache) saveIndex() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(filepath.Join(c.dir, "index.json"), bytes.NewReader(data))
}

func (c *Cache) artifactPath(entry *Entry) string {
	return filepath.Join(c.dir, "artifacts", entry.File)
}

func (c *Cache) isExpired(entry *Entry) bool {
	if c.maxAge <= 0 {
		return false
	}
	return time.Since(entry.Created) > c.maxAge
}

// ensureSpace evicts entries until needed more bytes fit. Caller must hold
// the lock.
func (c *Cache) ensureSpace(needed int64) {
	if c.maxSize <= 0 {
		return
	}

	for c.index.Stats.TotalSize+needed > c.maxSize && len(c.index.Entries) > 0 {
		var victim *Entry
		for _, entry := range c.index.Entries {
			if victim == nil || c.before(entry, victim) {
				victim = entry
			}
		}
		c.removeEntry(victim.Key, victim)
		c.index.Stats.Evictions++
	}
}

// before reports whether a should be evicted ahead of b
func (c *Cache) before(a, b *Entry) bool {
	switch c.strategy {
	case LFU:
		if a.AccessCount != b.AccessCount {
			return a.AccessCount < b.AccessCount
		}
		return a.LastAccess.Before(b.LastAccess)
	case FIFO:
		return a.Created.Before(b.Created)
	default:
		return a.LastAccess.Before(b.LastAccess)
	}
}

// removeEntry drops entry and its file. Caller must hold the lock.
func (c *Cache) removeEntry(key string, entry *Entry) {
	path := c.artifactPath(entry)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("⚠️  Failed to remove cache file %s: %v", path, err)
	}
	delete(c.index.Entries, key)
	c.index.Stats.TotalSize -= entry.Size
	c.index.Updated = time.Now()
}

func (c *Cache) hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

var keyReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

func sanitizeKey(key string) string {
	sanitized := keyReplacer.Replace(key)
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}
	return sanitized
}
