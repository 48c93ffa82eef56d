// Package memory provides an in-memory LRU content cache.
package memory

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/meigma/far/cache"
)

// DefaultMaxEntries is the default entry limit for a Cache.
const DefaultMaxEntries = 1024

// Cache is a fixed-capacity LRU content cache.
type Cache struct {
	entries *lru.Cache[string, []byte]
}

// Interface compliance.
var _ cache.Cache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*config)

type config struct {
	maxEntries int
}

// WithMaxEntries sets the entry capacity. Values < 1 fall back to the
// default.
func WithMaxEntries(n int) Option {
	return func(cfg *config) {
		cfg.maxEntries = n
	}
}

// New creates an empty cache.
func New(opts ...Option) (*Cache, error) {
	cfg := config{maxEntries: DefaultMaxEntries}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxEntries < 1 {
		cfg.maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, []byte](cfg.maxEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the cached content for root.
func (c *Cache) Get(root string) ([]byte, bool) {
	return c.entries.Get(root)
}

// Put stores content under root, evicting the least recently used
// entry when at capacity.
func (c *Cache) Put(root string, content []byte) {
	c.entries.Add(root, content)
}

// Delete removes the entry for root.
func (c *Cache) Delete(root string) {
	c.entries.Remove(root)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
