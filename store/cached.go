package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/far/cache"
)

// Cached wraps a store with a read-through content cache.
//
// Cache misses read the whole blob into memory before serving it, so
// the wrapper suits metadata-sized blobs; route bulk content around it.
// Concurrent misses for the same root are collapsed into a single
// fetch from the inner store.
type Cached struct {
	inner  Store
	cache  cache.Cache
	group  singleflight.Group
	logger *slog.Logger
}

// Interface compliance.
var _ Store = (*Cached)(nil)

// CachedOption configures a Cached store.
type CachedOption func(*Cached)

// WithLogger sets the logger for diagnostic output.
func WithLogger(logger *slog.Logger) CachedOption {
	return func(c *Cached) {
		c.logger = logger
	}
}

// NewCached wraps inner with the given content cache.
func NewCached(inner Store, contentCache cache.Cache, opts ...CachedOption) *Cached {
	c := &Cached{inner: inner, cache: contentCache}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Cached) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Open returns the blob for root, serving from the cache when possible.
func (c *Cached) Open(ctx context.Context, root string) (Blob, error) {
	if content, ok := c.cache.Get(root); ok {
		c.log().Debug("blob cache hit", "root", root)
		return BytesBlob(root, content), nil
	}
	c.log().Debug("blob cache miss", "root", root)

	result, err, _ := c.group.Do(root, func() (any, error) {
		// Double-check: another flight may have populated the cache.
		if content, ok := c.cache.Get(root); ok {
			return content, nil
		}
		content, err := c.fetch(ctx, root)
		if err != nil {
			return nil, err
		}
		c.cache.Put(root, content)
		return content, nil
	})
	if err != nil {
		return nil, err
	}
	return BytesBlob(root, result.([]byte)), nil //nolint:errcheck // type is fixed by the flight above
}

// Has reports presence in the cache or the inner store.
func (c *Cached) Has(ctx context.Context, root string) (bool, error) {
	if _, ok := c.cache.Get(root); ok {
		return true, nil
	}
	return c.inner.Has(ctx, root)
}

// fetch reads the whole blob from the inner store.
func (c *Cached) fetch(ctx context.Context, root string) ([]byte, error) {
	blob, err := c.inner.Open(ctx, root)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	content, err := io.ReadAll(blob)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", root, err)
	}
	return content, nil
}
