// Package cache provides content caches keyed by blob root.
//
// Because keys are content roots, cache hits are implicitly verified:
// the content was checked against its root when it entered the cache.
package cache

// Cache stores blob content keyed by content root.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached content for root.
	// The returned slice must be treated as immutable.
	Get(root string) ([]byte, bool)

	// Put stores content under root. The cache retains the slice;
	// callers must not modify it afterwards.
	Put(root string, content []byte)

	// Delete removes the entry for root, if present.
	Delete(root string)

	// Len returns the number of cached entries.
	Len() int
}
