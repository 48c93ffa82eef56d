// Package store defines the content-addressed blob store consumed by
// the package-directory layer, plus a read-through caching wrapper.
//
// A store owns its blobs: callers look blobs up by content root and
// read them, but never manage blob lifetime beyond closing the handles
// they open. Store-level failures are surfaced verbatim; retry and
// timeout policy belong to the store or its transport, not to callers.
//
// Implementations live in the memory, disk, and oci subpackages.
package store

import (
	"context"
	"errors"
	"io/fs"
)

// Sentinel errors shared by store implementations.
var (
	// ErrNotFound is returned when no blob exists for a content root.
	ErrNotFound = errors.New("store: blob not found")

	// ErrCorrupt is returned when a blob's content does not match its root.
	ErrCorrupt = errors.New("store: blob corrupt")

	// ErrInvalidRoot is returned when a content root string is malformed.
	ErrInvalidRoot = errors.New("store: invalid content root")
)

// Blob is an open handle to one immutable blob.
type Blob interface {
	fs.File

	// Size returns the blob's content length in bytes.
	Size() int64
}

// Store is a content-addressed blob store.
//
// Roots are lowercase hex strings; the addressing scheme (merkle tree
// or plain content digest) is fixed per implementation and documented
// there. Implementations must be safe for concurrent use.
type Store interface {
	// Open opens the blob with the given content root.
	// Returns ErrNotFound when the blob is not present.
	Open(ctx context.Context, root string) (Blob, error)

	// Has reports whether a blob for the given root is present.
	Has(ctx context.Context, root string) (bool, error)
}
