package far

import (
	"errors"

	"github.com/meigma/far/internal/format"
)

// Format errors re-exported from internal/format. All are fatal at
// archive-open time and non-retryable.
var (
	// ErrInvalidMagic is returned when the 8-byte magic does not match.
	ErrInvalidMagic = format.ErrInvalidMagic

	// ErrInvalidIndexEntriesLen is returned when the index length is not a
	// multiple of the index-entry record size.
	ErrInvalidIndexEntriesLen = format.ErrInvalidIndexEntriesLen

	// ErrIndexEntriesOutOfOrder is returned when index entries are not in
	// strictly ascending chunk-type order.
	ErrIndexEntriesOutOfOrder = format.ErrIndexEntriesOutOfOrder

	// ErrInvalidChunkOffset is returned when chunks are not packed
	// contiguously at their declared offsets.
	ErrInvalidChunkOffset = format.ErrInvalidChunkOffset

	// ErrMissingDirectoryChunk is returned when the directory chunk is absent.
	ErrMissingDirectoryChunk = format.ErrMissingDirectoryChunk

	// ErrMissingDirectoryNamesChunk is returned when the directory-names
	// chunk is absent.
	ErrMissingDirectoryNamesChunk = format.ErrMissingDirectoryNamesChunk

	// ErrInvalidDirectoryNamesChunkLen is returned when the directory-names
	// chunk length is malformed.
	ErrInvalidDirectoryNamesChunkLen = format.ErrInvalidDirectoryNamesChunkLen

	// ErrInvalidDirectoryChunkLen is returned when the directory chunk
	// length is malformed.
	ErrInvalidDirectoryChunkLen = format.ErrInvalidDirectoryChunkLen

	// ErrPathDataOutOfBounds is returned when a directory entry's name
	// falls outside the directory-names chunk.
	ErrPathDataOutOfBounds = format.ErrPathDataOutOfBounds

	// ErrInvalidPath is returned when an entry name is not valid UTF-8 or
	// not a well-formed archive path.
	ErrInvalidPath = format.ErrInvalidPath

	// ErrNamesOutOfOrder is returned when entry names are not strictly
	// increasing.
	ErrNamesOutOfOrder = format.ErrNamesOutOfOrder

	// ErrContentChunkOutOfBounds is returned when a content region leaves
	// the archive or overlaps its metadata.
	ErrContentChunkOutOfBounds = format.ErrContentChunkOutOfBounds

	// ErrContentChunksOverlap is returned when two content regions overlap.
	ErrContentChunksOverlap = format.ErrContentChunksOverlap
)

// Errors specific to reading entries.
var (
	// ErrReadPastEnd is returned when a read offset is beyond an entry's
	// length. An offset equal to the length is valid and yields no bytes.
	ErrReadPastEnd = errors.New("far: read past end of entry")

	// ErrTooManyEntries is returned when an archive's directory holds more
	// entries than the configured limit.
	ErrTooManyEntries = errors.New("far: too many entries")

	// ErrNotDirectory is returned when a directory operation targets a
	// file entry.
	ErrNotDirectory = errors.New("far: not a directory")
)
