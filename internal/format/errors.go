package format

import "errors"

// Format errors. All are fatal at archive-open time: a malformed index
// is a permanent, non-retryable error for that archive and no partial
// or degraded archive is ever exposed.
var (
	// ErrInvalidMagic is returned when the 8-byte magic does not match.
	ErrInvalidMagic = errors.New("far: invalid magic")

	// ErrInvalidIndexEntriesLen is returned when the index length is not
	// a multiple of the index-entry record size, or the entry table
	// extends past the end of the archive.
	ErrInvalidIndexEntriesLen = errors.New("far: invalid index entries length")

	// ErrIndexEntriesOutOfOrder is returned when index entries are not in
	// strictly ascending chunk-type order.
	ErrIndexEntriesOutOfOrder = errors.New("far: index entries out of order")

	// ErrInvalidChunkOffset is returned when a chunk does not start
	// immediately after the preceding chunk.
	ErrInvalidChunkOffset = errors.New("far: invalid chunk offset")

	// ErrMissingDirectoryChunk is returned when the index has no
	// directory chunk entry.
	ErrMissingDirectoryChunk = errors.New("far: missing directory chunk index entry")

	// ErrMissingDirectoryNamesChunk is returned when the index has no
	// directory-names chunk entry.
	ErrMissingDirectoryNamesChunk = errors.New("far: missing directory names chunk index entry")

	// ErrInvalidDirectoryNamesChunkLen is returned when the
	// directory-names chunk is not 8-byte aligned or extends past the end
	// of the archive.
	ErrInvalidDirectoryNamesChunkLen = errors.New("far: invalid directory names chunk length")

	// ErrInvalidDirectoryChunkLen is returned when the directory chunk is
	// not a multiple of the directory-entry record size.
	ErrInvalidDirectoryChunkLen = errors.New("far: invalid directory chunk length")

	// ErrPathDataOutOfBounds is returned when an entry's name range does
	// not lie within the directory-names chunk.
	ErrPathDataOutOfBounds = errors.New("far: path data out of bounds")

	// ErrInvalidPath is returned when an entry name is not valid UTF-8 or
	// is not a well-formed archive path.
	ErrInvalidPath = errors.New("far: invalid path")

	// ErrNamesOutOfOrder is returned when entry names are not strictly
	// increasing in byte-lexicographic order. Out-of-order names signal a
	// corrupt or adversarially crafted archive.
	ErrNamesOutOfOrder = errors.New("far: directory names out of order")

	// ErrContentChunkOutOfBounds is returned when an entry's content
	// region overlaps the metadata chunks or extends past the end of the
	// archive.
	ErrContentChunkOutOfBounds = errors.New("far: content chunk out of bounds")

	// ErrContentChunksOverlap is returned when two entries' content
	// regions overlap or are not in offset order.
	ErrContentChunksOverlap = errors.New("far: content chunks overlap")
)
