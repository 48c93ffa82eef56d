package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ParseIndex reads and validates the index header and entry table.
//
// It enforces the magic constant, entry-table alignment, strict
// ascending chunk-type order, contiguous chunk packing, and the
// presence of the directory and directory-names chunks. Unrecognized
// chunk types are permitted and skipped.
func ParseIndex(source Source) ([]IndexEntry, error) {
	header, err := readFullAt(source, 0, IndexHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}

	if !bytes.Equal(header[:8], Magic[:]) {
		return nil, ErrInvalidMagic
	}

	length := binary.LittleEndian.Uint64(header[8:16])
	if length%IndexEntrySize != 0 {
		return nil, ErrInvalidIndexEntriesLen
	}
	sourceSize := source.Size()
	tableEnd, ok := addUint64(IndexHeaderSize, length)
	if sourceSize < 0 || !ok || tableEnd > uint64(sourceSize) {
		return nil, ErrInvalidIndexEntriesLen
	}

	table, err := readFullAt(source, IndexHeaderSize, int(length)) //nolint:gosec // bounded by sourceSize above
	if err != nil {
		return nil, fmt.Errorf("read index entries: %w", err)
	}

	count := int(length / IndexEntrySize)
	entries := make([]IndexEntry, 0, count)

	// Chunks are packed contiguously, starting immediately after the
	// entry table.
	expectedOffset := tableEnd
	var haveDir, haveNames bool
	for i := range count {
		entry := decodeIndexEntry(table[i*IndexEntrySize:])

		if i > 0 && entry.ChunkType <= entries[i-1].ChunkType {
			return nil, ErrIndexEntriesOutOfOrder
		}
		if entry.Offset != expectedOffset {
			return nil, ErrInvalidChunkOffset
		}
		end, ok := addUint64(entry.Offset, entry.Length)
		if !ok || end > uint64(sourceSize) {
			return nil, ErrInvalidChunkOffset
		}
		expectedOffset = end

		switch entry.ChunkType {
		case ChunkTypeDirectory:
			haveDir = true
		case ChunkTypeDirectoryNames:
			haveNames = true
		}
		entries = append(entries, entry)
	}

	if !haveDir {
		return nil, ErrMissingDirectoryChunk
	}
	if !haveNames {
		return nil, ErrMissingDirectoryNamesChunk
	}

	return entries, nil
}

// ParseDirectory reads the directory-names and directory chunks and
// validates every entry, returning the archive's path table in chunk
// order (which validation guarantees is lexicographic).
//
// Both chunks are fully buffered before any validation runs, so a
// suspension in the underlying source can never interleave with an
// invariant check.
func ParseDirectory(source Source, index []IndexEntry) ([]Entry, error) {
	var dirChunk, namesChunk IndexEntry
	var endOfMetadata uint64 = IndexHeaderSize + uint64(len(index))*IndexEntrySize
	for _, entry := range index {
		switch entry.ChunkType {
		case ChunkTypeDirectory:
			dirChunk = entry
		case ChunkTypeDirectoryNames:
			namesChunk = entry
		}
		// Index entries are contiguous, so the running end is the end of
		// the last metadata chunk. Content regions must start after it.
		endOfMetadata = entry.Offset + entry.Length
	}

	sourceSize := uint64(source.Size()) //nolint:gosec // ParseIndex rejects negative sizes

	// Names are padded to an 8-byte boundary. Padding byte values are
	// not checked.
	if namesChunk.Length%NameAlignment != 0 || namesChunk.Offset+namesChunk.Length > sourceSize {
		return nil, ErrInvalidDirectoryNamesChunkLen
	}
	if dirChunk.Length%DirectoryEntrySize != 0 {
		return nil, ErrInvalidDirectoryChunkLen
	}

	names, err := readFullAt(source, int64(namesChunk.Offset), int(namesChunk.Length)) //nolint:gosec // bounded by sourceSize
	if err != nil {
		return nil, fmt.Errorf("read directory names chunk: %w", err)
	}
	dir, err := readFullAt(source, int64(dirChunk.Offset), int(dirChunk.Length)) //nolint:gosec // bounded by sourceSize
	if err != nil {
		return nil, fmt.Errorf("read directory chunk: %w", err)
	}

	count := int(dirChunk.Length / DirectoryEntrySize)
	entries := make([]Entry, 0, count)

	var prevName string
	var prevContentEnd uint64
	for i := range count {
		record := decodeDirectoryEntry(dir[i*DirectoryEntrySize:])

		nameEnd := uint64(record.nameOffset) + uint64(record.nameLength)
		if nameEnd > uint64(len(names)) {
			return nil, ErrPathDataOutOfBounds
		}
		name := string(names[record.nameOffset:nameEnd])
		if err := ValidateName(name); err != nil {
			return nil, err
		}
		if i > 0 && name <= prevName {
			return nil, ErrNamesOutOfOrder
		}
		prevName = name

		contentEnd, ok := addUint64(record.dataOffset, record.dataLength)
		if !ok || record.dataOffset < endOfMetadata || contentEnd > sourceSize {
			return nil, ErrContentChunkOutOfBounds
		}
		// Content regions follow name order; padding between regions is
		// allowed, overlap is not.
		if record.dataOffset < prevContentEnd {
			return nil, ErrContentChunksOverlap
		}
		prevContentEnd = contentEnd

		entries = append(entries, Entry{
			Path:       name,
			DataOffset: record.dataOffset,
			DataLength: record.dataLength,
		})
	}

	return entries, nil
}

// ValidateName reports whether name is a well-formed archive path:
// non-empty valid UTF-8, no NUL bytes, and slash-separated segments
// that are non-empty and not "." or "..".
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPath)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidPath, name)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidPath, name)
	}
	for _, segment := range strings.Split(name, "/") {
		switch segment {
		case "":
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, name)
		case ".", "..":
			return fmt.Errorf("%w: %q has a %q segment", ErrInvalidPath, name, segment)
		}
	}
	return nil
}

// readFullAt reads exactly n bytes at the given offset.
func readFullAt(source Source, off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := source.ReadAt(buf, off)
	if read == n {
		return buf, nil
	}
	if err == nil {
		err = fmt.Errorf("short read: %d of %d bytes", read, n)
	}
	return nil, err
}

// addUint64 adds two uint64 values, reporting overflow.
func addUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}
