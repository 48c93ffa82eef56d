// Package format implements parsing and validation of the archive
// binary format.
//
// An archive is a fixed 16-byte index header, a table of 24-byte index
// entries describing the metadata chunks, the chunks themselves packed
// contiguously in ascending chunk-type order, and finally the content
// regions for each archived path at the offsets declared in the
// directory chunk.
//
// Parsing is strictly sequential: header, index entries, directory
// names, directory. Each stage validates against invariants established
// by the previous one, and every failure is fatal for the archive.
package format

import (
	"encoding/binary"
	"io"
)

// Magic is the 8-byte constant at the start of every archive.
var Magic = [8]byte{0xc8, 0xbf, 0x0b, 0x48, 0xad, 0xab, 0xc5, 0x11}

// Chunk type tags, stored as little-endian u64 of their ASCII names.
// Index entries must be sorted by ascending tag value, which places the
// directory chunk before the directory-names chunk.
const (
	// ChunkTypeDirectory tags the directory chunk ("DIR-----").
	ChunkTypeDirectory uint64 = 0x2d2d2d2d2d524944

	// ChunkTypeDirectoryNames tags the directory-names chunk ("DIRNAMES").
	ChunkTypeDirectoryNames uint64 = 0x53454d414e524944
)

// Record sizes, fixed by the wire format.
const (
	// IndexHeaderSize is the size of the index header (magic + length).
	IndexHeaderSize = 16

	// IndexEntrySize is the size of one index-entry record.
	IndexEntrySize = 24

	// DirectoryEntrySize is the size of one directory-entry record.
	DirectoryEntrySize = 32

	// NameAlignment is the alignment of the directory-names chunk.
	NameAlignment = 8

	// ContentAlignment is the alignment the writer uses for content
	// regions. Readers do not require it; padding between regions is
	// permitted.
	ContentAlignment = 4096
)

// Source provides random access to archive bytes.
//
// It is the minimal subset of the public ByteSource needed for parsing;
// any io.ReaderAt with a known total size satisfies it.
type Source interface {
	io.ReaderAt
	Size() int64
}

// IndexEntry locates one metadata chunk within the archive.
type IndexEntry struct {
	ChunkType uint64
	Offset    uint64
	Length    uint64
}

// decodeIndexEntry reads one index-entry record from b.
func decodeIndexEntry(b []byte) IndexEntry {
	return IndexEntry{
		ChunkType: binary.LittleEndian.Uint64(b[0:8]),
		Offset:    binary.LittleEndian.Uint64(b[8:16]),
		Length:    binary.LittleEndian.Uint64(b[16:24]),
	}
}

// directoryEntry is the raw 32-byte directory record. Reserved fields
// are read but not interpreted.
type directoryEntry struct {
	nameOffset uint32
	nameLength uint16
	dataOffset uint64
	dataLength uint64
}

// decodeDirectoryEntry reads one directory-entry record from b.
func decodeDirectoryEntry(b []byte) directoryEntry {
	return directoryEntry{
		nameOffset: binary.LittleEndian.Uint32(b[0:4]),
		nameLength: binary.LittleEndian.Uint16(b[4:6]),
		dataOffset: binary.LittleEndian.Uint64(b[8:16]),
		dataLength: binary.LittleEndian.Uint64(b[16:24]),
	}
}

// Entry is one archived path with its content region.
//
// Entries are constructed once at archive-open time and are immutable
// thereafter. The content region [DataOffset, DataOffset+DataLength)
// never overlaps another entry's region or the metadata chunks.
type Entry struct {
	Path       string
	DataOffset uint64
	DataLength uint64
}
