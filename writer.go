package far

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"math"
	"slices"

	"github.com/meigma/far/internal/format"
)

// Write builds an archive from the given files and writes it to w.
//
// Paths are validated with the same rules the reader enforces and are
// written in byte-lexicographic order regardless of map order. Content
// regions are aligned to 4096 bytes with zero padding, so an archive
// written here round-trips through NewReader byte-for-byte.
func Write(w io.Writer, files map[string][]byte) error {
	paths := make([]string, 0, len(files))
	for path := range files {
		if err := format.ValidateName(path); err != nil {
			return err
		}
		paths = append(paths, path)
	}
	slices.Sort(paths)

	// Name blob and per-entry name offsets. Names are concatenated in
	// entry order and the chunk is padded to an 8-byte boundary.
	nameOffsets := make(map[string]uint32, len(paths))
	var namesLen uint64
	for _, path := range paths {
		if len(path) > math.MaxUint16 {
			return fmt.Errorf("%w: %q exceeds maximum name length", ErrInvalidPath, path)
		}
		if namesLen > math.MaxUint32 {
			return fmt.Errorf("%w: directory names chunk too large", ErrInvalidDirectoryNamesChunkLen)
		}
		nameOffsets[path] = uint32(namesLen)
		namesLen += uint64(len(path))
	}
	namesPadded := align(namesLen, format.NameAlignment)

	dirLen := uint64(len(paths)) * format.DirectoryEntrySize
	dirOffset := uint64(format.IndexHeaderSize + 2*format.IndexEntrySize)
	namesOffset := dirOffset + dirLen

	// Content regions follow the metadata chunks, each aligned to 4096.
	contentOffsets := make(map[string]uint64, len(paths))
	pos := align(namesOffset+namesPadded, format.ContentAlignment)
	for _, path := range paths {
		contentOffsets[path] = pos
		pos = align(pos+uint64(len(files[path])), format.ContentAlignment)
	}

	cw := &countingWriter{w: w}

	// Index header and entry table. The directory chunk tag sorts below
	// the directory-names tag, fixing the chunk order.
	var header [format.IndexHeaderSize]byte
	copy(header[:8], format.Magic[:])
	binary.LittleEndian.PutUint64(header[8:16], 2*format.IndexEntrySize)
	if _, err := cw.Write(header[:]); err != nil {
		return err
	}
	if err := writeIndexEntry(cw, format.ChunkTypeDirectory, dirOffset, dirLen); err != nil {
		return err
	}
	if err := writeIndexEntry(cw, format.ChunkTypeDirectoryNames, namesOffset, namesPadded); err != nil {
		return err
	}

	// Directory chunk.
	var record [format.DirectoryEntrySize]byte
	for _, path := range paths {
		clear(record[:])
		binary.LittleEndian.PutUint32(record[0:4], nameOffsets[path])
		binary.LittleEndian.PutUint16(record[4:6], uint16(len(path))) //nolint:gosec // length checked above
		binary.LittleEndian.PutUint64(record[8:16], contentOffsets[path])
		binary.LittleEndian.PutUint64(record[16:24], uint64(len(files[path])))
		if _, err := cw.Write(record[:]); err != nil {
			return err
		}
	}

	// Directory-names chunk.
	for _, path := range paths {
		if _, err := io.WriteString(cw, path); err != nil {
			return err
		}
	}
	if err := cw.pad(namesOffset + namesPadded); err != nil {
		return err
	}

	// Content regions.
	for _, path := range paths {
		if err := cw.pad(contentOffsets[path]); err != nil {
			return err
		}
		if _, err := cw.Write(files[path]); err != nil {
			return err
		}
	}
	// Trailing padding keeps the archive a whole number of alignment
	// blocks, matching the offset the next region would have used.
	return cw.pad(pos)
}

// WriteFS builds an archive from all regular files in fsys.
//
// File contents are read into memory; WriteFS is intended for package
// metadata archives, which are small.
func WriteFS(w io.Writer, fsys fs.FS) error {
	files := make(map[string][]byte)
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		files[path] = content
		return nil
	})
	if err != nil {
		return err
	}
	return Write(w, files)
}

func writeIndexEntry(w io.Writer, chunkType, offset, length uint64) error {
	var record [format.IndexEntrySize]byte
	binary.LittleEndian.PutUint64(record[0:8], chunkType)
	binary.LittleEndian.PutUint64(record[8:16], offset)
	binary.LittleEndian.PutUint64(record[16:24], length)
	_, err := w.Write(record[:])
	return err
}

// align rounds n up to the next multiple of to.
func align(n, to uint64) uint64 {
	return (n + to - 1) / to * to
}

// countingWriter tracks the write position so padding can be emitted up
// to absolute offsets.
type countingWriter struct {
	w   io.Writer
	pos uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.pos += uint64(n) //nolint:gosec // n is non-negative by io.Writer contract
	return n, err
}

// pad writes zero bytes until the position reaches target.
func (cw *countingWriter) pad(target uint64) error {
	if cw.pos > target {
		return fmt.Errorf("far: write position %d past target %d", cw.pos, target)
	}
	const zeroBlock = 4096
	var zeros [zeroBlock]byte
	for cw.pos < target {
		n := target - cw.pos
		if n > zeroBlock {
			n = zeroBlock
		}
		if _, err := cw.Write(zeros[:n]); err != nil {
			return err
		}
	}
	return nil
}
