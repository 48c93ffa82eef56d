package far

import (
	"fmt"
	"io/fs"

	"github.com/meigma/far/internal/farfile"
)

// EntryReader reads one entry's content region.
//
// Reads are bounded by the entry's declared length: the reader never
// returns bytes beyond it, even if the underlying source is malformed
// past that point. An EntryReader is a plain value scoped to the
// immutable directory table; it may outlive the Reader that created it.
type EntryReader struct {
	source ByteSource
	path   string
	offset uint64
	length uint64
}

// Path returns the entry's archive path.
func (er *EntryReader) Path() string {
	return er.path
}

// Size returns the entry's content length in bytes.
func (er *EntryReader) Size() uint64 {
	return er.length
}

// ReadAt returns all bytes from relativeOffset to the end of the
// entry's region. An offset equal to the entry length returns an empty
// slice; an offset beyond it fails with ErrReadPastEnd. Callers needing
// partial reads slice the result, or use Open for a streaming cursor.
func (er *EntryReader) ReadAt(relativeOffset uint64) ([]byte, error) {
	if relativeOffset > er.length {
		return nil, fmt.Errorf("read %s at %d: %w", er.path, relativeOffset, ErrReadPastEnd)
	}
	n := er.length - relativeOffset
	if n == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, n)
	read, err := er.source.ReadAt(buf, int64(er.offset+relativeOffset)) //nolint:gosec // bounds validated at archive open
	if uint64(read) == n {
		return buf, nil
	}
	if err == nil {
		err = fmt.Errorf("short read: %d of %d bytes", read, n)
	}
	return nil, fmt.Errorf("read %s: %w", er.path, err)
}

// Open returns a streaming cursor over the entry's region. The cursor
// implements fs.File, io.ReaderAt, and io.Seeker, and is not safe for
// unsynchronized sharing across goroutines.
func (er *EntryReader) Open() fs.File {
	return farfile.NewFile(er.source, er.path, int64(er.offset), int64(er.length)) //nolint:gosec // bounds validated at archive open
}
