package farfile

import (
	"io"
	"io/fs"

	"github.com/meigma/far/internal/pathutil"
)

// File implements fs.File over one bounded region of a ByteSource.
//
// Reads never leave the region, even when the underlying source is
// larger than the entry declares. A File is a cursor: concurrent
// callers sharing one File must synchronize externally.
type File struct {
	section *io.SectionReader
	name    string
	closed  bool
}

// Interface compliance.
var (
	_ fs.File     = (*File)(nil)
	_ io.ReaderAt = (*File)(nil)
	_ io.Seeker   = (*File)(nil)
)

// NewFile creates a file scoped to [offset, offset+length) of source.
// The name is used for Stat and error reporting only.
func NewFile(source io.ReaderAt, name string, offset, length int64) *File {
	return &File{
		section: io.NewSectionReader(source, offset, length),
		name:    name,
	}
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, f.errClosed("read")
	}
	return f.section.Read(p)
}

// ReadAt implements io.ReaderAt relative to the start of the region.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, f.errClosed("read")
	}
	return f.section.ReadAt(p, off)
}

// Seek implements io.Seeker within the region.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, f.errClosed("seek")
	}
	return f.section.Seek(offset, whence)
}

// Stat implements fs.File.
func (f *File) Stat() (fs.FileInfo, error) {
	if f.closed {
		return nil, f.errClosed("stat")
	}
	return NewInfo(pathutil.Base(f.name), f.section.Size()), nil
}

// Close implements fs.File. Close is terminal: all operations on a
// closed file, including a second Close, fail with fs.ErrClosed.
func (f *File) Close() error {
	if f.closed {
		return f.errClosed("close")
	}
	f.closed = true
	return nil
}

func (f *File) errClosed(op string) error {
	return &fs.PathError{Op: op, Path: f.name, Err: fs.ErrClosed}
}
