// Package farfile provides the byte-source abstraction and the
// fs.FileInfo/fs.DirEntry implementations shared by the archive reader
// and the package-directory surface.
package farfile

import "io"

// ByteSource provides random access to archive or blob bytes.
//
// Implementations exist for local files (*os.File), in-memory buffers,
// and HTTP range requests. SourceID must return a stable identifier for
// the underlying content so cache layers can key on it.
//
// Sources are treated as immutable once an archive is opened; if the
// underlying bytes mutate concurrently, reader behavior is undefined.
type ByteSource interface {
	io.ReaderAt
	Size() int64
	SourceID() string
}
