package far

import (
	"fmt"
	"os"
	"path/filepath"
)

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so the size is cached at construction.
type fileSource struct {
	file     *os.File
	size     int64
	sourceID string
}

func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive file: %w", err)
	}
	absPath, err := filepath.Abs(f.Name())
	if err != nil {
		absPath = f.Name()
	}
	return &fileSource{
		file:     f,
		size:     info.Size(),
		sourceID: fmt.Sprintf("file:%s:%d:%d", absPath, info.Size(), info.ModTime().UnixNano()),
	}, nil
}

// ReadAt implements io.ReaderAt.
func (fs *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return fs.file.ReadAt(p, off)
}

// Size returns the total size of the file.
func (fs *fileSource) Size() int64 {
	return fs.size
}

// SourceID returns a stable identifier for the file content.
func (fs *fileSource) SourceID() string {
	return fs.sourceID
}

// ReaderFile wraps a Reader with its underlying archive file handle.
// Close must be called to release the file.
type ReaderFile struct {
	*Reader
	archiveFile *os.File
}

// Close closes the underlying archive file. Entry readers and open
// files created from this Reader must not be used after Close.
func (rf *ReaderFile) Close() error {
	if rf.archiveFile == nil {
		return nil
	}
	err := rf.archiveFile.Close()
	rf.archiveFile = nil
	return err
}

// OpenFile opens an archive from a local file.
//
// The file is opened for random access and held until Close; the
// directory table is parsed and validated before OpenFile returns.
func OpenFile(path string, opts ...Option) (*ReaderFile, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}

	source, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	r, err := NewReader(source, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &ReaderFile{Reader: r, archiveFile: f}, nil
}
