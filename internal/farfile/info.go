package farfile

import (
	"io/fs"
	"time"
)

// Archive content is immutable, so every node reports read-only modes
// and a zero modification time.
const (
	// FileMode is the mode reported for archive-backed files.
	FileMode = fs.FileMode(0o444)

	// DirMode is the mode reported for synthetic directories.
	DirMode = fs.ModeDir | 0o555
)

// Info implements fs.FileInfo for archive-backed files.
type Info struct {
	name string
	size int64
}

// NewInfo creates file info with the given base name and size.
func NewInfo(name string, size int64) *Info {
	return &Info{name: name, size: size}
}

func (fi *Info) Name() string       { return fi.name }
func (fi *Info) Size() int64        { return fi.size }
func (fi *Info) Mode() fs.FileMode  { return FileMode }
func (fi *Info) ModTime() time.Time { return time.Time{} }
func (fi *Info) IsDir() bool        { return false }
func (fi *Info) Sys() any           { return nil }

// DirInfo implements fs.FileInfo for synthetic directories.
type DirInfo struct {
	name string
}

// NewDirInfo creates directory info with the given base name.
func NewDirInfo(name string) *DirInfo {
	return &DirInfo{name: name}
}

func (di *DirInfo) Name() string       { return di.name }
func (di *DirInfo) Size() int64        { return 0 }
func (di *DirInfo) Mode() fs.FileMode  { return DirMode }
func (di *DirInfo) ModTime() time.Time { return time.Time{} }
func (di *DirInfo) IsDir() bool        { return true }
func (di *DirInfo) Sys() any           { return nil }

// DirEntry implements fs.DirEntry by wrapping fs.FileInfo.
type DirEntry struct {
	info fs.FileInfo
}

// NewDirEntry wraps info as a directory entry.
func NewDirEntry(info fs.FileInfo) *DirEntry {
	return &DirEntry{info: info}
}

func (de *DirEntry) Name() string               { return de.info.Name() }
func (de *DirEntry) IsDir() bool                { return de.info.IsDir() }
func (de *DirEntry) Type() fs.FileMode          { return de.info.Mode().Type() }
func (de *DirEntry) Info() (fs.FileInfo, error) { return de.info, nil }
