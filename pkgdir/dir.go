package pkgdir

import (
	"context"
	"io"
	"io/fs"

	"github.com/meigma/far/internal/farfile"
	"github.com/meigma/far/internal/pathutil"
)

// ReadDir implements fs.ReadDirFS.
//
// Children come from the merged path set: metadata entries, content
// files, and one synthetic directory per distinct nested first segment.
// A name that is both a file and a prefix of deeper paths (the "meta"
// dual view) lists as a directory.
func (d *Directory) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	if name != "." {
		n, err := d.resolve(name)
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
		}
		if n.kind != kindDir && !(n.kind == kindMetaAsFile && d.isDir(name)) {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotDirectory}
		}
	}

	it := d.newDirIter(pathutil.DirPrefix(name))
	entries := make([]fs.DirEntry, 0)
	for {
		entry, ok := it.next()
		if !ok {
			return entries, nil
		}
		entries = append(entries, entry)
	}
}

// openDir is an open handle on a synthetic directory. It follows the
// surface's node lifecycle: operations on a closed handle fail with
// fs.ErrClosed, and Close is terminal.
type openDir struct {
	d      *Directory
	name   string
	iter   *dirIter
	closed bool
}

// Interface compliance.
var _ fs.ReadDirFile = (*openDir)(nil)

func (od *openDir) Read(_ []byte) (int, error) {
	if od.closed {
		return 0, &fs.PathError{Op: "read", Path: od.name, Err: fs.ErrClosed}
	}
	return 0, &fs.PathError{Op: "read", Path: od.name, Err: fs.ErrInvalid}
}

func (od *openDir) Stat() (fs.FileInfo, error) {
	if od.closed {
		return nil, &fs.PathError{Op: "stat", Path: od.name, Err: fs.ErrClosed}
	}
	return farfile.NewDirInfo(pathutil.Base(od.name)), nil
}

func (od *openDir) Close() error {
	if od.closed {
		return &fs.PathError{Op: "close", Path: od.name, Err: fs.ErrClosed}
	}
	od.closed = true
	od.iter = nil
	return nil
}

func (od *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if od.closed {
		return nil, &fs.PathError{Op: "readdir", Path: od.name, Err: fs.ErrClosed}
	}
	if od.iter == nil {
		od.iter = od.d.newDirIter(pathutil.DirPrefix(od.name))
	}

	if n <= 0 {
		entries := make([]fs.DirEntry, 0)
		for {
			entry, ok := od.iter.next()
			if !ok {
				return entries, nil
			}
			entries = append(entries, entry)
		}
	}

	entries := make([]fs.DirEntry, 0, n)
	for len(entries) < n {
		entry, ok := od.iter.next()
		if !ok {
			if len(entries) == 0 {
				return nil, io.EOF
			}
			break
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// dirIter walks the merged path set under one prefix, deduplicating
// children by first path segment. The seen set handles segment
// interleaving in byte-lexicographic order ("a", "a.x", "a/b"), where
// the two "a" children are not adjacent.
type dirIter struct {
	d      *Directory
	paths  []string
	prefix string
	seen   map[string]struct{}
}

func (d *Directory) newDirIter(prefix string) *dirIter {
	it := &dirIter{d: d, prefix: prefix, seen: map[string]struct{}{}}
	for path := range d.pathsWithPrefix(prefix) {
		it.paths = append(it.paths, path)
	}
	return it
}

func (it *dirIter) next() (fs.DirEntry, bool) {
	for len(it.paths) > 0 {
		path := it.paths[0]
		it.paths = it.paths[1:]

		childName, isSubDir := pathutil.Child(path, it.prefix)
		if _, ok := it.seen[childName]; ok {
			continue
		}
		it.seen[childName] = struct{}{}
		childPath := it.prefix + childName

		// A file that also has descendants (the meta dual view) lists as
		// a directory.
		if isSubDir || it.d.isDir(childPath) {
			return farfile.NewDirEntry(farfile.NewDirInfo(childName)), true
		}
		return it.d.fileDirEntry(childPath, childName), true
	}
	return nil, false
}

// fileDirEntry builds the directory entry for a file child. Content
// file sizes come from the blob store and are resolved lazily, only if
// the caller asks for Info.
func (d *Directory) fileDirEntry(path, childName string) fs.DirEntry {
	if entry, ok := d.archive.Entry(path); ok {
		return farfile.NewDirEntry(farfile.NewInfo(childName, int64(entry.DataLength))) //nolint:gosec // length validated at archive open
	}
	return &contentDirEntry{d: d, path: path, name: childName}
}

// contentDirEntry defers the blob-store size lookup until Info is
// called.
type contentDirEntry struct {
	d    *Directory
	path string
	name string
}

func (ce *contentDirEntry) Name() string      { return ce.name }
func (ce *contentDirEntry) IsDir() bool       { return false }
func (ce *contentDirEntry) Type() fs.FileMode { return 0 }

func (ce *contentDirEntry) Info() (fs.FileInfo, error) {
	return ce.d.StatContext(context.Background(), ce.path)
}
