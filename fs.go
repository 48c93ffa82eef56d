package far

import (
	"io"
	"io/fs"
	"iter"
	"sort"
	"strings"

	"github.com/meigma/far/internal/farfile"
	"github.com/meigma/far/internal/pathutil"
)

// Open implements fs.FS.
//
// Open returns an fs.File for the named entry, or a synthetic directory
// when name is a prefix of other entries. Archives do not store
// directories explicitly; they are synthesized from entry paths.
func (r *Reader) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	if entry, ok := r.Entry(name); ok {
		return farfile.NewFile(r.source, entry.Path, int64(entry.DataOffset), int64(entry.DataLength)), nil //nolint:gosec // bounds validated at archive open
	}
	if r.isDir(name) {
		return &openDir{r: r, name: name}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat implements fs.StatFS without reading entry content.
func (r *Reader) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}

	if entry, ok := r.Entry(name); ok {
		return farfile.NewInfo(pathutil.Base(name), int64(entry.DataLength)), nil //nolint:gosec // length validated at archive open
	}
	if r.isDir(name) {
		return farfile.NewDirInfo(pathutil.Base(name)), nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadDir implements fs.ReadDirFS.
//
// It returns the direct children of name in lexicographic order,
// synthesizing one child directory per distinct first path segment.
func (r *Reader) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	if _, ok := r.Entry(name); ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotDirectory}
	}

	it := newDirIter(r, pathutil.DirPrefix(name))
	entries := make([]fs.DirEntry, 0)
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 && name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return entries, nil
}

// EntriesWithPrefix returns an iterator over entries whose paths begin
// with prefix. Entries are sorted, so the scan is a binary search plus
// a contiguous walk.
func (r *Reader) EntriesWithPrefix(prefix string) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		start := sort.Search(len(r.entries), func(i int) bool {
			return r.entries[i].Path >= prefix
		})
		for _, entry := range r.entries[start:] {
			if !strings.HasPrefix(entry.Path, prefix) {
				return
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// isDir reports whether name has entries under it.
func (r *Reader) isDir(name string) bool {
	if name == "." {
		return true
	}
	for range r.EntriesWithPrefix(name + "/") {
		return true
	}
	return false
}

// openDir implements fs.ReadDirFile for synthetic directories.
type openDir struct {
	r      *Reader
	name   string
	iter   *dirIter
	closed bool
}

func (d *openDir) Read(_ []byte) (int, error) {
	if d.closed {
		return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrClosed}
	}
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	if d.closed {
		return nil, &fs.PathError{Op: "stat", Path: d.name, Err: fs.ErrClosed}
	}
	return farfile.NewDirInfo(pathutil.Base(d.name)), nil
}

func (d *openDir) Close() error {
	if d.closed {
		return &fs.PathError{Op: "close", Path: d.name, Err: fs.ErrClosed}
	}
	d.closed = true
	d.iter = nil
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.closed {
		return nil, &fs.PathError{Op: "readdir", Path: d.name, Err: fs.ErrClosed}
	}
	if d.iter == nil {
		d.iter = newDirIter(d.r, pathutil.DirPrefix(d.name))
	}

	if n <= 0 {
		entries := make([]fs.DirEntry, 0)
		for {
			entry, ok := d.iter.Next()
			if !ok {
				return entries, nil
			}
			entries = append(entries, entry)
		}
	}

	entries := make([]fs.DirEntry, 0, n)
	for len(entries) < n {
		entry, ok := d.iter.Next()
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

// dirIter yields the direct children under a prefix, deduplicating
// nested paths into one child per first segment. A seen set is
// required: byte-lexicographic entry order can interleave segments
// ("dir0/a", "dir0/a.x", "dir0/a/b"), so adjacent comparison is not
// enough.
type dirIter struct {
	next   func() (Entry, bool)
	stop   func()
	prefix string
	seen   map[string]struct{}
	done   bool
}

func newDirIter(r *Reader, prefix string) *dirIter {
	next, stop := iter.Pull(r.EntriesWithPrefix(prefix))
	return &dirIter{next: next, stop: stop, prefix: prefix, seen: map[string]struct{}{}}
}

// Next returns the next directory entry, synthesizing a subdirectory
// entry when files exist only in nested paths.
func (it *dirIter) Next() (fs.DirEntry, bool) {
	if it.done {
		return nil, false
	}
	for {
		entry, ok := it.next()
		if !ok {
			it.Close()
			return nil, false
		}

		childName, isSubDir := pathutil.Child(entry.Path, it.prefix)
		if _, ok := it.seen[childName]; ok {
			continue
		}
		it.seen[childName] = struct{}{}

		if isSubDir {
			return farfile.NewDirEntry(farfile.NewDirInfo(childName)), true
		}
		return farfile.NewDirEntry(farfile.NewInfo(childName, int64(entry.DataLength))), true //nolint:gosec // length validated at archive open
	}
}

// Close releases the pull iterator.
func (it *dirIter) Close() {
	if it.done {
		return
	}
	it.done = true
	if it.stop != nil {
		it.stop()
		it.stop = nil
	}
}
