// Package pkgdir exposes a package — an archive of metadata files plus
// a manifest of content blobs — as a read-only directory tree.
//
// The tree has two halves. Everything under "meta/" is served from the
// package's archive by the far reader. Every other file is a content
// blob: the surface resolves its path to a content root through the
// package's contents manifest and forwards the open to a
// content-addressed blob store, without proxying the bytes itself.
//
// The path "meta" itself is dual: opened as a file it yields the
// package's own content root as a string (the meta-as-file view), while
// directory operations (ReadDir, walking) treat it as the metadata
// subtree.
//
// All nodes are immutable: mutating flags fail with ErrNotSupported and
// change watching is not available.
package pkgdir

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/meigma/far"
	"github.com/meigma/far/internal/farfile"
	"github.com/meigma/far/internal/pathutil"
	"github.com/meigma/far/store"
)

// MetaPath is the name of the synthetic meta-as-file node and the root
// of the metadata subtree.
const MetaPath = "meta"

// Directory is the read-only directory surface over one package.
//
// A Directory holds the archive's immutable table by reference; open
// nodes share it and may outlive the Directory that opened them.
// Directory is safe for concurrent use.
type Directory struct {
	archive  *far.Reader
	root     string
	blobs    store.Store
	contents map[string]string
	paths    []string // merged sorted path set: meta, archive entries, content files
	logger   *slog.Logger
}

// Interface compliance.
var (
	_ fs.FS         = (*Directory)(nil)
	_ fs.StatFS     = (*Directory)(nil)
	_ fs.ReadDirFS  = (*Directory)(nil)
	_ fs.ReadFileFS = (*Directory)(nil)
)

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the logger for diagnostic output.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) {
		d.logger = logger
	}
}

// New creates the directory surface for a package.
//
// The archive holds the package's metadata files; root is the package's
// own content root (the meta-as-file content); blobs resolves content
// roots from the package's contents manifest. A package without a
// manifest entry exposes only its metadata tree.
func New(archive *far.Reader, root string, blobs store.Store, opts ...Option) (*Directory, error) {
	d := &Directory{
		archive: archive,
		root:    root,
		blobs:   blobs,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.contents = map[string]string{}
	if _, ok := archive.Entry(ContentsPath); ok {
		manifest, err := archive.ReadFile(ContentsPath)
		if err != nil {
			return nil, err
		}
		d.contents, err = ParseContents(manifest)
		if err != nil {
			return nil, err
		}
	}

	d.paths = make([]string, 0, archive.Len()+len(d.contents)+1)
	d.paths = append(d.paths, MetaPath)
	for entry := range archive.List() {
		d.paths = append(d.paths, entry.Path)
	}
	for path := range d.contents {
		if _, ok := archive.Entry(path); ok {
			return nil, &fs.PathError{Op: "new", Path: path, Err: ErrPathCollision}
		}
		d.paths = append(d.paths, path)
	}
	slices.Sort(d.paths)
	d.paths = slices.Compact(d.paths)

	d.log().Debug("package directory created",
		"root", root, "meta", archive.Len(), "content", len(d.contents))
	return d, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (d *Directory) log() *slog.Logger {
	if d.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.logger
}

// Root returns the package's own content root.
func (d *Directory) Root() string {
	return d.root
}

// nodeKind is the closed set of node kinds in a package directory,
// dispatched when a path is resolved.
type nodeKind uint8

const (
	kindMetaAsFile nodeKind = iota
	kindMetaFile
	kindContentFile
	kindDir
)

type node struct {
	kind     nodeKind
	blobRoot string // kindContentFile only
}

// resolve maps a valid path to its node.
func (d *Directory) resolve(name string) (node, error) {
	if name == "." {
		return node{kind: kindDir}, nil
	}
	if name == MetaPath {
		return node{kind: kindMetaAsFile}, nil
	}
	if _, ok := d.archive.Entry(name); ok {
		return node{kind: kindMetaFile}, nil
	}
	if blobRoot, ok := d.contents[name]; ok {
		return node{kind: kindContentFile, blobRoot: blobRoot}, nil
	}
	if d.isDir(name) {
		return node{kind: kindDir}, nil
	}
	if d.ancestorIsFile(name) {
		return node{}, ErrNotDirectory
	}
	return node{}, fs.ErrNotExist
}

// isDir reports whether name has merged paths beneath it.
func (d *Directory) isDir(name string) bool {
	for range d.pathsWithPrefix(name + "/") {
		return true
	}
	return false
}

// ancestorIsFile reports whether some proper prefix of name is a file,
// which makes name unreachable: opening it is a "not a directory"
// error rather than "not found".
func (d *Directory) ancestorIsFile(name string) bool {
	for i, c := range name {
		if c != '/' {
			continue
		}
		prefix := name[:i]
		if prefix == MetaPath {
			// The metadata tree continues below "meta".
			continue
		}
		if _, ok := d.archive.Entry(prefix); ok {
			return true
		}
		if _, ok := d.contents[prefix]; ok {
			return true
		}
	}
	return false
}

// Open implements fs.FS, equivalent to OpenContext with the background
// context.
func (d *Directory) Open(name string) (fs.File, error) {
	return d.OpenContext(context.Background(), name)
}

// OpenContext opens the named node.
//
// Metadata files and the meta-as-file view are served by the surface
// itself. Content files are forwarded to the blob store: the returned
// handle reads from the store, and the surface never copies the bytes.
func (d *Directory) OpenContext(ctx context.Context, name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	n, err := d.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	switch n.kind {
	case kindMetaAsFile:
		return d.metaAsFile(), nil
	case kindMetaFile:
		return d.archive.Open(name)
	case kindContentFile:
		d.log().Debug("forwarding content open", "path", name, "root", n.blobRoot)
		blob, err := d.blobs.Open(ctx, n.blobRoot)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return blob, nil
	default:
		return &openDir{d: d, name: name}, nil
	}
}

// metaAsFile builds the synthetic file whose content is the package's
// content root string.
func (d *Directory) metaAsFile() fs.File {
	content := []byte(d.root)
	return farfile.NewFile(bytes.NewReader(content), MetaPath, 0, int64(len(content)))
}

// writeFlags are the os.OpenFile flags that imply mutation.
const writeFlags = os.O_WRONLY | os.O_RDWR | os.O_CREATE | os.O_TRUNC | os.O_APPEND

// OpenFile opens the named node with os.OpenFile-style flags. Any
// request for write, create, truncate, or append fails with
// ErrNotSupported before any I/O is attempted.
func (d *Directory) OpenFile(name string, flag int) (fs.File, error) {
	if flag&writeFlags != 0 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrNotSupported}
	}
	return d.Open(name)
}

// ReadFile implements fs.ReadFileFS.
func (d *Directory) ReadFile(name string) ([]byte, error) {
	f, err := d.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAll(f, name)
}

// Watch is unsupported: packages are immutable once opened.
func (d *Directory) Watch(name string) error {
	return &fs.PathError{Op: "watch", Path: name, Err: ErrNotSupported}
}

// Stat implements fs.StatFS.
//
// Stat of "meta" reports the file view (the meta-as-file size); stat of
// a content file forwards to the blob store for its size.
func (d *Directory) Stat(name string) (fs.FileInfo, error) {
	return d.StatContext(context.Background(), name)
}

// StatContext is Stat with an explicit context for store lookups.
func (d *Directory) StatContext(ctx context.Context, name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	n, err := d.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}

	switch n.kind {
	case kindMetaAsFile:
		return farfile.NewInfo(MetaPath, int64(len(d.root))), nil
	case kindMetaFile:
		entry, _ := d.archive.Entry(name)
		return farfile.NewInfo(pathutil.Base(name), int64(entry.DataLength)), nil //nolint:gosec // length validated at archive open
	case kindContentFile:
		blob, err := d.blobs.Open(ctx, n.blobRoot)
		if err != nil {
			return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
		}
		defer blob.Close()
		return farfile.NewInfo(pathutil.Base(name), blob.Size()), nil
	default:
		return farfile.NewDirInfo(pathutil.Base(name)), nil
	}
}

// Attr describes a node the way the directory protocol reports it.
type Attr struct {
	Mode fs.FileMode
	Size uint64

	// LinkCount is always 1: hard links are unsupported.
	LinkCount uint64

	// CanHardlink is true only for genuine archive- or blob-backed file
	// nodes, never for synthetic nodes (directories, meta-as-file).
	CanHardlink bool
}

// Attributes returns protocol-level attributes for the named node.
func (d *Directory) Attributes(ctx context.Context, name string) (Attr, error) {
	if !fs.ValidPath(name) {
		return Attr{}, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	n, err := d.resolve(name)
	if err != nil {
		return Attr{}, &fs.PathError{Op: "stat", Path: name, Err: err}
	}

	attr := Attr{LinkCount: 1}
	switch n.kind {
	case kindMetaAsFile:
		attr.Mode = farfile.FileMode
		attr.Size = uint64(len(d.root))
	case kindMetaFile:
		entry, _ := d.archive.Entry(name)
		attr.Mode = farfile.FileMode
		attr.Size = entry.DataLength
		attr.CanHardlink = true
	case kindContentFile:
		blob, err := d.blobs.Open(ctx, n.blobRoot)
		if err != nil {
			return Attr{}, &fs.PathError{Op: "stat", Path: name, Err: err}
		}
		defer blob.Close()
		attr.Mode = farfile.FileMode
		attr.Size = uint64(blob.Size()) //nolint:gosec // blob sizes are non-negative
		attr.CanHardlink = true
	default:
		attr.Mode = farfile.DirMode
	}
	return attr, nil
}

// readAll reads f to EOF, wrapping errors with the node's path.
func readAll(f fs.File, name string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, err
		}
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return buf.Bytes(), nil
}

// pathsWithPrefix iterates the merged sorted path set under prefix.
func (d *Directory) pathsWithPrefix(prefix string) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		start, _ := slices.BinarySearch(d.paths, prefix)
		for _, path := range d.paths[start:] {
			if !strings.HasPrefix(path, prefix) {
				return
			}
			if !yield(path) {
				return
			}
		}
	}
}
