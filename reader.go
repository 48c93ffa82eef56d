package far

import (
	"fmt"
	"io/fs"
	"iter"
	"log/slog"

	"github.com/meigma/far/internal/farfile"
	"github.com/meigma/far/internal/format"
)

// DefaultMaxEntries is the default limit on directory entries per
// archive. It bounds memory use when opening hostile archives.
const DefaultMaxEntries = 1 << 20

// ByteSource provides random access to archive bytes.
//
// Implementations exist for local files (see OpenFile) and HTTP range
// requests (see the http package). The source is treated as immutable
// once the archive is opened; concurrent mutation of the underlying
// bytes makes reader behavior undefined.
type ByteSource = farfile.ByteSource

// Entry is one archived path with the offset and length of its content
// region within the byte source.
type Entry = format.Entry

// Reader provides access to a validated archive.
//
// The directory table is parsed and fully validated when the Reader is
// created and is immutable afterwards, so a Reader is safe for any
// number of concurrent readers. Reader implements fs.FS, fs.StatFS,
// fs.ReadFileFS, and fs.ReadDirFS.
type Reader struct {
	entries []Entry
	byPath  map[string]int
	source  ByteSource
	logger  *slog.Logger
}

// Interface compliance.
var (
	_ fs.FS         = (*Reader)(nil)
	_ fs.StatFS     = (*Reader)(nil)
	_ fs.ReadFileFS = (*Reader)(nil)
	_ fs.ReadDirFS  = (*Reader)(nil)
)

// Option configures a Reader.
type Option func(*readerConfig)

type readerConfig struct {
	logger     *slog.Logger
	maxEntries int
}

// WithLogger sets the logger for diagnostic output.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *readerConfig) {
		cfg.logger = logger
	}
}

// WithMaxEntries sets the limit on directory entries per archive.
// Set to 0 to disable the limit.
func WithMaxEntries(limit int) Option {
	return func(cfg *readerConfig) {
		cfg.maxEntries = limit
	}
}

// NewReader opens an archive from a byte source.
//
// The index and directory are parsed and validated in full before
// NewReader returns; any format violation fails the open with one of
// the format errors and no partial archive is exposed.
func NewReader(source ByteSource, opts ...Option) (*Reader, error) {
	cfg := readerConfig{maxEntries: DefaultMaxEntries}
	for _, opt := range opts {
		opt(&cfg)
	}

	index, err := format.ParseIndex(source)
	if err != nil {
		return nil, err
	}
	entries, err := format.ParseDirectory(source, index)
	if err != nil {
		return nil, err
	}
	if cfg.maxEntries > 0 && len(entries) > cfg.maxEntries {
		return nil, fmt.Errorf("%w: %d entries, limit %d", ErrTooManyEntries, len(entries), cfg.maxEntries)
	}

	byPath := make(map[string]int, len(entries))
	for i, entry := range entries {
		byPath[entry.Path] = i
	}

	r := &Reader{
		entries: entries,
		byPath:  byPath,
		source:  source,
		logger:  cfg.logger,
	}
	r.log().Debug("archive opened", "entries", len(entries), "source", source.SourceID())
	return r, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Reader) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Len returns the number of entries in the archive.
func (r *Reader) Len() int {
	return len(r.entries)
}

// List returns an iterator over all entries in directory order, which
// is lexicographic by path. The sequence is finite and restartable:
// re-iterating yields the same entries.
func (r *Reader) List() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, entry := range r.entries {
			if !yield(entry) {
				return
			}
		}
	}
}

// Entry returns the entry for the given path.
func (r *Reader) Entry(path string) (Entry, bool) {
	i, ok := r.byPath[path]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// GetSize returns the content length of the entry at path.
func (r *Reader) GetSize(path string) (uint64, error) {
	entry, ok := r.Entry(path)
	if !ok {
		return 0, &fs.PathError{Op: "size", Path: path, Err: fs.ErrNotExist}
	}
	return entry.DataLength, nil
}

// OpenEntry returns a reader scoped to the entry's content region.
// The lookup touches only the in-memory table; no source I/O happens
// until the entry is read.
func (r *Reader) OpenEntry(path string) (*EntryReader, error) {
	entry, ok := r.Entry(path)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return &EntryReader{
		source: r.source,
		path:   entry.Path,
		offset: entry.DataOffset,
		length: entry.DataLength,
	}, nil
}

// ReadFile reads the entire content of the entry at path.
// It implements fs.ReadFileFS.
func (r *Reader) ReadFile(path string) ([]byte, error) {
	er, err := r.OpenEntry(path)
	if err != nil {
		return nil, err
	}
	return er.ReadAt(0)
}

// Source returns the underlying byte source.
func (r *Reader) Source() ByteSource {
	return r.source
}
