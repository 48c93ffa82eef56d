// Package disk provides a directory-backed content-addressed blob
// store.
//
// Each blob lives in one file named by the hex merkle root of its
// content, prefixed with a one-byte codec tag. Blobs may be stored
// uncompressed, zstd-compressed, or snappy-compressed; the codec is a
// per-store write policy, while reads handle any codec. Writes are
// staged under a random name and renamed into place, so a blob file is
// either absent or complete.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/far/internal/farfile"
	"github.com/meigma/far/merkle"
	"github.com/meigma/far/store"
)

// Codec identifies how a blob file's content is encoded on disk.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecZstd
	CodecSnappy
)

// String returns the codec's human-readable name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecSnappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// headerSize is the per-blob file header: a single codec byte.
const headerSize = 1

// Store is a directory of content-addressed blob files.
type Store struct {
	dir    string
	codec  Codec
	logger *slog.Logger
}

// Interface compliance.
var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithCodec sets the codec used for new blobs. Existing blobs are read
// with whatever codec they were written with.
func WithCodec(codec Codec) Option {
	return func(s *Store) {
		s.codec = codec
	}
}

// WithLogger sets the logger for diagnostic output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New opens (creating if needed) a blob store rooted at dir.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	switch s.codec {
	case CodecNone, CodecZstd, CodecSnappy:
	default:
		return nil, fmt.Errorf("disk: unknown codec %d", s.codec)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Put stores content read from r and returns its content root.
// Storing a blob that already exists is a no-op that returns the same
// root.
func (s *Store) Put(ctx context.Context, r io.Reader) (string, error) {
	staging := filepath.Join(s.dir, ".staging-"+uuid.NewString())
	f, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // path is store-owned
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(staging)
		}
	}()

	if _, err := f.Write([]byte{byte(s.codec)}); err != nil {
		return "", fmt.Errorf("write blob header: %w", err)
	}

	// The merkle builder sees the raw content; the codec only shapes
	// what lands on disk.
	builder := merkle.NewBuilder()
	tee := io.TeeReader(r, builder)

	if err := s.encode(ctx, f, tee); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close staging file: %w", err)
	}

	root := merkle.RootHex(builder.Root())
	if err := os.Rename(staging, filepath.Join(s.dir, root)); err != nil {
		return "", fmt.Errorf("commit blob %s: %w", root, err)
	}
	success = true
	s.log().Debug("blob stored", "root", root, "codec", s.codec.String())
	return root, nil
}

// encode streams content to f using the store's codec.
func (s *Store) encode(ctx context.Context, f *os.File, content io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch s.codec {
	case CodecNone:
		if _, err := io.Copy(f, content); err != nil {
			return fmt.Errorf("write blob: %w", err)
		}
	case CodecZstd:
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		if _, err := io.Copy(enc, content); err != nil {
			enc.Close()
			return fmt.Errorf("write blob: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("close zstd encoder: %w", err)
		}
	case CodecSnappy:
		enc := snappy.NewBufferedWriter(f)
		if _, err := io.Copy(enc, content); err != nil {
			enc.Close()
			return fmt.Errorf("write blob: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("close snappy encoder: %w", err)
		}
	}
	return nil
}

// Open returns the blob for root.
//
// Uncompressed blobs are served straight off the file for random
// access. Compressed blobs are decoded into memory and verified
// against their root before being returned; a mismatch reports
// store.ErrCorrupt.
func (s *Store) Open(ctx context.Context, root string) (store.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := merkle.ParseRoot(root); err != nil {
		return nil, store.ErrInvalidRoot
	}

	f, err := os.Open(filepath.Join(s.dir, root)) //nolint:gosec // root validated above
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("open blob %s: %w", root, err)
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: truncated header", store.ErrCorrupt, root)
	}

	switch Codec(header[0]) {
	case CodecNone:
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("stat blob %s: %w", root, err)
		}
		return newFileBlob(f, root, info.Size()-headerSize), nil
	case CodecZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %s: %v", store.ErrCorrupt, root, err)
		}
		defer dec.Close()
		defer f.Close()
		return s.decodeAll(root, dec.IOReadCloser())
	case CodecSnappy:
		defer f.Close()
		return s.decodeAll(root, io.NopCloser(snappy.NewReader(f)))
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s: unknown codec %d", store.ErrCorrupt, root, header[0])
	}
}

// decodeAll reads a decoded stream fully and verifies it against root.
func (s *Store) decodeAll(root string, r io.ReadCloser) (store.Blob, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", store.ErrCorrupt, root, err)
	}
	if merkle.RootHex(merkle.RootFromBytes(content)) != root {
		return nil, fmt.Errorf("%w: %s: content root mismatch", store.ErrCorrupt, root)
	}
	return store.BytesBlob(root, content), nil
}

// Has reports whether a blob file for root exists.
func (s *Store) Has(_ context.Context, root string) (bool, error) {
	if _, err := merkle.ParseRoot(root); err != nil {
		return false, store.ErrInvalidRoot
	}
	_, err := os.Stat(filepath.Join(s.dir, root))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat blob %s: %w", root, err)
}

// fileBlob serves an uncompressed blob straight from its file.
type fileBlob struct {
	*farfile.File
	f    *os.File
	size int64
}

func newFileBlob(f *os.File, root string, size int64) *fileBlob {
	return &fileBlob{
		File: farfile.NewFile(f, root, headerSize, size),
		f:    f,
		size: size,
	}
}

func (b *fileBlob) Size() int64 {
	return b.size
}

// Close closes the underlying blob file.
func (b *fileBlob) Close() error {
	err := b.File.Close()
	if closeErr := b.f.Close(); err == nil {
		err = closeErr
	}
	return err
}
