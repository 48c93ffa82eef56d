// Package oci provides a blob store backed by an OCI registry.
//
// Blobs are addressed by the hex-encoded SHA-256 of their bytes — the
// registry's own digest scheme — rather than a merkle root, since
// registries verify uploads against that digest. Content fetched from
// the registry is re-verified against the digest while it is read.
package oci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/meigma/far/internal/farfile"
	"github.com/meigma/far/store"
)

// BlobFetcher is the subset of a registry repository's blob storage the
// store needs. *remote.Repository's Blobs() satisfies it.
type BlobFetcher interface {
	// Resolve resolves a digest reference to a descriptor.
	Resolve(ctx context.Context, reference string) (ocispec.Descriptor, error)

	// Fetch fetches the content identified by the descriptor.
	Fetch(ctx context.Context, target ocispec.Descriptor) (io.ReadCloser, error)
}

// Store fetches blobs by digest from one OCI repository.
type Store struct {
	fetcher   BlobFetcher
	plainHTTP bool
	userAgent string
}

// Interface compliance.
var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPlainHTTP uses HTTP instead of HTTPS to reach the registry.
func WithPlainHTTP() Option {
	return func(s *Store) {
		s.plainHTTP = true
	}
}

// WithUserAgent sets the User-Agent header for registry requests.
func WithUserAgent(ua string) Option {
	return func(s *Store) {
		s.userAgent = ua
	}
}

// WithFetcher replaces the registry-backed fetcher, primarily for
// tests.
func WithFetcher(fetcher BlobFetcher) Option {
	return func(s *Store) {
		s.fetcher = fetcher
	}
}

// New creates a store reading blobs from the repository at repoRef
// (for example "ghcr.io/myorg/blobs").
func New(repoRef string, opts ...Option) (*Store, error) {
	s := &Store{userAgent: "far-store/1.0"}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher != nil {
		return s, nil
	}

	repo, err := remote.NewRepository(repoRef)
	if err != nil {
		return nil, fmt.Errorf("parse repository %q: %w", repoRef, err)
	}
	repo.PlainHTTP = s.plainHTTP
	repo.Client = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Header: http.Header{"User-Agent": []string{s.userAgent}},
	}
	s.fetcher = repo.Blobs()
	return s, nil
}

// Open fetches the blob for root from the registry.
//
// The returned blob streams directly from the registry response and
// verifies the digest as it is read; a mismatch surfaces
// store.ErrCorrupt from the read that hits it.
func (s *Store) Open(ctx context.Context, root string) (store.Blob, error) {
	dgst, err := parseRoot(root)
	if err != nil {
		return nil, err
	}

	desc, err := s.fetcher.Resolve(ctx, dgst.String())
	if err != nil {
		return nil, mapError(root, err)
	}
	rc, err := s.fetcher.Fetch(ctx, desc)
	if err != nil {
		return nil, mapError(root, err)
	}

	return &remoteBlob{
		rc:        rc,
		verifier:  dgst.Verifier(),
		root:      root,
		size:      desc.Size,
		remaining: desc.Size,
	}, nil
}

// Has reports whether the registry holds a blob for root.
func (s *Store) Has(ctx context.Context, root string) (bool, error) {
	dgst, err := parseRoot(root)
	if err != nil {
		return false, err
	}
	_, err = s.fetcher.Resolve(ctx, dgst.String())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errdef.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("resolve blob %s: %w", root, err)
}

func parseRoot(root string) (digest.Digest, error) {
	dgst := digest.NewDigestFromEncoded(digest.SHA256, root)
	if err := dgst.Validate(); err != nil {
		return "", store.ErrInvalidRoot
	}
	return dgst, nil
}

func mapError(root string, err error) error {
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, root)
	}
	return fmt.Errorf("fetch blob %s: %w", root, err)
}

// remoteBlob streams registry content with incremental digest
// verification.
type remoteBlob struct {
	rc        io.ReadCloser
	verifier  digest.Verifier
	root      string
	size      int64
	remaining int64
	closed    bool
	verified  bool
}

// Interface compliance.
var _ store.Blob = (*remoteBlob)(nil)

func (b *remoteBlob) Read(p []byte) (int, error) {
	if b.closed {
		return 0, &fs.PathError{Op: "read", Path: b.root, Err: fs.ErrClosed}
	}
	if b.remaining == 0 {
		if err := b.verify(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}

	n, err := b.rc.Read(p)
	if n > 0 {
		_, _ = b.verifier.Write(p[:n]) //nolint:errcheck // digest writes never fail
		b.remaining -= int64(n)
	}
	if err == io.EOF {
		if b.remaining != 0 {
			return n, fmt.Errorf("%w: %s: short blob", store.ErrCorrupt, b.root)
		}
		if verifyErr := b.verify(); verifyErr != nil {
			return n, verifyErr
		}
		return n, io.EOF
	}
	return n, err
}

func (b *remoteBlob) verify() error {
	if b.verified {
		return nil
	}
	if !b.verifier.Verified() {
		return fmt.Errorf("%w: %s: digest mismatch", store.ErrCorrupt, b.root)
	}
	b.verified = true
	return nil
}

func (b *remoteBlob) Size() int64 {
	return b.size
}

func (b *remoteBlob) Stat() (fs.FileInfo, error) {
	if b.closed {
		return nil, &fs.PathError{Op: "stat", Path: b.root, Err: fs.ErrClosed}
	}
	return farfile.NewInfo(b.root, b.size), nil
}

func (b *remoteBlob) Close() error {
	if b.closed {
		return &fs.PathError{Op: "close", Path: b.root, Err: fs.ErrClosed}
	}
	b.closed = true
	return b.rc.Close()
}
