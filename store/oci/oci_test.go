package oci

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/errdef"

	"github.com/meigma/far/store"
)

// mockFetcher serves blobs from memory, optionally lying about their
// bytes to exercise verification.
type mockFetcher struct {
	blobs   map[digest.Digest][]byte
	tamper  func([]byte) []byte
	fetches int
}

func (m *mockFetcher) Resolve(_ context.Context, reference string) (ocispec.Descriptor, error) {
	dgst := digest.Digest(reference)
	content, ok := m.blobs[dgst]
	if !ok {
		return ocispec.Descriptor{}, errdef.ErrNotFound
	}
	return ocispec.Descriptor{
		MediaType: "application/octet-stream",
		Digest:    dgst,
		Size:      int64(len(content)),
	}, nil
}

func (m *mockFetcher) Fetch(_ context.Context, target ocispec.Descriptor) (io.ReadCloser, error) {
	content, ok := m.blobs[target.Digest]
	if !ok {
		return nil, errdef.ErrNotFound
	}
	m.fetches++
	if m.tamper != nil {
		content = m.tamper(content)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func newTestStore(tb testing.TB, fetcher BlobFetcher) *Store {
	tb.Helper()
	s, err := New("registry.example/repo/blobs", WithFetcher(fetcher))
	require.NoError(tb, err)
	return s
}

func TestOpen(t *testing.T) {
	t.Parallel()

	content := []byte("registry blob content")
	dgst := digest.FromBytes(content)
	fetcher := &mockFetcher{blobs: map[digest.Digest][]byte{dgst: content}}
	s := newTestStore(t, fetcher)

	blob, err := s.Open(t.Context(), dgst.Encoded())
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(len(content)), blob.Size())
	info, err := blob.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.Size())

	got, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestOpenVerifiesDigest(t *testing.T) {
	t.Parallel()

	content := []byte("registry blob content")
	dgst := digest.FromBytes(content)

	t.Run("tampered bytes", func(t *testing.T) {
		t.Parallel()
		fetcher := &mockFetcher{
			blobs: map[digest.Digest][]byte{dgst: content},
			tamper: func(b []byte) []byte {
				bad := bytes.Clone(b)
				bad[0] ^= 0xff
				return bad
			},
		}
		s := newTestStore(t, fetcher)

		blob, err := s.Open(t.Context(), dgst.Encoded())
		require.NoError(t, err, "corruption surfaces on read, not open")
		defer blob.Close()

		_, err = io.ReadAll(blob)
		assert.ErrorIs(t, err, store.ErrCorrupt)
	})

	t.Run("short body", func(t *testing.T) {
		t.Parallel()
		fetcher := &mockFetcher{
			blobs:  map[digest.Digest][]byte{dgst: content},
			tamper: func(b []byte) []byte { return b[:len(b)-5] },
		}
		s := newTestStore(t, fetcher)

		blob, err := s.Open(t.Context(), dgst.Encoded())
		require.NoError(t, err)
		defer blob.Close()

		_, err = io.ReadAll(blob)
		assert.ErrorIs(t, err, store.ErrCorrupt)
	})
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, &mockFetcher{blobs: map[digest.Digest][]byte{}})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		missing := digest.FromString("missing").Encoded()
		_, err := s.Open(t.Context(), missing)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("invalid root", func(t *testing.T) {
		t.Parallel()
		_, err := s.Open(t.Context(), "not-a-digest")
		assert.ErrorIs(t, err, store.ErrInvalidRoot)
	})
}

func TestHas(t *testing.T) {
	t.Parallel()

	content := []byte("present")
	dgst := digest.FromBytes(content)
	fetcher := &mockFetcher{blobs: map[digest.Digest][]byte{dgst: content}}
	s := newTestStore(t, fetcher)

	ok, err := s.Has(t.Context(), dgst.Encoded())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, fetcher.fetches, "Has must not fetch content")

	ok, err = s.Has(t.Context(), digest.FromString("absent").Encoded())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlobClose(t *testing.T) {
	t.Parallel()

	content := []byte("close me")
	dgst := digest.FromBytes(content)
	s := newTestStore(t, &mockFetcher{blobs: map[digest.Digest][]byte{dgst: content}})

	blob, err := s.Open(t.Context(), dgst.Encoded())
	require.NoError(t, err)
	require.NoError(t, blob.Close())

	var buf [1]byte
	_, err = blob.Read(buf[:])
	assert.ErrorIs(t, err, fs.ErrClosed)
	assert.ErrorIs(t, blob.Close(), fs.ErrClosed)
}
