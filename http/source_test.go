package http

import (
	"bytes"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/far"
)

// serveBytes serves content with full range-request support.
func serveBytes(tb testing.TB, content []byte) *httptest.Server {
	tb.Helper()
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "archive.far", time.Time{}, bytes.NewReader(content))
	}))
	tb.Cleanup(srv.Close)
	return srv
}

func TestNewSource(t *testing.T) {
	t.Parallel()

	t.Run("probes size", func(t *testing.T) {
		t.Parallel()
		content := []byte("remote archive bytes")
		srv := serveBytes(t, content)

		s, err := NewSource(srv.URL)
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), s.Size())
		assert.Equal(t, "http:"+srv.URL, s.SourceID())
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		srv := serveBytes(t, nil)
		s, err := NewSource(srv.URL)
		require.NoError(t, err)
		assert.Zero(t, s.Size())
	})

	t.Run("server ignores ranges", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			_, _ = io.WriteString(w, "full body, no ranges")
		}))
		t.Cleanup(srv.Close)

		_, err := NewSource(srv.URL)
		assert.ErrorIs(t, err, ErrRangeUnsupported)
	})

	t.Run("custom source id", func(t *testing.T) {
		t.Parallel()
		srv := serveBytes(t, []byte("x"))
		s, err := NewSource(srv.URL, WithSourceID("archive:v1"))
		require.NoError(t, err)
		assert.Equal(t, "archive:v1", s.SourceID())
	})

	t.Run("sends configured headers", func(t *testing.T) {
		t.Parallel()
		var gotAuth string
		srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			gotAuth = r.Header.Get("Authorization")
			nethttp.ServeContent(w, r, "f", time.Time{}, strings.NewReader("data"))
		}))
		t.Cleanup(srv.Close)

		_, err := NewSource(srv.URL, WithHeader("Authorization", "Bearer token"))
		require.NoError(t, err)
		assert.Equal(t, "Bearer token", gotAuth)
	})
}

func TestReadAt(t *testing.T) {
	t.Parallel()

	content := []byte("0123456789abcdefghij")
	srv := serveBytes(t, content)
	s, err := NewSource(srv.URL)
	require.NoError(t, err)

	t.Run("interior range", func(t *testing.T) {
		t.Parallel()
		buf := make([]byte, 5)
		n, err := s.ReadAt(buf, 10)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, []byte("abcde"), buf)
	})

	t.Run("tail returns EOF", func(t *testing.T) {
		t.Parallel()
		buf := make([]byte, 10)
		n, err := s.ReadAt(buf, int64(len(content))-4)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte("ghij"), buf[:n])
	})

	t.Run("past end", func(t *testing.T) {
		t.Parallel()
		buf := make([]byte, 1)
		_, err := s.ReadAt(buf, int64(len(content)))
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("negative offset", func(t *testing.T) {
		t.Parallel()
		buf := make([]byte, 1)
		_, err := s.ReadAt(buf, -1)
		assert.Error(t, err)
	})

	t.Run("empty buffer", func(t *testing.T) {
		t.Parallel()
		n, err := s.ReadAt(nil, 0)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestArchiveOverHTTP(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, far.Write(&buf, map[string][]byte{
		"meta/package": []byte("{}"),
		"bin/app":      bytes.Repeat([]byte{0x2a}, 6000),
	}))
	srv := serveBytes(t, buf.Bytes())

	s, err := NewSource(srv.URL)
	require.NoError(t, err)

	r, err := far.NewReader(s)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	got, err := r.ReadFile("bin/app")
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0x2a}, 6000), got)
}
