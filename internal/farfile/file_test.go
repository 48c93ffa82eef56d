package farfile

import (
	"bytes"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRegion(t *testing.T) {
	t.Parallel()

	// File covers only [6, 11) of the backing bytes.
	backing := bytes.NewReader([]byte("hello world padding"))
	f := NewFile(backing, "dir/name.txt", 6, 5)

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)

	// ReadAt is relative to the region start.
	buf := make([]byte, 3)
	n, err := f.ReadAt(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("orl"), buf)

	// Reads never leave the region.
	_, err = f.ReadAt(buf, 4)
	assert.ErrorIs(t, err, io.EOF)

	pos, err := f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	assert.Zero(t, pos)
}

func TestFileStat(t *testing.T) {
	t.Parallel()

	f := NewFile(bytes.NewReader([]byte("data")), "a/b/c.txt", 0, 4)
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "c.txt", info.Name())
	assert.Equal(t, int64(4), info.Size())
	assert.Equal(t, FileMode, info.Mode())
	assert.False(t, info.IsDir())
	assert.True(t, info.ModTime().IsZero())
}

func TestFileClose(t *testing.T) {
	t.Parallel()

	f := NewFile(bytes.NewReader([]byte("data")), "x", 0, 4)
	require.NoError(t, f.Close())

	var buf [1]byte
	_, err := f.Read(buf[:])
	assert.ErrorIs(t, err, fs.ErrClosed)
	_, err = f.ReadAt(buf[:], 0)
	assert.ErrorIs(t, err, fs.ErrClosed)
	_, err = f.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, fs.ErrClosed)
	_, err = f.Stat()
	assert.ErrorIs(t, err, fs.ErrClosed)
	assert.ErrorIs(t, f.Close(), fs.ErrClosed)
}
