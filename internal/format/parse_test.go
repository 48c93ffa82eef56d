package format

import (
	"bytes"
	"encoding/binary"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildArchive assembles a minimal valid archive for the given files,
// mirroring the on-disk layout: header, two index entries, directory
// chunk, names chunk, then 4096-aligned content regions.
func buildArchive(tb testing.TB, files map[string][]byte) []byte {
	tb.Helper()

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	nameOffsets := make(map[string]uint32, len(paths))
	var namesLen uint64
	for _, path := range paths {
		nameOffsets[path] = uint32(namesLen)
		namesLen += uint64(len(path))
	}
	namesPadded := (namesLen + NameAlignment - 1) / NameAlignment * NameAlignment

	dirLen := uint64(len(paths)) * DirectoryEntrySize
	dirOffset := uint64(IndexHeaderSize + 2*IndexEntrySize)
	namesOffset := dirOffset + dirLen

	align := func(n uint64) uint64 {
		return (n + ContentAlignment - 1) / ContentAlignment * ContentAlignment
	}
	contentOffsets := make(map[string]uint64, len(paths))
	pos := align(namesOffset + namesPadded)
	for _, path := range paths {
		contentOffsets[path] = pos
		pos = align(pos + uint64(len(files[path])))
	}

	buf := make([]byte, pos)
	copy(buf[:8], Magic[:])
	binary.LittleEndian.PutUint64(buf[8:16], 2*IndexEntrySize)

	writeIndexEntry := func(at int, chunkType, offset, length uint64) {
		binary.LittleEndian.PutUint64(buf[at:at+8], chunkType)
		binary.LittleEndian.PutUint64(buf[at+8:at+16], offset)
		binary.LittleEndian.PutUint64(buf[at+16:at+24], length)
	}
	writeIndexEntry(IndexHeaderSize, ChunkTypeDirectory, dirOffset, dirLen)
	writeIndexEntry(IndexHeaderSize+IndexEntrySize, ChunkTypeDirectoryNames, namesOffset, namesPadded)

	for i, path := range paths {
		at := int(dirOffset) + i*DirectoryEntrySize
		binary.LittleEndian.PutUint32(buf[at:at+4], nameOffsets[path])
		binary.LittleEndian.PutUint16(buf[at+4:at+6], uint16(len(path)))
		binary.LittleEndian.PutUint64(buf[at+8:at+16], contentOffsets[path])
		binary.LittleEndian.PutUint64(buf[at+16:at+24], uint64(len(files[path])))
		copy(buf[int(namesOffset)+int(nameOffsets[path]):], path)
		copy(buf[contentOffsets[path]:], files[path])
	}
	return buf
}

func mustParse(tb testing.TB, data []byte) []Entry {
	tb.Helper()
	source := bytes.NewReader(data)
	index, err := ParseIndex(source)
	require.NoError(tb, err, "ParseIndex failed")
	entries, err := ParseDirectory(source, index)
	require.NoError(tb, err, "ParseDirectory failed")
	return entries
}

func parseErr(tb testing.TB, data []byte) error {
	tb.Helper()
	source := bytes.NewReader(data)
	index, err := ParseIndex(source)
	if err != nil {
		return err
	}
	_, err = ParseDirectory(source, index)
	return err
}

func TestParseIndex(t *testing.T) {
	t.Parallel()

	t.Run("valid archive", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		index, err := ParseIndex(bytes.NewReader(data))
		require.NoError(t, err)
		require.Len(t, index, 2)
		assert.Equal(t, ChunkTypeDirectory, index[0].ChunkType)
		assert.Equal(t, ChunkTypeDirectoryNames, index[1].ChunkType)
	})

	t.Run("empty source", func(t *testing.T) {
		t.Parallel()
		_, err := ParseIndex(bytes.NewReader(nil))
		assert.Error(t, err)
	})

	t.Run("bad magic", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		data[0] ^= 0xff
		_, err := ParseIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("index length not record aligned", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		binary.LittleEndian.PutUint64(data[8:16], 2*IndexEntrySize+1)
		_, err := ParseIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidIndexEntriesLen)
	})

	t.Run("index length past source", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		binary.LittleEndian.PutUint64(data[8:16], uint64(len(data))*IndexEntrySize)
		_, err := ParseIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidIndexEntriesLen)
	})

	t.Run("index length overflows", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		// Record-aligned, and wraps past zero when added to the header
		// size. Must be rejected, not sliced.
		binary.LittleEndian.PutUint64(data[8:16], 0xFFFFFFFFFFFFFFF0)
		_, err := ParseIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidIndexEntriesLen)
	})

	t.Run("entries out of order", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		// Swap the two index entry records.
		first := slices.Clone(data[IndexHeaderSize : IndexHeaderSize+IndexEntrySize])
		copy(data[IndexHeaderSize:], data[IndexHeaderSize+IndexEntrySize:IndexHeaderSize+2*IndexEntrySize])
		copy(data[IndexHeaderSize+IndexEntrySize:], first)
		_, err := ParseIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrIndexEntriesOutOfOrder)
	})

	t.Run("duplicate chunk type", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		binary.LittleEndian.PutUint64(data[IndexHeaderSize+IndexEntrySize:], ChunkTypeDirectory)
		_, err := ParseIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrIndexEntriesOutOfOrder)
	})

	t.Run("chunk not contiguous", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		// Bump the names chunk offset past the end of the directory chunk.
		at := IndexHeaderSize + IndexEntrySize + 8
		offset := binary.LittleEndian.Uint64(data[at : at+8])
		binary.LittleEndian.PutUint64(data[at:at+8], offset+8)
		_, err := ParseIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidChunkOffset)
	})

	t.Run("chunk past source", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		at := IndexHeaderSize + IndexEntrySize + 16
		binary.LittleEndian.PutUint64(data[at:at+8], uint64(len(data)))
		_, err := ParseIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidChunkOffset)
	})

	t.Run("missing directory chunk", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		// Retag the directory chunk; order and packing stay valid.
		binary.LittleEndian.PutUint64(data[IndexHeaderSize:], ChunkTypeDirectory+1)
		_, err := ParseIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrMissingDirectoryChunk)
	})

	t.Run("missing directory names chunk", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		binary.LittleEndian.PutUint64(data[IndexHeaderSize+IndexEntrySize:], ChunkTypeDirectoryNames+1)
		_, err := ParseIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrMissingDirectoryNamesChunk)
	})
}

func TestParseDirectory(t *testing.T) {
	t.Parallel()

	t.Run("entries in path order", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{
			"b/nested.txt": []byte("nested"),
			"a.txt":        []byte("hello"),
			"z.bin":        bytes.Repeat([]byte{0x7f}, 5000),
		})
		entries := mustParse(t, data)
		require.Len(t, entries, 3)
		assert.Equal(t, "a.txt", entries[0].Path)
		assert.Equal(t, "b/nested.txt", entries[1].Path)
		assert.Equal(t, "z.bin", entries[2].Path)
		assert.Equal(t, uint64(5), entries[0].DataLength)
		assert.Equal(t, uint64(5000), entries[2].DataLength)
	})

	t.Run("empty archive", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, nil)
		entries := mustParse(t, data)
		assert.Empty(t, entries)
	})

	t.Run("content regions aligned", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{
			"a.txt": []byte("hello"),
			"b.txt": []byte("world"),
		})
		for _, entry := range mustParse(t, data) {
			assert.Zero(t, entry.DataOffset%ContentAlignment, "entry %q not aligned", entry.Path)
		}
	})

	t.Run("names chunk not aligned", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		at := IndexHeaderSize + IndexEntrySize + 16
		length := binary.LittleEndian.Uint64(data[at : at+8])
		binary.LittleEndian.PutUint64(data[at:at+8], length-1)
		err := parseErr(t, data)
		assert.ErrorIs(t, err, ErrInvalidDirectoryNamesChunkLen)
	})

	t.Run("directory chunk not record aligned", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		at := IndexHeaderSize + 16
		binary.LittleEndian.PutUint64(data[at:at+8], DirectoryEntrySize-1)
		err := parseErr(t, data)
		// The shrunken chunk also breaks contiguous packing, so either
		// stage may reject it.
		assert.Error(t, err)
	})

	t.Run("name out of bounds", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		dirOffset := IndexHeaderSize + 2*IndexEntrySize
		binary.LittleEndian.PutUint16(data[dirOffset+4:dirOffset+6], 200)
		err := parseErr(t, data)
		assert.ErrorIs(t, err, ErrPathDataOutOfBounds)
	})

	t.Run("name not valid utf8", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		namesOffset := IndexHeaderSize + 2*IndexEntrySize + DirectoryEntrySize
		data[namesOffset] = 0xff
		err := parseErr(t, data)
		assert.ErrorIs(t, err, ErrInvalidPath)
	})

	t.Run("names out of order", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{
			"a.txt": []byte("hello"),
			"b.txt": []byte("world"),
		})
		// Point the second record at the first record's name.
		dirOffset := IndexHeaderSize + 2*IndexEntrySize
		second := dirOffset + DirectoryEntrySize
		binary.LittleEndian.PutUint32(data[second:second+4], 0)
		err := parseErr(t, data)
		assert.ErrorIs(t, err, ErrNamesOutOfOrder)
	})

	t.Run("content inside metadata", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		dirOffset := IndexHeaderSize + 2*IndexEntrySize
		binary.LittleEndian.PutUint64(data[dirOffset+8:dirOffset+16], 0)
		err := parseErr(t, data)
		assert.ErrorIs(t, err, ErrContentChunkOutOfBounds)
	})

	t.Run("content past source", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{"a.txt": []byte("hello")})
		dirOffset := IndexHeaderSize + 2*IndexEntrySize
		binary.LittleEndian.PutUint64(data[dirOffset+16:dirOffset+24], uint64(len(data)))
		err := parseErr(t, data)
		assert.ErrorIs(t, err, ErrContentChunkOutOfBounds)
	})

	t.Run("content regions overlap", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{
			"a.txt": []byte("hello"),
			"b.txt": []byte("world"),
		})
		// Move the second region onto the first.
		dirOffset := IndexHeaderSize + 2*IndexEntrySize
		first := binary.LittleEndian.Uint64(data[dirOffset+8 : dirOffset+16])
		second := dirOffset + DirectoryEntrySize
		binary.LittleEndian.PutUint64(data[second+8:second+16], first)
		err := parseErr(t, data)
		assert.ErrorIs(t, err, ErrContentChunksOverlap)
	})

	t.Run("padding between regions allowed", func(t *testing.T) {
		t.Parallel()
		data := buildArchive(t, map[string][]byte{
			"a.txt": []byte("hello"),
			"b.txt": []byte("world"),
		})
		// Writer-produced archives already pad regions to the alignment
		// boundary; parsing must accept the gaps.
		entries := mustParse(t, data)
		require.Len(t, entries, 2)
		assert.Greater(t, entries[1].DataOffset, entries[0].DataOffset+entries[0].DataLength)
	})
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	valid := []string{
		"a",
		"a.txt",
		"a/b",
		"a/b/c.txt",
		"meta/package",
		".hidden",
		"..double",
		"with space",
		"unicode/файл",
	}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), "expected %q to be valid", name)
	}

	invalid := []string{
		"",
		"/",
		"/a",
		"a/",
		"a//b",
		".",
		"..",
		"a/./b",
		"a/../b",
		"a/.",
		"nul\x00byte",
		"bad\xffutf8",
	}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidPath, "expected %q to be invalid", name)
	}
}
