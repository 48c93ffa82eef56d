// Package merkle computes content-address roots for blobs.
//
// Content is split into 8192-byte blocks. Each block is hashed with
// SHA-256 over a 12-byte salt (the block's byte offset within its level
// OR'd with the level number, little-endian u64, followed by the block
// length as little-endian u32) and the block bytes. Level-zero blocks
// are hashed unpadded; tree levels hash concatenated child digests in
// blocks zero-padded to the full block size. The root is the single
// digest remaining at the top level.
//
// Two blobs have the same root exactly when their bytes are identical,
// and a root commits to the blob's length as well as its content.
package merkle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

// BlockSize is the tree's block size in bytes. Block offsets are always
// multiples of it, which leaves the low bits free to carry the level.
const BlockSize = 8192

// DigestSize is the size of a root or node digest in bytes.
const DigestSize = sha256.Size

// Root computes the content root of everything readable from r.
func Root(r io.Reader) ([]byte, error) {
	b := NewBuilder()
	if _, err := io.Copy(b, r); err != nil {
		return nil, fmt.Errorf("merkle: %w", err)
	}
	return b.Root(), nil
}

// RootFromBytes computes the content root of b.
func RootFromBytes(b []byte) []byte {
	builder := NewBuilder()
	_, _ = builder.Write(b) //nolint:errcheck // in-memory write never fails
	return builder.Root()
}

// RootHex is the lowercase hex form of a root.
func RootHex(root []byte) string {
	return hex.EncodeToString(root)
}

// ParseRoot decodes a hex root string, validating its length.
func ParseRoot(s string) ([]byte, error) {
	root, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("merkle: invalid root %q: %w", s, err)
	}
	if len(root) != DigestSize {
		return nil, fmt.Errorf("merkle: invalid root %q: got %d bytes, want %d", s, len(root), DigestSize)
	}
	return root, nil
}

// Builder incrementally computes a content root from streamed writes.
// The zero value is not usable; call NewBuilder.
type Builder struct {
	leaves  [][]byte
	partial []byte
	offset  uint64
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{partial: make([]byte, 0, BlockSize)}
}

// Write implements io.Writer. It never returns an error.
func (b *Builder) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		n := BlockSize - len(b.partial)
		if n > len(p) {
			n = len(p)
		}
		b.partial = append(b.partial, p[:n]...)
		p = p[n:]
		if len(b.partial) == BlockSize {
			b.flush()
		}
	}
	return total, nil
}

// Root finalizes the tree and returns the content root. The builder
// must not be written to afterwards.
func (b *Builder) Root() []byte {
	// The final (possibly empty) block is always hashed: an empty blob
	// is one empty block.
	if len(b.partial) > 0 || len(b.leaves) == 0 {
		b.flush()
	}

	level := 1
	digests := b.leaves
	for len(digests) > 1 {
		digests = reduce(digests, level)
		level++
	}
	return digests[0]
}

// flush hashes the buffered partial block as a level-zero block.
func (b *Builder) flush() {
	sum := hashBlock(0, b.offset, b.partial, len(b.partial))
	b.leaves = append(b.leaves, sum)
	b.offset += BlockSize
	b.partial = b.partial[:0]
}

// reduce hashes one tree level's concatenated child digests into the
// next level's digests. Tree blocks are zero-padded to BlockSize.
func reduce(digests [][]byte, level int) [][]byte {
	perBlock := BlockSize / DigestSize
	next := make([][]byte, 0, (len(digests)+perBlock-1)/perBlock)

	block := make([]byte, 0, BlockSize)
	var offset uint64
	for start := 0; start < len(digests); start += perBlock {
		end := start + perBlock
		if end > len(digests) {
			end = len(digests)
		}
		block = block[:0]
		for _, d := range digests[start:end] {
			block = append(block, d...)
		}
		for len(block) < BlockSize {
			block = append(block, 0)
		}
		next = append(next, hashBlock(level, offset, block, BlockSize))
		offset += BlockSize
	}
	return next
}

// hashBlock computes SHA-256 over the block salt and bytes. The salt is
// offset|level as LE u64 and the block length as LE u32.
func hashBlock(level int, offset uint64, block []byte, length int) []byte {
	var salt [12]byte
	binary.LittleEndian.PutUint64(salt[0:8], offset|uint64(level)) //nolint:gosec // level is small and positive
	binary.LittleEndian.PutUint32(salt[8:12], uint32(length))      //nolint:gosec // length is at most BlockSize
	h := sha256.New()
	h.Write(salt[:])
	h.Write(block)
	return h.Sum(nil)
}
