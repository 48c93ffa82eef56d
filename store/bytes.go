package store

import (
	"bytes"
	"io"
	"io/fs"

	"github.com/meigma/far/internal/farfile"
)

// BytesBlob returns a Blob over an in-memory byte slice. The slice is
// retained and must not be modified after the call.
func BytesBlob(root string, content []byte) Blob {
	return &bytesBlob{
		File: farfile.NewFile(bytes.NewReader(content), root, 0, int64(len(content))),
		size: int64(len(content)),
	}
}

type bytesBlob struct {
	*farfile.File
	size int64
}

func (b *bytesBlob) Size() int64 {
	return b.size
}

// Interface compliance.
var (
	_ Blob        = (*bytesBlob)(nil)
	_ fs.File     = (*bytesBlob)(nil)
	_ io.ReaderAt = (*bytesBlob)(nil)
)
