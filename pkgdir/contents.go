package pkgdir

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/meigma/far/internal/format"
)

// ContentsPath is the archive entry holding the package's contents
// manifest.
const ContentsPath = "meta/contents"

// ParseContents parses a contents manifest: one "path=root" line per
// content file, where root is the lowercase hex content root of the
// file's blob. Blank lines are ignored. Paths must be well-formed,
// unique, and outside the meta/ tree.
func ParseContents(data []byte) (map[string]string, error) {
	contents := make(map[string]string)
	for i, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		path, root, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: missing separator", ErrInvalidContents, i+1)
		}
		if err := format.ValidateName(path); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidContents, i+1, err)
		}
		if path == MetaPath || strings.HasPrefix(path, MetaPath+"/") {
			return nil, fmt.Errorf("%w: line %d: content path %q inside meta", ErrInvalidContents, i+1, path)
		}
		if !fs.ValidPath(path) {
			return nil, fmt.Errorf("%w: line %d: invalid path %q", ErrInvalidContents, i+1, path)
		}
		if root == "" {
			return nil, fmt.Errorf("%w: line %d: empty root", ErrInvalidContents, i+1)
		}
		if _, dup := contents[path]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate path %q", ErrInvalidContents, i+1, path)
		}
		contents[path] = root
	}
	return contents, nil
}
