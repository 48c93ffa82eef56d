package pkgdir

import "errors"

// Sentinel errors for the directory surface. They surface to callers
// inside fs.PathError values.
var (
	// ErrNotSupported is returned for mutating operations: archive-backed
	// content is read-only, and archives never change once opened, so
	// watching is not supported either.
	ErrNotSupported = errors.New("pkgdir: not supported")

	// ErrNotDirectory is returned when a path traverses through a file.
	ErrNotDirectory = errors.New("pkgdir: not a directory")

	// ErrInvalidContents is returned when the package's contents manifest
	// is malformed.
	ErrInvalidContents = errors.New("pkgdir: invalid contents manifest")

	// ErrPathCollision is returned when the contents manifest lists a path
	// that already exists in the archive.
	ErrPathCollision = errors.New("pkgdir: path collision")
)
