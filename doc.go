// Package far reads and writes package archives: immutable binary
// containers holding an index, a directory table, and content chunks.
//
// An archive is opened from any random-access [ByteSource]. Opening
// parses and validates the whole directory table up front; a malformed
// archive never opens partially. Once open, the table is immutable and
// safe for any number of concurrent readers.
//
// # Quick Start
//
// Open an archive file and read an entry:
//
//	r, err := far.OpenFile("pkg.far")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	content, err := r.ReadFile("meta/contents")
//
// Reader implements fs.FS, fs.StatFS, fs.ReadFileFS, and fs.ReadDirFS,
// so archives compose with the standard library:
//
//	err := fs.WalkDir(r, ".", walkFn)
//
// # Related packages
//
// The pkgdir package layers a package directory over an archive,
// forwarding content files to a content-addressed blob store (see the
// store package). The http package provides a ByteSource backed by HTTP
// range requests for lazily reading remote archives.
package far
