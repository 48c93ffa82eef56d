// Package pathutil provides helpers for slash-separated archive paths.
package pathutil

import "strings"

// Base returns the last element of a slash-separated path.
// Empty paths and "." return ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// DirPrefix converts a directory name to its child-matching prefix.
// "." returns "" (matches all paths); anything else gets a trailing "/".
func DirPrefix(name string) string {
	if name == "." {
		return ""
	}
	return name + "/"
}

// Child extracts the immediate child name of a full path under prefix,
// and reports whether further path components follow (the child is a
// subdirectory). The path must begin with prefix.
func Child(path, prefix string) (name string, isSubDir bool) {
	rel := strings.TrimPrefix(path, prefix)
	if i := strings.Index(rel, "/"); i >= 0 {
		return rel[:i], true
	}
	return rel, false
}
