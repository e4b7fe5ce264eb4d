// Package pathutil holds the filesystem-path canonicalization and
// containment checks shared by the Path Permission Manager and Attempt
// Storage's workspace-tree copier: both need to resolve symlinks before
// comparing a path against a trusted root, and both need to reject a path
// that escapes that root once resolved.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Canonicalize resolves path to an absolute, symlink-free form. If path (or
// any component of it) does not yet exist on disk, it resolves the deepest
// existing ancestor and rejoins the remainder, so a not-yet-created file
// inside an existing directory still canonicalizes sensibly.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return resolveNonexistent(abs)
	}
	return filepath.Clean(resolved), nil
}

func resolveNonexistent(abs string) (string, error) {
	dir := filepath.Dir(abs)
	base := filepath.Base(abs)
	for dir != filepath.Dir(dir) {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(resolved, base), nil
		}
		base = filepath.Join(filepath.Base(dir), base)
		dir = filepath.Dir(dir)
	}
	return filepath.Clean(abs), nil
}

// IsWithin reports whether target is root itself or a descendant of it.
// Both arguments must already be canonicalized; IsWithin does no resolution
// of its own.
func IsWithin(target, root string) bool {
	if target == root {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(target, strings.TrimSuffix(root, sep)+sep)
}
