package resource

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// Walk returns the relative, slash-separated paths of every regular file
// below the root of fsys. Symbolic links that resolve to regular files are
// included. Duplicates collapse to one entry; the result is sorted so that
// display order is stable, but callers must not rely on order otherwise.
func Walk(fsys fs.FS) ([]string, error) {
	seen := make(map[string]struct{})

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip directories
		if d.IsDir() {
			return nil
		}

		if !d.Type().IsRegular() {
			// Unresolvable links fail the walk like unreadable files.
			info, err := fs.Stat(fsys, p)
			if err != nil {
				return fmt.Errorf("stat %s: %w", p, err)
			}
			if !info.Mode().IsRegular() {
				return nil
			}
		}

		seen[normalizePath(p)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)

	return files, nil
}

// WalkDir is Walk over a directory on disk. A missing root or a root that is
// not a directory yields an error wrapping fs.ErrNotExist.
func WalkDir(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("walk %s: not a directory: %w", root, fs.ErrNotExist)
	}

	return Walk(os.DirFS(root))
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return path.Clean(p)
}
