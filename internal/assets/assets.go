// Package assets provides the built-in sketch templates and the demo input
// used by new projects.
package assets

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed templates demo
var embedFS embed.FS

// Templates returns the built-in template tree.
func Templates() fs.FS {
	return sub("templates")
}

// Demo returns the demo input tree copied into new projects.
func Demo() fs.FS {
	return sub("demo")
}

func sub(dir string) fs.FS {
	fsys, err := fs.Sub(embedFS, dir)
	if err != nil {
		panic(err)
	}
	return fsys
}

// CopyTo writes every file of fsys below target, creating directories as
// needed. Existing files are overwritten.
func CopyTo(fsys fs.FS, target string) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		dest := filepath.Join(target, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		return os.WriteFile(dest, data, 0644)
	})
}
