package platform

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystem is the file content reader/writer the asset pipeline runs
// against. Names are slash-separated and relative to the project asset root.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	// Rename moves a file, creating the destination's parent directories.
	Rename(oldName, newName string) error
	Stat(name string) (fs.FileInfo, error)
	// Abs resolves a name to an OS path, for libraries that only take paths.
	Abs(name string) string
	// Rel converts an OS path under the root back into a name.
	Rel(osPath string) (string, error)
	Root() string
}

type OSFileSystem struct {
	root string
}

func NewOSFileSystem(root string) *OSFileSystem {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	return &OSFileSystem{root: abs}
}

func (o *OSFileSystem) Root() string {
	return o.root
}

func (o *OSFileSystem) Abs(name string) string {
	return filepath.Join(o.root, filepath.FromSlash(CleanPath(name)))
}

func (o *OSFileSystem) Rel(osPath string) (string, error) {
	rel, err := filepath.Rel(o.root, osPath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (o *OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(o.Abs(name))
}

func (o *OSFileSystem) WriteFile(name string, data []byte) error {
	p := o.Abs(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (o *OSFileSystem) Rename(oldName, newName string) error {
	dst := o.Abs(newName)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(o.Abs(oldName), dst)
}

func (o *OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(o.Abs(name))
}

// CleanPath normalizes an asset path: forward slashes, no leading "./" or "/".
func CleanPath(p string) string {
	p = filepath.ToSlash(p)
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
