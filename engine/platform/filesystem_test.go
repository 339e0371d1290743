package platform

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	cases := map[string]string{
		"textures/a.png":     "textures/a.png",
		"./textures/a.png":   "textures/a.png",
		"/textures//a.png":   "textures/a.png",
		"textures/../a.png":  "a.png",
		"../../escape/a.png": "escape/a.png",
		"":                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanPath(in), "CleanPath(%q)", in)
	}
}

func TestOSFileSystemReadWriteRename(t *testing.T) {
	fsys := NewOSFileSystem(t.TempDir())

	require.NoError(t, fsys.WriteFile("a/b/c.txt", []byte("hello")))
	data, err := fsys.ReadFile("a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, fsys.Rename("a/b/c.txt", "d/e.txt"))
	_, err = fsys.Stat("a/b/c.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	info, err := fsys.Stat("d/e.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
}

func TestOSFileSystemAbsRel(t *testing.T) {
	root := t.TempDir()
	fsys := NewOSFileSystem(root)

	abs := fsys.Abs("textures/a.png")
	assert.Equal(t, filepath.Join(fsys.Root(), "textures", "a.png"), abs)

	rel, err := fsys.Rel(abs)
	require.NoError(t, err)
	assert.Equal(t, "textures/a.png", rel)
}
