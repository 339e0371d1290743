package testbed

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		listType = ""
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"assets/textures/a.png":  "x",
		"assets/models/cube.obj": "v 0 0 0",
		"assets/notes.txt":       "ignored",
		"anima.toml":             "[assets]\nwatch = false\n\n[logging]\nlevel = \"error\"\n",
	}
	for p, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func TestImportThenList(t *testing.T) {
	dir := writeProject(t)

	out := runCommand(t, "import", "--project", dir)
	assert.Contains(t, out, "imported 2 new assets (2 registered)")

	out = runCommand(t, "list", "--project", dir)
	assert.Contains(t, out, "textures/a.png")
	assert.Contains(t, out, "models/cube.obj")
	assert.NotContains(t, out, "notes.txt")

	out = runCommand(t, "list", "--project", dir, "--type", "Mesh")
	assert.Contains(t, out, "models/cube.obj")
	assert.NotContains(t, out, "textures/a.png")
}

func TestListRejectsUnknownType(t *testing.T) {
	dir := writeProject(t)
	rootCmd.SetArgs([]string{"list", "--project", dir, "--type", "Hologram"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		listType = ""
	})
	assert.Error(t, rootCmd.Execute())
}
