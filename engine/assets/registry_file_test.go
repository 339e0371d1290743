package assets

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

func TestRegistryFileRoundTrip(t *testing.T) {
	fsys := platform.NewOSFileSystem(t.TempDir())
	r := NewRegistry()

	tex, err := r.Register("textures/a.png", metadata.AssetTypeTexture2D)
	require.NoError(t, err)
	require.NoError(t, r.SetCustom(tex.Handle, metadata.CustomMetadata{"$Type": "TextureSettings", "FlipY": true}))
	mesh, err := r.Register("models/cube.obj", metadata.AssetTypeMesh)
	require.NoError(t, err)
	_, err = r.transition(mesh.Handle, metadata.LoadStateLoading, nil)
	require.NoError(t, err)
	_, err = r.CreateVirtual(metadata.AssetTypeMaterial, "Runtime", "")
	require.NoError(t, err)

	require.NoError(t, r.SaveToFile(fsys, DefaultRegistryFile))

	loaded := NewRegistry()
	require.NoError(t, loaded.LoadFromFile(fsys, DefaultRegistryFile))
	assert.Equal(t, 2, loaded.Len())

	got, err := loaded.Get(tex.Handle)
	require.NoError(t, err)
	assert.Equal(t, metadata.AssetTypeTexture2D, got.Type)
	assert.Equal(t, "textures/a.png", got.Path)
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, "TextureSettings", got.Custom.Type())
	assert.True(t, got.Custom.Bool("FlipY"))

	// load state is never persisted
	got, err = loaded.Get(mesh.Handle)
	require.NoError(t, err)
	assert.Equal(t, metadata.LoadStateUnloaded, got.LoadState)
}

func TestRegistryFileIsIdempotent(t *testing.T) {
	fsys := platform.NewOSFileSystem(t.TempDir())
	r := NewRegistry()
	for _, p := range []string{"b.bin", "a.bin", "c/d.png"} {
		_, err := r.Register(p, metadata.DetermineAssetType(p))
		require.NoError(t, err)
	}
	require.NoError(t, r.SaveToFile(fsys, "first.json"))

	loaded := NewRegistry()
	require.NoError(t, loaded.LoadFromFile(fsys, "first.json"))
	require.NoError(t, loaded.SaveToFile(fsys, "second.json"))

	first, err := fsys.ReadFile("first.json")
	require.NoError(t, err)
	second, err := fsys.ReadFile("second.json")
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestRegistryFileMissing(t *testing.T) {
	fsys := platform.NewOSFileSystem(t.TempDir())
	err := NewRegistry().LoadFromFile(fsys, DefaultRegistryFile)

	var fsErr *FilesystemError
	require.True(t, errors.As(err, &fsErr))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRegistryFileCorruptLeavesRegistryUnchanged(t *testing.T) {
	docs := map[string]string{
		"not json":         `{"$Type": "AssetRegistry", "Assets": [`,
		"wrong type":       `{"$Type": "SceneFile", "Assets": []}`,
		"zero handle":      `{"$Type": "AssetRegistry", "Assets": [{"Handle": 0, "Type": "Binary", "Path": "a.bin"}]}`,
		"unknown type":     `{"$Type": "AssetRegistry", "Assets": [{"Handle": 1, "Type": "Hologram", "Path": "a.bin"}]}`,
		"empty path":       `{"$Type": "AssetRegistry", "Assets": [{"Handle": 1, "Type": "Binary", "Path": ""}]}`,
		"duplicate path":   `{"$Type": "AssetRegistry", "Assets": [{"Handle": 1, "Type": "Binary", "Path": "a.bin"}, {"Handle": 2, "Type": "Binary", "Path": "a.bin"}]}`,
		"duplicate handle": `{"$Type": "AssetRegistry", "Assets": [{"Handle": 1, "Type": "Binary", "Path": "a.bin"}, {"Handle": 1, "Type": "Binary", "Path": "b.bin"}]}`,
		"untyped custom":   `{"$Type": "AssetRegistry", "Assets": [{"Handle": 1, "Type": "Binary", "Path": "a.bin", "CustomMetadata": {"FlipY": true}}]}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			fsys := platform.NewOSFileSystem(t.TempDir())
			require.NoError(t, fsys.WriteFile(DefaultRegistryFile, []byte(doc)))

			r := NewRegistry()
			existing, err := r.Register("keep.bin", metadata.AssetTypeBinary)
			require.NoError(t, err)
			before := r.All()

			err = r.LoadFromFile(fsys, DefaultRegistryFile)
			assert.ErrorIs(t, err, ErrRegistryCorrupt)
			assert.Equal(t, before, r.All())
			_, err = r.Get(existing.Handle)
			assert.NoError(t, err)
		})
	}
}

func TestRegistryFileKeepsVirtualEntries(t *testing.T) {
	fsys := platform.NewOSFileSystem(t.TempDir())
	doc := `{"$Type": "AssetRegistry", "Assets": [{"Handle": 42, "Type": "Binary", "Path": "a.bin", "Name": "a"}]}`
	require.NoError(t, fsys.WriteFile(DefaultRegistryFile, []byte(doc)))

	r := NewRegistry()
	v, err := r.CreateVirtual(metadata.AssetTypeMaterial, "Runtime", "")
	require.NoError(t, err)
	_, err = r.Register("stale.bin", metadata.AssetTypeBinary)
	require.NoError(t, err)

	require.NoError(t, r.LoadFromFile(fsys, DefaultRegistryFile))
	assert.Equal(t, 2, r.Len())
	_, err = r.Get(v.Handle)
	assert.NoError(t, err)
	_, err = r.Get(metadata.AssetHandle(42))
	assert.NoError(t, err)
	_, ok := r.FindByPath("stale.bin")
	assert.False(t, ok)
}
