package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	md, err := r.Register("./textures//a.png", metadata.AssetTypeTexture2D)
	require.NoError(t, err)
	assert.True(t, md.Handle.IsValid())
	assert.Equal(t, "textures/a.png", md.Path)
	assert.Equal(t, "a", md.Name)
	assert.Equal(t, metadata.LoadStateUnloaded, md.LoadState)
	assert.False(t, md.IsVirtual)

	got, err := r.Get(md.Handle)
	require.NoError(t, err)
	assert.Equal(t, md, got)

	found, ok := r.FindByPath("textures/a.png")
	require.True(t, ok)
	assert.Equal(t, md.Handle, found.Handle)
}

func TestRegistryRegisterRejectsInvalid(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register("", metadata.AssetTypeTexture2D)
	assert.ErrorIs(t, err, ErrInvalidAsset)
	_, err = r.Register("a.png", metadata.AssetTypeInvalid)
	assert.ErrorIs(t, err, ErrInvalidAsset)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryDuplicatePathLeavesRegistryUnchanged(t *testing.T) {
	r := NewRegistry()
	first, err := r.Register("textures/a.png", metadata.AssetTypeTexture2D)
	require.NoError(t, err)
	before := r.All()

	_, err = r.Register("textures/a.png", metadata.AssetTypeTexture2D)
	assert.ErrorIs(t, err, ErrDuplicatePath)
	_, err = r.CreateVirtual(metadata.AssetTypeTexture2D, "a", "textures/a.png")
	assert.ErrorIs(t, err, ErrDuplicatePath)

	assert.Equal(t, before, r.All())
	got, err := r.Get(first.Handle)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	md, err := r.Register("a.png", metadata.AssetTypeTexture2D)
	require.NoError(t, err)
	require.NoError(t, r.SetCustom(md.Handle, metadata.CustomMetadata{"$Type": "TextureSettings", "FlipY": true}))

	got, err := r.Get(md.Handle)
	require.NoError(t, err)
	got.Custom["FlipY"] = false
	got.Path = "elsewhere.png"

	again, err := r.Get(md.Handle)
	require.NoError(t, err)
	assert.Equal(t, true, again.Custom["FlipY"])
	assert.Equal(t, "a.png", again.Path)
}

func TestRegistryUnknownHandle(t *testing.T) {
	r := NewRegistry()
	h := metadata.NewAssetHandle()

	_, err := r.Get(h)
	assert.ErrorIs(t, err, ErrUnknownHandle)
	_, err = r.Remove(h)
	assert.ErrorIs(t, err, ErrUnknownHandle)
	_, err = r.Rename(h, "x")
	assert.ErrorIs(t, err, ErrUnknownHandle)
	_, err = r.transition(h, metadata.LoadStateLoading, nil)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestRegistryCreateVirtual(t *testing.T) {
	r := NewRegistry()
	md, err := r.CreateVirtual(metadata.AssetTypeMaterial, "Runtime", "")
	require.NoError(t, err)
	assert.True(t, md.IsVirtual)
	assert.True(t, md.DontSerialize)
	assert.False(t, md.IsSerializable())
	assert.Equal(t, metadata.LoadStateLoaded, md.LoadState)

	// virtual entries never own a path, so two may share one
	_, err = r.CreateVirtual(metadata.AssetTypeMaterial, "Other", "")
	require.NoError(t, err)
	_, ok := r.FindByPath("")
	assert.False(t, ok)
}

func TestRegistryRenameAndMove(t *testing.T) {
	r := NewRegistry()
	a, err := r.Register("textures/a.png", metadata.AssetTypeTexture2D)
	require.NoError(t, err)
	_, err = r.Register("textures/b.png", metadata.AssetTypeTexture2D)
	require.NoError(t, err)

	renamed, err := r.Rename(a.Handle, "c")
	require.NoError(t, err)
	assert.Equal(t, "textures/c.png", renamed.Path)
	assert.Equal(t, "c", renamed.Name)

	_, err = r.Rename(a.Handle, "b")
	assert.ErrorIs(t, err, ErrDuplicatePath)
	_, err = r.Rename(a.Handle, "../escape")
	assert.ErrorIs(t, err, ErrInvalidAsset)

	moved, err := r.MoveTo(a.Handle, "ui/icons")
	require.NoError(t, err)
	assert.Equal(t, "ui/icons/c.png", moved.Path)
	assert.Equal(t, a.Handle, moved.Handle)

	_, ok := r.FindByPath("textures/c.png")
	assert.False(t, ok)
}

func TestRegistryVirtualRenameKeepsPath(t *testing.T) {
	r := NewRegistry()
	v, err := r.CreateVirtual(metadata.AssetTypeScene, "Untitled", "")
	require.NoError(t, err)

	renamed, err := r.Rename(v.Handle, "Level1")
	require.NoError(t, err)
	assert.Equal(t, "Level1", renamed.Name)
	assert.Equal(t, "", renamed.Path)
}

func TestRegistryTransitions(t *testing.T) {
	r := NewRegistry()
	md, err := r.Register("a.bin", metadata.AssetTypeBinary)
	require.NoError(t, err)
	h := md.Handle

	_, err = r.transition(h, metadata.LoadStateLoaded, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := r.transition(h, metadata.LoadStateLoading, nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.LoadStateLoading, got.LoadState)

	cause := &DecodeError{Handle: h, Type: md.Type, Path: md.Path}
	got, err = r.transition(h, metadata.LoadStateFailed, cause)
	require.NoError(t, err)
	assert.Equal(t, metadata.LoadStateFailed, got.LoadState)
	assert.Equal(t, cause, got.LoadError)

	_, err = r.transition(h, metadata.LoadStateLoaded, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err = r.transition(h, metadata.LoadStateLoading, nil)
	require.NoError(t, err)
	assert.Nil(t, got.LoadError)
}

func TestRegistryAllIsSortedByPath(t *testing.T) {
	r := NewRegistry()
	for _, p := range []string{"z.bin", "a/b.bin", "m.bin"} {
		_, err := r.Register(p, metadata.AssetTypeBinary)
		require.NoError(t, err)
	}
	var paths []string
	for _, md := range r.All() {
		paths = append(paths, md.Path)
	}
	assert.Equal(t, []string{"a/b.bin", "m.bin", "z.bin"}, paths)
}
