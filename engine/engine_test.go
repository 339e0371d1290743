package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

func newProject(t *testing.T, files map[string]string) *ApplicationConfig {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	for p, content := range files {
		full := filepath.Join(dir, "assets", filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	cfg := core.DefaultConfig()
	cfg.Assets.Watch = false
	cfg.Assets.Tick = "1ms"
	cfg.Assets.Workers = 2
	return &ApplicationConfig{Name: "test", ProjectDir: dir, Config: cfg}
}

func TestEngineRunLoadsEveryAsset(t *testing.T) {
	app := newProject(t, map[string]string{
		"data/a.bin": "a",
		"data/b.bin": "b",
	})

	var handles []metadata.AssetHandle
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	game := &Game{
		ApplicationConfig: app,
		FnInitialize: func(am *assets.AssetManager) error {
			for _, md := range am.Registry().All() {
				handles = append(handles, md.Handle)
				if _, err := am.GetAsset(md.Handle, md.Type); err != nil {
					return err
				}
			}
			return nil
		},
		FnUpdate: func(am *assets.AssetManager, _ time.Duration) error {
			if am.CachedCount() == len(handles) {
				cancel()
			}
			return nil
		},
	}

	e, err := New(game)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	assert.Equal(t, EngineStageInitialized, e.Stage())
	require.Len(t, handles, 2)

	require.NoError(t, e.Run(ctx))
	assert.Equal(t, 2, e.AssetManager().CachedCount())
	for _, h := range handles {
		md, err := e.AssetManager().Metadata(h)
		require.NoError(t, err)
		assert.Equal(t, metadata.LoadStateLoaded, md.LoadState)
	}

	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageShutdown, e.Stage())
	require.NoError(t, e.Shutdown())
}

func TestEngineRunStopsOnGameError(t *testing.T) {
	app := newProject(t, nil)
	boom := assert.AnError
	e, err := New(&Game{
		ApplicationConfig: app,
		FnUpdate: func(*assets.AssetManager, time.Duration) error {
			return boom
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })

	assert.Error(t, e.Run(context.Background()), "run before initialize")
	require.NoError(t, e.Initialize())
	assert.ErrorIs(t, e.Run(context.Background()), boom)
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	app := newProject(t, nil)
	app.Config.Assets.Tick = "soon"
	_, err := New(&Game{ApplicationConfig: app})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = New(&Game{})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestEngineSwitchProject(t *testing.T) {
	first := newProject(t, map[string]string{"a.bin": "a"})
	second := newProject(t, map[string]string{"b.bin": "b", "c.bin": "c"})

	e, err := New(&Game{ApplicationConfig: first})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })
	require.NoError(t, e.Initialize())
	assert.Equal(t, 1, e.AssetManager().Registry().Len())

	require.NoError(t, e.SwitchProject(second))
	assert.Equal(t, EngineStageUninitialized, e.Stage())
	require.NoError(t, e.Initialize())
	assert.Equal(t, 2, e.AssetManager().Registry().Len())
	_, ok := e.AssetManager().Registry().FindByPath("a.bin")
	assert.False(t, ok)
}
