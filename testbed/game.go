package testbed

import (
	"time"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	// last load state reported per handle
	reported map[metadata.AssetHandle]metadata.LoadState
	elapsed  time.Duration
}

// NewTestGame requests every registered asset each tick and logs state
// changes, so edits on disk show up in the log as reloads.
func NewTestGame(app *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: app,
			State: &gameState{
				reported: make(map[metadata.AssetHandle]metadata.LoadState),
			},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(am *assets.AssetManager) error {
	core.LogInfo("%s: %d assets registered", g.ApplicationConfig.Name, am.Registry().Len())
	g.requestAll(am)
	return nil
}

func (g *TestGame) Update(am *assets.AssetManager, deltaTime time.Duration) error {
	g.state().elapsed += deltaTime
	g.requestAll(am)
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("%s: ran for %s", g.ApplicationConfig.Name, g.state().elapsed.Round(time.Millisecond))
	return nil
}

func (g *TestGame) requestAll(am *assets.AssetManager) {
	state := g.state()
	for _, md := range am.Registry().All() {
		// only Unloaded assets need a nudge; GetAsset is a no-op otherwise
		if md.LoadState == metadata.LoadStateUnloaded {
			if _, err := am.GetAsset(md.Handle, md.Type); err != nil {
				core.LogError("failed to request %s: %s", md.Path, err)
			}
		}
		if prev, ok := state.reported[md.Handle]; ok && prev == md.LoadState {
			continue
		}
		state.reported[md.Handle] = md.LoadState
		switch md.LoadState {
		case metadata.LoadStateLoaded:
			core.LogInfo("%s %s ready", md.Type, md.Path)
		case metadata.LoadStateFailed:
			core.LogWarn("%s %s failed: %s", md.Type, md.Path, md.LoadError)
		}
	}
}
