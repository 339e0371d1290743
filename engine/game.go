package engine

import (
	"time"

	"github.com/spaghettifunk/anima-assets/engine/assets"
)

// Game is the application driven by the engine. Every hook runs on the
// goroutine that owns the asset manager, so hooks may call it freely.
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnShutdown        Shutdown
}

type Initialize func(am *assets.AssetManager) error
type Update func(am *assets.AssetManager, deltaTime time.Duration) error
type Shutdown func() error
