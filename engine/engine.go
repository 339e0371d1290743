package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released every resource
	EngineStageShutdown
)

// Engine is a headless host for the asset pipeline. It owns one project at a
// time: its asset manager, the file watcher and the tick loop driving them.
type Engine struct {
	currentStage    Stage
	gameInstance    *Game
	assetManager    *assets.AssetManager
	metrics         *core.PipelineMetrics
	metricsRegistry *prometheus.Registry
	tick            time.Duration
	clock           *core.Clock
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil || g.ApplicationConfig.Config == nil {
		return nil, fmt.Errorf("%w: missing application config", core.ErrInvalidConfig)
	}
	cfg := g.ApplicationConfig.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tick, err := cfg.TickInterval()
	if err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.Logging.Level)

	reg := prometheus.NewRegistry()
	e := &Engine{
		currentStage:    EngineStageUninitialized,
		gameInstance:    g,
		metrics:         core.NewPipelineMetrics(reg),
		metricsRegistry: reg,
		tick:            tick,
		clock:           core.NewClock(),
	}
	if err := e.openProject(g.ApplicationConfig); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) AssetManager() *assets.AssetManager {
	return e.assetManager
}

// Metrics is the registry the pipeline metrics are recorded in.
func (e *Engine) Metrics() *prometheus.Registry {
	return e.metricsRegistry
}

// SwitchProject tears down the current project's manager and watcher and
// opens the project described by app. It is not allowed while running.
func (e *Engine) SwitchProject(app *ApplicationConfig) error {
	if e.currentStage == EngineStageRunning {
		return errors.New("cannot switch project while the engine is running")
	}
	if err := app.Config.Validate(); err != nil {
		return err
	}
	if err := e.openProject(app); err != nil {
		return err
	}
	e.gameInstance.ApplicationConfig = app
	e.currentStage = EngineStageUninitialized
	return nil
}

func (e *Engine) openProject(app *ApplicationConfig) error {
	cfg := app.Config
	fsys := platform.NewOSFileSystem(app.AssetRoot())
	am, err := assets.NewAssetManager(fsys,
		assets.WithWorkers(cfg.Assets.Workers),
		assets.WithRegistryFile(cfg.Assets.Registry),
		assets.WithAutoImport(cfg.Assets.AutoImport),
		assets.WithMetrics(e.metrics),
	)
	if err != nil {
		return err
	}

	if e.assetManager != nil {
		if err := e.assetManager.Close(); err != nil {
			core.LogWarn("failed to close previous asset manager: %s", err)
		}
	}
	e.assetManager = am
	core.LogInfo("opened project %s (assets in %s)", app.Name, fsys.Root())
	return nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine already initialized (stage %d)", e.currentStage)
	}
	e.currentStage = EngineStageInitializing
	app := e.gameInstance.ApplicationConfig

	if app.Config.Assets.AutoImport {
		if _, err := e.assetManager.ImportDirectory("."); err != nil {
			return err
		}
	}
	if app.Config.Assets.Watch {
		n, err := assets.NewFSNotifier(app.AssetRoot())
		if err != nil {
			return err
		}
		if err := e.assetManager.Watch(n); err != nil {
			_ = n.Close()
			return err
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.assetManager); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run ticks the asset manager until ctx is cancelled or the game update fails.
// The tick loop becomes the owner goroutine of the asset manager.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine not initialized (stage %d)", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	defer func() { e.currentStage = EngineStageInitialized }()

	g, ctx := errgroup.WithContext(ctx)
	if listen := e.gameInstance.ApplicationConfig.Config.Metrics.Listen; listen != "" {
		e.serveMetrics(ctx, g, listen)
	}
	g.Go(func() error {
		return e.loop(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (e *Engine) loop(ctx context.Context) error {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	e.clock.Start()
	lastTime := e.clock.Elapsed()
	for {
		select {
		case <-ctx.Done():
			e.clock.Stop()
			return ctx.Err()
		case <-ticker.C:
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - lastTime
		lastTime = currentTime

		e.assetManager.Update()
		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e.assetManager, delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				return err
			}
		}
	}
}

func (e *Engine) serveMetrics(ctx context.Context, g *errgroup.Group, listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.metricsRegistry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		core.LogInfo("serving metrics on %s/metrics", listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs []error
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.assetManager.Close(); err != nil {
		errs = append(errs, err)
	}
	e.currentStage = EngineStageShutdown
	return errors.Join(errs...)
}
