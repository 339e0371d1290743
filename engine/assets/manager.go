package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

const (
	DefaultRegistryFile = "AssetRegistry.json"

	// The first watcher event for a path the manager wrote itself within this
	// window is ignored.
	selfWriteWindow = 500 * time.Millisecond
)

// LoadedAsset is a decoded asset published to the cache.
type LoadedAsset struct {
	Handle metadata.AssetHandle
	Type   metadata.AssetType
	Data   any
}

type Option func(*AssetManager)

// WithWorkers sets the decode pool size; n <= 0 uses runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(am *AssetManager) {
		am.workers = n
	}
}

func WithRegistryFile(name string) Option {
	return func(am *AssetManager) {
		am.registryFile = platform.CleanPath(name)
	}
}

func WithDecoder(assetType metadata.AssetType, d Decoder) Option {
	return func(am *AssetManager) {
		am.decoders[assetType] = d
	}
}

// WithSchema sets the value the JSON fallback decodes assetType into.
func WithSchema(assetType metadata.AssetType, fn SchemaFunc) Option {
	return func(am *AssetManager) {
		am.schemas[assetType] = fn
	}
}

func WithMetrics(m *core.PipelineMetrics) Option {
	return func(am *AssetManager) {
		am.metrics = m
	}
}

// WithAutoImport registers recognized files that appear under a watched root.
func WithAutoImport(enabled bool) Option {
	return func(am *AssetManager) {
		am.autoImport = enabled
	}
}

type fileEvent struct {
	path string
	kind EventKind
	at   time.Time
}

// AssetManager owns the registry, the worker pool and the loaded-asset cache.
// Apart from the file notifier callback, every method is meant to be called
// from one owner goroutine; the cache has no lock because only that goroutine
// touches it.
type AssetManager struct {
	fsys         platform.FileSystem
	registry     *Registry
	registryFile string
	workers      int
	autoImport   bool
	metrics      *core.PipelineMetrics

	decodersMu sync.RWMutex
	decoders   map[metadata.AssetType]Decoder
	schemas    map[metadata.AssetType]SchemaFunc

	pool  *WorkerPool
	cache map[metadata.AssetHandle]*LoadedAsset
	// handles whose custom metadata changed since the last registry write
	dirty      map[metadata.AssetHandle]struct{}
	selfWrites map[string]time.Time

	eventsMu sync.Mutex
	events   []fileEvent
	notifier FileChangeNotifier

	closeOnce sync.Once
}

// NewAssetManager loads the registry file from fsys, if there is one, and
// starts the worker pool. The built-in decoders are registered first so
// options can replace them.
func NewAssetManager(fsys platform.FileSystem, opts ...Option) (*AssetManager, error) {
	am := &AssetManager{
		fsys:         fsys,
		registry:     NewRegistry(),
		registryFile: DefaultRegistryFile,
		decoders:     make(map[metadata.AssetType]Decoder),
		schemas:      make(map[metadata.AssetType]SchemaFunc),
		cache:        make(map[metadata.AssetHandle]*LoadedAsset),
		dirty:        make(map[metadata.AssetHandle]struct{}),
		selfWrites:   make(map[string]time.Time),
	}
	for t, d := range loaders.Defaults() {
		am.decoders[t] = d
	}
	for _, opt := range opts {
		opt(am)
	}

	if err := am.registry.LoadFromFile(fsys, am.registryFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		core.LogInfo("no asset registry at %s, starting empty", fsys.Abs(am.registryFile))
	}

	am.pool = NewWorkerPool(am.workers, am.decodeAsset, am.metrics)
	core.LogInfo("asset manager initialized with %d assets", am.registry.Len())
	return am, nil
}

// RegisterDecoder replaces the decoder for a type. Safe to call while loads are in flight.
func (am *AssetManager) RegisterDecoder(assetType metadata.AssetType, d Decoder) {
	am.decodersMu.Lock()
	defer am.decodersMu.Unlock()
	am.decoders[assetType] = d
}

func (am *AssetManager) RegisterSchema(assetType metadata.AssetType, fn SchemaFunc) {
	am.decodersMu.Lock()
	defer am.decodersMu.Unlock()
	am.schemas[assetType] = fn
}

func (am *AssetManager) Registry() *Registry {
	return am.registry
}

func (am *AssetManager) Metadata(h metadata.AssetHandle) (metadata.AssetMetadata, error) {
	return am.registry.Get(h)
}

func (am *AssetManager) CachedCount() int {
	return len(am.cache)
}

// GetAsset never blocks. It returns the cached asset once loaded and nil
// while the asset is still on its way; the first call for an Unloaded asset
// queues its load. A Failed asset returns its *DecodeError until RetryAsset.
func (am *AssetManager) GetAsset(h metadata.AssetHandle, assetType metadata.AssetType) (*LoadedAsset, error) {
	md, err := am.registry.Get(h)
	if err != nil {
		return nil, err
	}
	if md.Type != assetType {
		return nil, fmt.Errorf("%w: %s is %s, requested %s", ErrTypeMismatch, h, md.Type, assetType)
	}

	switch md.LoadState {
	case metadata.LoadStateLoaded:
		if a, ok := am.cache[h]; ok {
			return a, nil
		}
		core.LogWarn("asset %s is Loaded but not cached, reloading", md.Path)
		return nil, am.requestLoad(h)
	case metadata.LoadStateUnloaded:
		return nil, am.requestLoad(h)
	case metadata.LoadStateFailed:
		return nil, md.LoadError
	default:
		return nil, nil
	}
}

// RegisterAsset adds a file-backed asset and persists the registry.
func (am *AssetManager) RegisterAsset(p string, assetType metadata.AssetType) (metadata.AssetHandle, error) {
	md, err := am.registry.Register(p, assetType)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	if err := am.persist(); err != nil {
		_, _ = am.registry.Remove(md.Handle)
		return metadata.InvalidHandle, err
	}
	core.LogDebug("registered %s asset %s as %s", md.Type, md.Path, md.Handle)
	return md.Handle, nil
}

// CreateVirtualAsset publishes an already-built object. Virtual assets have no
// backing file, are never persisted and never go through the worker pool.
func (am *AssetManager) CreateVirtualAsset(assetType metadata.AssetType, asset any, name, p string) (metadata.AssetHandle, error) {
	md, err := am.registry.CreateVirtual(assetType, name, p)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	am.cache[md.Handle] = &LoadedAsset{Handle: md.Handle, Type: md.Type, Data: asset}
	am.metrics.SetCached(len(am.cache))
	return md.Handle, nil
}

// SetCustomMetadata replaces decoder-owned metadata. For a Loaded asset the
// next SaveAsset persists it along with the asset; otherwise the registry is
// written right away.
func (am *AssetManager) SetCustomMetadata(h metadata.AssetHandle, custom metadata.CustomMetadata) error {
	if custom != nil && custom.Type() == "" {
		return fmt.Errorf("%w: custom metadata without %s", ErrInvalidAsset, metadata.CustomMetadataTypeKey)
	}
	if err := am.registry.SetCustom(h, custom); err != nil {
		return err
	}
	md, err := am.registry.Get(h)
	if err != nil {
		return err
	}
	if !md.IsSerializable() {
		return nil
	}
	if md.LoadState == metadata.LoadStateLoaded {
		am.dirty[h] = struct{}{}
		return nil
	}
	if err := am.persist(); err != nil {
		return err
	}
	delete(am.dirty, h)
	return nil
}

// SaveAsset writes the cached asset through its decoder and immediately
// reloads it on the calling goroutine, so memory matches exactly what was
// persisted. The registry is written when the entry's metadata changed.
func (am *AssetManager) SaveAsset(h metadata.AssetHandle) error {
	md, err := am.registry.Get(h)
	if err != nil {
		return err
	}
	if md.LoadState != metadata.LoadStateLoaded {
		return fmt.Errorf("%w: %s is %s", ErrAssetNotLoaded, md.Path, md.LoadState)
	}
	if md.IsVirtual {
		return nil
	}
	cached, ok := am.cache[h]
	if !ok {
		return fmt.Errorf("%w: %s is not cached", ErrAssetNotLoaded, md.Path)
	}

	d := am.decoderFor(md.Type)
	am.markSelfWrite(md.Path)
	if err := d.Save(am.fsys, md, cached.Data); err != nil {
		return saveError(md, err)
	}

	if _, err := am.registry.transition(h, metadata.LoadStateLoading, nil); err != nil {
		return err
	}
	data, err := d.Load(am.fsys, md)
	if err != nil {
		decErr := &DecodeError{Handle: h, Type: md.Type, Path: md.Path, Err: err}
		delete(am.cache, h)
		_, _ = am.registry.transition(h, metadata.LoadStateFailed, decErr)
		am.metrics.LoadCompleted(md.Type.String(), false)
		am.metrics.SetCached(len(am.cache))
		return decErr
	}
	am.cache[h] = &LoadedAsset{Handle: h, Type: md.Type, Data: data}
	if _, err := am.registry.transition(h, metadata.LoadStateLoaded, nil); err != nil {
		return err
	}

	if _, changed := am.dirty[h]; changed && md.IsSerializable() {
		if err := am.persist(); err != nil {
			return err
		}
		delete(am.dirty, h)
	}
	return nil
}

// RefreshAsset re-saves an asset that is already Loaded and does nothing otherwise.
func (am *AssetManager) RefreshAsset(h metadata.AssetHandle) error {
	md, err := am.registry.Get(h)
	if err != nil {
		return err
	}
	if md.LoadState != metadata.LoadStateLoaded {
		return nil
	}
	return am.SaveAsset(h)
}

// ReloadAsset re-reads a Loaded asset from disk through the worker pool.
// The asset reads as not ready until the next drain publishes it.
func (am *AssetManager) ReloadAsset(h metadata.AssetHandle) error {
	md, err := am.registry.Get(h)
	if err != nil {
		return err
	}
	switch {
	case md.IsVirtual:
		return nil
	case md.LoadState == metadata.LoadStateLoaded:
		return am.requestLoad(h)
	case md.LoadState == metadata.LoadStateFailed:
		return am.RetryAsset(h)
	default:
		return nil
	}
}

// RetryAsset queues another load for a Failed asset.
func (am *AssetManager) RetryAsset(h metadata.AssetHandle) error {
	md, err := am.registry.Get(h)
	if err != nil {
		return err
	}
	if md.LoadState != metadata.LoadStateFailed {
		return fmt.Errorf("%w: %s is %s, not Failed", ErrInvalidTransition, md.Path, md.LoadState)
	}
	return am.requestLoad(h)
}

// UnloadAsset evicts a Loaded or Failed asset from the cache. The next
// GetAsset starts a fresh load.
func (am *AssetManager) UnloadAsset(h metadata.AssetHandle) error {
	md, err := am.registry.Get(h)
	if err != nil {
		return err
	}
	switch {
	case md.IsVirtual:
		return fmt.Errorf("%w: virtual asset %s cannot be unloaded", ErrInvalidAsset, md.Name)
	case md.LoadState == metadata.LoadStateLoading:
		return fmt.Errorf("%w: %s is still loading", ErrAssetNotLoaded, md.Path)
	case md.LoadState == metadata.LoadStateUnloaded:
		return nil
	}
	am.evict(h)
	return nil
}

// RemoveAsset unregisters an asset and drops it from the cache. The file on disk is left alone.
func (am *AssetManager) RemoveAsset(h metadata.AssetHandle) error {
	md, err := am.registry.Remove(h)
	if err != nil {
		return err
	}
	delete(am.cache, h)
	delete(am.dirty, h)
	am.metrics.SetCached(len(am.cache))
	if md.IsSerializable() {
		return am.persist()
	}
	return nil
}

// RenameAsset renames the backing file in place, keeping its extension.
func (am *AssetManager) RenameAsset(h metadata.AssetHandle, newName string) error {
	if err := validateAssetName(newName); err != nil {
		return err
	}
	md, err := am.registry.Get(h)
	if err != nil {
		return err
	}
	newPath := metadata.RenamedPath(md.Path, newName)
	if md.IsVirtual {
		newPath = md.Path
	}
	return am.relocate(md, newPath, func() error {
		_, err := am.registry.Rename(h, newName)
		return err
	})
}

// MoveAsset moves the backing file into newDir, keeping its file name.
func (am *AssetManager) MoveAsset(h metadata.AssetHandle, newDir string) error {
	md, err := am.registry.Get(h)
	if err != nil {
		return err
	}
	newPath := metadata.MovedPath(md.Path, platform.CleanPath(newDir))
	return am.relocate(md, newPath, func() error {
		_, err := am.registry.MoveTo(h, newDir)
		return err
	})
}

// relocate moves the file first and commits the metadata only once the
// filesystem agreed; a failed rename leaves the entry untouched. A queued
// load still points at the old path, so Loading entries are refused.
func (am *AssetManager) relocate(md metadata.AssetMetadata, newPath string, commit func() error) error {
	if md.LoadState == metadata.LoadStateLoading {
		return fmt.Errorf("%w: %s is still loading", ErrAssetNotLoaded, md.Path)
	}
	if !md.IsVirtual && newPath != md.Path {
		if am.registry.PathInUse(newPath, md.Handle) {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, newPath)
		}
		if _, err := am.fsys.Stat(newPath); err == nil {
			return fmt.Errorf("%w: %s already exists on disk", ErrDuplicatePath, newPath)
		}
		am.markSelfWrite(md.Path)
		am.markSelfWrite(newPath)
		if err := am.fsys.Rename(md.Path, newPath); err != nil {
			return &FilesystemError{Op: "rename", Path: md.Path, Err: err}
		}
	}

	if err := commit(); err != nil {
		if !md.IsVirtual && newPath != md.Path {
			if rbErr := am.fsys.Rename(newPath, md.Path); rbErr != nil {
				core.LogError("failed to restore %s after aborted rename: %s", md.Path, rbErr)
			}
		}
		return err
	}
	if md.IsSerializable() {
		return am.persist()
	}
	return nil
}

// ImportDirectory registers every recognized file under dir that is not yet
// known. It returns the number of new entries.
func (am *AssetManager) ImportDirectory(dir string) (int, error) {
	root := am.fsys.Abs(dir)
	imported := 0
	err := filepath.WalkDir(root, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := am.fsys.Rel(walkPath)
		if err != nil {
			return err
		}
		assetType := metadata.DetermineAssetType(rel)
		if assetType == metadata.AssetTypeInvalid || rel == am.registryFile {
			return nil
		}
		if _, known := am.registry.FindByPath(rel); known {
			return nil
		}
		if _, err := am.registry.Register(rel, assetType); err != nil {
			return err
		}
		imported++
		return nil
	})
	if err != nil {
		if imported > 0 {
			if pErr := am.persist(); pErr != nil {
				core.LogError("failed to persist %d imported assets: %s", imported, pErr)
			}
		}
		return imported, &FilesystemError{Op: "import", Path: dir, Err: err}
	}
	if imported > 0 {
		if err := am.persist(); err != nil {
			return imported, err
		}
	}
	core.LogInfo("imported %d new assets from %s", imported, root)
	return imported, nil
}

// Watch attaches a change notifier and starts it. Events are queued and
// applied by Update on the owner goroutine.
func (am *AssetManager) Watch(n FileChangeNotifier) error {
	am.notifier = n
	n.RegisterListener(am.enqueueFileEvent)
	return n.Start()
}

// Update is the per-tick entry point: it applies queued file events and then
// drains completed loads. It returns the number of load results applied.
func (am *AssetManager) Update() int {
	am.processFileEvents()
	return am.DrainCompletedLoads()
}

// DrainCompletedLoads publishes every finished load into the cache. This is
// the only place load results reach the cache or the registry. Results for
// handles that are no longer Loading are stale and dropped.
func (am *AssetManager) DrainCompletedLoads() int {
	results := am.pool.DrainResults()
	applied := 0
	for _, res := range results {
		md, err := am.registry.Get(res.Handle)
		if err != nil || md.LoadState != metadata.LoadStateLoading {
			core.LogDebug("dropping stale load result for %s", res.Handle)
			continue
		}

		if res.Err != nil {
			delete(am.cache, res.Handle)
			if _, err := am.registry.transition(res.Handle, metadata.LoadStateFailed, res.Err); err != nil {
				core.LogError("failed to mark %s as failed: %s", md.Path, err)
				continue
			}
			am.metrics.LoadCompleted(res.Type.String(), false)
			applied++
			continue
		}

		am.cache[res.Handle] = &LoadedAsset{Handle: res.Handle, Type: res.Type, Data: res.Asset}
		if _, err := am.registry.transition(res.Handle, metadata.LoadStateLoaded, nil); err != nil {
			core.LogError("failed to publish %s: %s", md.Path, err)
			delete(am.cache, res.Handle)
			continue
		}
		am.metrics.LoadCompleted(res.Type.String(), true)
		applied++
	}
	am.metrics.SetCached(len(am.cache))
	return applied
}

// Close stops the notifier and joins the worker pool. Loads still queued are dropped.
func (am *AssetManager) Close() error {
	var err error
	am.closeOnce.Do(func() {
		if am.notifier != nil {
			err = am.notifier.Close()
		}
		am.pool.Shutdown()
		core.LogInfo("asset manager shut down")
	})
	return err
}

func (am *AssetManager) requestLoad(h metadata.AssetHandle) error {
	md, err := am.registry.transition(h, metadata.LoadStateLoading, nil)
	if err != nil {
		return err
	}
	if err := am.pool.Submit(md); err != nil {
		_, _ = am.registry.transition(h, metadata.LoadStateUnloaded, nil)
		return err
	}
	return nil
}

func (am *AssetManager) evict(h metadata.AssetHandle) {
	delete(am.cache, h)
	if _, err := am.registry.transition(h, metadata.LoadStateUnloaded, nil); err != nil {
		core.LogError("failed to unload %s: %s", h, err)
	}
	am.metrics.SetCached(len(am.cache))
}

// decodeAsset runs on worker goroutines.
func (am *AssetManager) decodeAsset(md metadata.AssetMetadata) (any, error) {
	return am.decoderFor(md.Type).Load(am.fsys, md)
}

func (am *AssetManager) decoderFor(assetType metadata.AssetType) Decoder {
	am.decodersMu.RLock()
	defer am.decodersMu.RUnlock()
	if d, ok := am.decoders[assetType]; ok {
		return d
	}
	return &JSONDecoder{Schema: am.schemas[assetType]}
}

func (am *AssetManager) persist() error {
	am.markSelfWrite(am.registryFile)
	return am.registry.SaveToFile(am.fsys, am.registryFile)
}

func (am *AssetManager) enqueueFileEvent(p string, kind EventKind) {
	am.eventsMu.Lock()
	defer am.eventsMu.Unlock()
	am.events = append(am.events, fileEvent{path: platform.CleanPath(p), kind: kind, at: time.Now()})
}

func (am *AssetManager) processFileEvents() {
	am.eventsMu.Lock()
	events := am.events
	am.events = nil
	am.eventsMu.Unlock()

	for _, ev := range events {
		if am.isSelfWrite(ev) {
			continue
		}
		md, known := am.registry.FindByPath(ev.path)

		switch ev.kind {
		case EventModified, EventCreated:
			if known {
				if md.LoadState == metadata.LoadStateLoaded || md.LoadState == metadata.LoadStateFailed {
					core.LogInfo("%s changed on disk, reloading", ev.path)
					if err := am.ReloadAsset(md.Handle); err != nil {
						core.LogError("failed to reload %s: %s", ev.path, err)
					}
				}
				continue
			}
			if ev.kind == EventCreated && am.autoImport && ev.path != am.registryFile {
				assetType := metadata.DetermineAssetType(ev.path)
				if assetType == metadata.AssetTypeInvalid {
					continue
				}
				if _, err := am.RegisterAsset(ev.path, assetType); err != nil {
					core.LogError("failed to import %s: %s", ev.path, err)
				}
			}

		case EventRemoved, EventRenamed:
			// metadata stays: editors often save by remove-then-create
			if known && (md.LoadState == metadata.LoadStateLoaded || md.LoadState == metadata.LoadStateFailed) {
				core.LogInfo("%s %s on disk, evicting", ev.path, ev.kind)
				am.evict(md.Handle)
			}
		}
	}

	now := time.Now()
	for p, at := range am.selfWrites {
		if now.Sub(at) > selfWriteWindow {
			delete(am.selfWrites, p)
		}
	}
}

func (am *AssetManager) markSelfWrite(p string) {
	am.selfWrites[platform.CleanPath(p)] = time.Now()
}

// isSelfWrite consumes the mark for ev.path, so only one event per write is
// swallowed and a later external edit still reaches the reload path.
func (am *AssetManager) isSelfWrite(ev fileEvent) bool {
	at, ok := am.selfWrites[ev.path]
	if !ok {
		return false
	}
	delete(am.selfWrites, ev.path)
	return ev.at.Sub(at) < selfWriteWindow
}

func saveError(md metadata.AssetMetadata, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &FilesystemError{Op: "save", Path: md.Path, Err: err}
	}
	return &DecodeError{Handle: md.Handle, Type: md.Type, Path: md.Path, Err: err}
}
