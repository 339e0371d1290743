package assets

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

// Registry is the single source of truth for which assets exist and what
// state they are in. All access goes through one RWMutex; View and Update
// hand out the map only for the duration of the callback.
type Registry struct {
	mu      sync.RWMutex
	entries map[metadata.AssetHandle]*metadata.AssetMetadata
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[metadata.AssetHandle]*metadata.AssetMetadata),
	}
}

// View runs fn under the read lock. fn must not retain the map or its values.
func (r *Registry) View(fn func(entries map[metadata.AssetHandle]*metadata.AssetMetadata)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.entries)
}

// Update runs fn under the write lock. fn validates before it mutates:
// nothing is rolled back when it returns an error.
func (r *Registry) Update(fn func(entries map[metadata.AssetHandle]*metadata.AssetMetadata) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.entries)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) Get(h metadata.AssetHandle) (metadata.AssetMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.entries[h]
	if !ok {
		return metadata.AssetMetadata{}, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	return md.Clone(), nil
}

// FindByPath is a linear scan; the registry holds thousands of entries, not millions.
func (r *Registry) FindByPath(p string) (metadata.AssetMetadata, bool) {
	p = platform.CleanPath(p)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if md := findByPath(r.entries, p, metadata.InvalidHandle); md != nil {
		return md.Clone(), true
	}
	return metadata.AssetMetadata{}, false
}

// PathInUse reports whether a non-virtual entry other than except owns p.
func (r *Registry) PathInUse(p string, except metadata.AssetHandle) bool {
	p = platform.CleanPath(p)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return findByPath(r.entries, p, except) != nil
}

// All returns copies of every entry sorted by path.
func (r *Registry) All() []metadata.AssetMetadata {
	r.mu.RLock()
	out := make([]metadata.AssetMetadata, 0, len(r.entries))
	for _, md := range r.entries {
		out = append(out, md.Clone())
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b metadata.AssetMetadata) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		switch {
		case a.Handle < b.Handle:
			return -1
		case a.Handle > b.Handle:
			return 1
		}
		return 0
	})
	return out
}

// Register adds a file-backed asset in the Unloaded state.
func (r *Registry) Register(p string, assetType metadata.AssetType) (metadata.AssetMetadata, error) {
	p = platform.CleanPath(p)
	if p == "" {
		return metadata.AssetMetadata{}, fmt.Errorf("%w: empty path", ErrInvalidAsset)
	}
	if !assetType.IsValid() {
		return metadata.AssetMetadata{}, fmt.Errorf("%w: type %s for %s", ErrInvalidAsset, assetType, p)
	}

	var out metadata.AssetMetadata
	err := r.Update(func(entries map[metadata.AssetHandle]*metadata.AssetMetadata) error {
		if findByPath(entries, p, metadata.InvalidHandle) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, p)
		}
		md := &metadata.AssetMetadata{
			Handle:    freshHandle(entries),
			Type:      assetType,
			Path:      p,
			Name:      metadata.NameFromPath(p),
			LoadState: metadata.LoadStateUnloaded,
		}
		entries[md.Handle] = md
		out = md.Clone()
		return nil
	})
	return out, err
}

// CreateVirtual adds an in-memory asset with no backing file. It starts out
// Loaded because the caller already holds the object.
func (r *Registry) CreateVirtual(assetType metadata.AssetType, name, p string) (metadata.AssetMetadata, error) {
	p = platform.CleanPath(p)
	if !assetType.IsValid() {
		return metadata.AssetMetadata{}, fmt.Errorf("%w: type %s for virtual asset %q", ErrInvalidAsset, assetType, name)
	}

	var out metadata.AssetMetadata
	err := r.Update(func(entries map[metadata.AssetHandle]*metadata.AssetMetadata) error {
		if p != "" && findByPath(entries, p, metadata.InvalidHandle) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, p)
		}
		md := &metadata.AssetMetadata{
			Handle:        freshHandle(entries),
			Type:          assetType,
			Path:          p,
			Name:          name,
			IsVirtual:     true,
			DontSerialize: true,
			LoadState:     metadata.LoadStateLoaded,
		}
		entries[md.Handle] = md
		out = md.Clone()
		return nil
	})
	return out, err
}

// Rename swaps the file name of an entry, keeping its directory and extension.
func (r *Registry) Rename(h metadata.AssetHandle, newName string) (metadata.AssetMetadata, error) {
	if err := validateAssetName(newName); err != nil {
		return metadata.AssetMetadata{}, err
	}
	return r.relocate(h, func(md *metadata.AssetMetadata) (string, string) {
		if md.IsVirtual {
			return md.Path, newName
		}
		return metadata.RenamedPath(md.Path, newName), newName
	})
}

// MoveTo swaps the directory of an entry, keeping its file name.
func (r *Registry) MoveTo(h metadata.AssetHandle, newDir string) (metadata.AssetMetadata, error) {
	newDir = platform.CleanPath(newDir)
	return r.relocate(h, func(md *metadata.AssetMetadata) (string, string) {
		if md.IsVirtual && md.Path == "" {
			return "", md.Name
		}
		return metadata.MovedPath(md.Path, newDir), md.Name
	})
}

func (r *Registry) relocate(h metadata.AssetHandle, target func(md *metadata.AssetMetadata) (string, string)) (metadata.AssetMetadata, error) {
	var out metadata.AssetMetadata
	err := r.Update(func(entries map[metadata.AssetHandle]*metadata.AssetMetadata) error {
		md, ok := entries[h]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
		}
		newPath, newName := target(md)
		if !md.IsVirtual && findByPath(entries, newPath, h) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, newPath)
		}
		md.Path = newPath
		md.Name = newName
		out = md.Clone()
		return nil
	})
	return out, err
}

// SetCustom replaces the decoder-owned metadata of an entry.
func (r *Registry) SetCustom(h metadata.AssetHandle, custom metadata.CustomMetadata) error {
	return r.Update(func(entries map[metadata.AssetHandle]*metadata.AssetMetadata) error {
		md, ok := entries[h]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
		}
		md.Custom = custom.Clone()
		return nil
	})
}

func (r *Registry) Remove(h metadata.AssetHandle) (metadata.AssetMetadata, error) {
	var out metadata.AssetMetadata
	err := r.Update(func(entries map[metadata.AssetHandle]*metadata.AssetMetadata) error {
		md, ok := entries[h]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
		}
		delete(entries, h)
		out = md.Clone()
		return nil
	})
	return out, err
}

// transition is the only writer of LoadState. The failure cause is kept only
// while the entry is Failed.
func (r *Registry) transition(h metadata.AssetHandle, to metadata.LoadState, cause error) (metadata.AssetMetadata, error) {
	var out metadata.AssetMetadata
	err := r.Update(func(entries map[metadata.AssetHandle]*metadata.AssetMetadata) error {
		md, ok := entries[h]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
		}
		if !md.LoadState.CanTransition(to) {
			return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, h, md.LoadState, to)
		}
		md.LoadState = to
		md.LoadError = nil
		if to == metadata.LoadStateFailed {
			md.LoadError = cause
		}
		out = md.Clone()
		return nil
	})
	return out, err
}

func validateAssetName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: name %q", ErrInvalidAsset, name)
	}
	return nil
}

func findByPath(entries map[metadata.AssetHandle]*metadata.AssetMetadata, p string, except metadata.AssetHandle) *metadata.AssetMetadata {
	for h, md := range entries {
		if h != except && !md.IsVirtual && md.Path == p {
			return md
		}
	}
	return nil
}

func freshHandle(entries map[metadata.AssetHandle]*metadata.AssetMetadata) metadata.AssetHandle {
	for {
		h := metadata.NewAssetHandle()
		if _, taken := entries[h]; !taken {
			return h
		}
	}
}
