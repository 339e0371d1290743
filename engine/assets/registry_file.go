package assets

import (
	"encoding/json"
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

const registryDocumentType = "AssetRegistry"

type registryDocument struct {
	Type   string           `json:"$Type"`
	Assets []registryRecord `json:"Assets"`
}

type registryRecord struct {
	Handle         metadata.AssetHandle    `json:"Handle"`
	Type           metadata.AssetType      `json:"Type"`
	Path           string                  `json:"Path"`
	Name           string                  `json:"Name"`
	CustomMetadata metadata.CustomMetadata `json:"CustomMetadata,omitempty"`
}

// SaveToFile writes every serializable entry to a single JSON document.
func (r *Registry) SaveToFile(fsys platform.FileSystem, name string) error {
	doc := registryDocument{
		Type:   registryDocumentType,
		Assets: []registryRecord{},
	}
	for _, md := range r.All() {
		if !md.IsSerializable() {
			continue
		}
		doc.Assets = append(doc.Assets, registryRecord{
			Handle:         md.Handle,
			Type:           md.Type,
			Path:           md.Path,
			Name:           md.Name,
			CustomMetadata: md.Custom,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode asset registry: %w", err)
	}
	if err := fsys.WriteFile(name, data); err != nil {
		return &FilesystemError{Op: "write", Path: name, Err: err}
	}
	core.LogDebug("asset registry saved to %s (%d entries)", name, len(doc.Assets))
	return nil
}

// LoadFromFile replaces every non-virtual entry with the contents of the
// document; loaded state resets to Unloaded. On any error the registry is
// left untouched.
func (r *Registry) LoadFromFile(fsys platform.FileSystem, name string) error {
	data, err := fsys.ReadFile(name)
	if err != nil {
		return &FilesystemError{Op: "read", Path: name, Err: err}
	}
	loaded, err := parseRegistryDocument(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRegistryCorrupt, name, err)
	}

	return r.Update(func(entries map[metadata.AssetHandle]*metadata.AssetMetadata) error {
		for h, md := range entries {
			if !md.IsVirtual {
				continue
			}
			if _, clash := loaded[h]; clash {
				return fmt.Errorf("%w: %s: handle %s belongs to a virtual asset", ErrRegistryCorrupt, name, h)
			}
		}
		for h, md := range entries {
			if !md.IsVirtual {
				delete(entries, h)
			}
		}
		for h, md := range loaded {
			entries[h] = md
		}
		core.LogDebug("asset registry loaded from %s (%d entries)", name, len(loaded))
		return nil
	})
}

func parseRegistryDocument(data []byte) (map[metadata.AssetHandle]*metadata.AssetMetadata, error) {
	var doc registryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Type != registryDocumentType {
		return nil, fmt.Errorf("document type %q, want %q", doc.Type, registryDocumentType)
	}

	out := make(map[metadata.AssetHandle]*metadata.AssetMetadata, len(doc.Assets))
	paths := make(map[string]metadata.AssetHandle, len(doc.Assets))
	for i, rec := range doc.Assets {
		if !rec.Handle.IsValid() {
			return nil, fmt.Errorf("entry %d: invalid handle", i)
		}
		if _, dup := out[rec.Handle]; dup {
			return nil, fmt.Errorf("entry %d: duplicate handle %s", i, rec.Handle)
		}
		if !rec.Type.IsValid() {
			return nil, fmt.Errorf("entry %d: missing type", i)
		}
		p := platform.CleanPath(rec.Path)
		if p == "" {
			return nil, fmt.Errorf("entry %d: empty path", i)
		}
		if other, dup := paths[p]; dup {
			return nil, fmt.Errorf("entry %d: path %s already used by %s", i, p, other)
		}
		if rec.CustomMetadata != nil && rec.CustomMetadata.Type() == "" {
			return nil, fmt.Errorf("entry %d: custom metadata without %s", i, metadata.CustomMetadataTypeKey)
		}
		name := rec.Name
		if name == "" {
			name = metadata.NameFromPath(p)
		}
		paths[p] = rec.Handle
		out[rec.Handle] = &metadata.AssetMetadata{
			Handle:    rec.Handle,
			Type:      rec.Type,
			Path:      p,
			Name:      name,
			LoadState: metadata.LoadStateUnloaded,
			Custom:    rec.CustomMetadata,
		}
	}
	return out, nil
}
