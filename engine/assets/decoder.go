package assets

import (
	"encoding/json"
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

// Decoder turns the bytes behind an entry into an in-memory asset and back.
// Load runs on worker goroutines and must not touch manager state.
type Decoder interface {
	Load(fsys platform.FileSystem, md metadata.AssetMetadata) (any, error)
	Save(fsys platform.FileSystem, md metadata.AssetMetadata, asset any) error
}

// SchemaFunc returns a fresh pointer for the JSON fallback to decode into.
type SchemaFunc func() any

// JSONDecoder is used for any type without a registered decoder. Without a
// schema, documents decode into map[string]any.
type JSONDecoder struct {
	Schema SchemaFunc
}

func (d *JSONDecoder) Load(fsys platform.FileSystem, md metadata.AssetMetadata) (any, error) {
	data, err := fsys.ReadFile(md.Path)
	if err != nil {
		return nil, err
	}
	if d.Schema == nil {
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parse %s as JSON: %w", md.Path, err)
		}
		return out, nil
	}

	out := d.Schema()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("parse %s as %T: %w", md.Path, out, err)
	}
	return out, nil
}

func (d *JSONDecoder) Save(fsys platform.FileSystem, md metadata.AssetMetadata, asset any) error {
	data, err := json.MarshalIndent(asset, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", md.Path, err)
	}
	return fsys.WriteFile(md.Path, data)
}
