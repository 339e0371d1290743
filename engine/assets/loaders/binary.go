package loaders

import (
	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

type BinaryLoader struct{}

func (bl *BinaryLoader) Load(fsys platform.FileSystem, md metadata.AssetMetadata) (any, error) {
	return fsys.ReadFile(md.Path)
}

func (bl *BinaryLoader) Save(fsys platform.FileSystem, md metadata.AssetMetadata, asset any) error {
	data, ok := asset.([]byte)
	if !ok {
		return unexpectedAsset(md, "[]byte", asset)
	}
	return fsys.WriteFile(md.Path, data)
}
