package loaders

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	ErrInvalidMaterial   = errors.New("invalid material")
	ErrInvalidMesh       = errors.New("invalid mesh")
)

// Loader is implemented by every per-type decoder in this package.
type Loader interface {
	Load(fsys platform.FileSystem, md metadata.AssetMetadata) (any, error)
	Save(fsys platform.FileSystem, md metadata.AssetMetadata, asset any) error
}

// Defaults returns the built-in loader for each asset type that has one.
// Scenes have no dedicated loader and go through the JSON fallback.
func Defaults() map[metadata.AssetType]Loader {
	return map[metadata.AssetType]Loader{
		metadata.AssetTypeTexture2D:  &TextureLoader{},
		metadata.AssetTypeMesh:       &MeshLoader{},
		metadata.AssetTypeMaterial:   &MaterialLoader{},
		metadata.AssetTypeShader:     &ShaderLoader{},
		metadata.AssetTypeBitmapFont: &BitmapFontLoader{},
		metadata.AssetTypeSystemFont: &SystemFontLoader{},
		metadata.AssetTypeBinary:     &BinaryLoader{},
	}
}

func unexpectedAsset(md metadata.AssetMetadata, want string, got any) error {
	return fmt.Errorf("cannot save %s: expected %s, got %T", md.Path, want, got)
}
