package metadata

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// AssetHandle identifies an asset for its whole lifetime. Handles are never reused.
type AssetHandle uint64

const InvalidHandle AssetHandle = 0

func NewAssetHandle() AssetHandle {
	return AssetHandle(core.NewUniqueID())
}

func (h AssetHandle) IsValid() bool {
	return h != InvalidHandle
}

func (h AssetHandle) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

type AssetType int

/** @brief Asset types known to the pipeline. */
const (
	/** @brief Sentinel for unrecognized assets. */
	AssetTypeInvalid AssetType = iota
	/** @brief A 2D image. */
	AssetTypeTexture2D
	/** @brief Mesh geometry. */
	AssetTypeMesh
	/** @brief Material config (shader + maps). */
	AssetTypeMaterial
	/** @brief Scene document. */
	AssetTypeScene
	/** @brief Shader config, source or SPIR-V. */
	AssetTypeShader
	/** @brief AngelCode bitmap font. */
	AssetTypeBitmapFont
	/** @brief System (TrueType/OpenType) font descriptor. */
	AssetTypeSystemFont
	/** @brief Opaque bytes. */
	AssetTypeBinary
)

var assetTypeNames = [...]string{
	AssetTypeInvalid:    "Invalid",
	AssetTypeTexture2D:  "Texture2D",
	AssetTypeMesh:       "Mesh",
	AssetTypeMaterial:   "Material",
	AssetTypeScene:      "Scene",
	AssetTypeShader:     "Shader",
	AssetTypeBitmapFont: "BitmapFont",
	AssetTypeSystemFont: "SystemFont",
	AssetTypeBinary:     "Binary",
}

func (t AssetType) String() string {
	if t < 0 || int(t) >= len(assetTypeNames) {
		return fmt.Sprintf("AssetType(%d)", int(t))
	}
	return assetTypeNames[t]
}

func (t AssetType) IsValid() bool {
	return t > AssetTypeInvalid && int(t) < len(assetTypeNames)
}

// ParseAssetType resolves an enum name; unknown names yield AssetTypeInvalid and an error.
func ParseAssetType(name string) (AssetType, error) {
	for i, n := range assetTypeNames {
		if n == name && i != int(AssetTypeInvalid) {
			return AssetType(i), nil
		}
	}
	return AssetTypeInvalid, fmt.Errorf("unknown asset type %q", name)
}

func (t AssetType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("cannot marshal asset type %s", t)
	}
	return []byte(t.String()), nil
}

func (t *AssetType) UnmarshalText(text []byte) error {
	parsed, err := ParseAssetType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DetermineAssetType maps a file extension to the asset type that decodes it.
func DetermineAssetType(p string) AssetType {
	switch strings.ToLower(path.Ext(p)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp", ".tga":
		return AssetTypeTexture2D
	case ".obj", ".mesh":
		return AssetTypeMesh
	case ".amt", ".kmt":
		return AssetTypeMaterial
	case ".scene":
		return AssetTypeScene
	case ".shadercfg", ".spv", ".vert", ".frag", ".glsl":
		return AssetTypeShader
	case ".fnt":
		return AssetTypeBitmapFont
	case ".fontcfg":
		return AssetTypeSystemFont
	case ".bin":
		return AssetTypeBinary
	default:
		return AssetTypeInvalid
	}
}
