package loaders

import (
	"fmt"
	"path"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

type ShaderStage string

const (
	ShaderStageConfig   ShaderStage = "config"
	ShaderStageVertex   ShaderStage = "vertex"
	ShaderStageFragment ShaderStage = "fragment"
	ShaderStageUnknown  ShaderStage = "unknown"
)

type Shader struct {
	Name  string
	Stage ShaderStage
	// Source is the file as read from disk.
	Source []byte
	// ByteCode is set for SPIR-V binaries only.
	ByteCode []uint32
}

type ShaderLoader struct{}

func (sl *ShaderLoader) Load(fsys platform.FileSystem, md metadata.AssetMetadata) (any, error) {
	data, err := fsys.ReadFile(md.Path)
	if err != nil {
		return nil, err
	}
	shader := &Shader{
		Name:   md.Name,
		Stage:  shaderStage(md.Path),
		Source: data,
	}
	if strings.EqualFold(path.Ext(md.Path), ".spv") {
		if len(data)%4 != 0 {
			return nil, fmt.Errorf("%w: SPIR-V size %d is not a multiple of 4", ErrUnsupportedFormat, len(data))
		}
		shader.ByteCode = bytesToBytecode(data)
	}
	return shader, nil
}

func (sl *ShaderLoader) Save(fsys platform.FileSystem, md metadata.AssetMetadata, asset any) error {
	shader, ok := asset.(*Shader)
	if !ok {
		return unexpectedAsset(md, "*Shader", asset)
	}
	return fsys.WriteFile(md.Path, shader.Source)
}

// shaderStage looks at the extension, or at the one before ".spv".
func shaderStage(p string) ShaderStage {
	ext := strings.ToLower(path.Ext(p))
	if ext == ".spv" {
		ext = strings.ToLower(path.Ext(strings.TrimSuffix(p, path.Ext(p))))
	}
	switch ext {
	case ".shadercfg":
		return ShaderStageConfig
	case ".vert":
		return ShaderStageVertex
	case ".frag":
		return ShaderStageFragment
	default:
		return ShaderStageUnknown
	}
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
