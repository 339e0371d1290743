package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

// Colour is an RGBA value with each channel in [0, 1].
type Colour [4]float32

type MaterialConfig struct {
	Name            string
	ShaderName      string
	DiffuseColour   Colour
	Shininess       float32
	DiffuseMapName  string
	SpecularMapName string
	NormalMapName   string
	AutoRelease     bool
}

type MaterialLoader struct{}

func (ml *MaterialLoader) Load(fsys platform.FileSystem, md metadata.AssetMetadata) (any, error) {
	data, err := fsys.ReadFile(md.Path)
	if err != nil {
		return nil, err
	}
	return parseMaterial(data)
}

func (ml *MaterialLoader) Save(fsys platform.FileSystem, md metadata.AssetMetadata, asset any) error {
	mc, ok := asset.(*MaterialConfig)
	if !ok {
		return unexpectedAsset(md, "*MaterialConfig", asset)
	}
	if err := validateMaterial(mc); err != nil {
		return err
	}
	return fsys.WriteFile(md.Path, encodeMaterial(mc))
}

func parseMaterial(data []byte) (*MaterialConfig, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	materialConfig := &MaterialConfig{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			core.LogWarn("skipping invalid material line: %s", line)
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "name":
			materialConfig.Name = value
		case "shader":
			materialConfig.ShaderName = value
		case "diffuse_colour":
			colourValues := strings.Fields(value)
			if len(colourValues) != 4 {
				return nil, fmt.Errorf("%w: diffuse_colour expects 4 values: %s", ErrInvalidMaterial, line)
			}
			for i, v := range colourValues {
				f, err := strconv.ParseFloat(v, 32)
				if err != nil {
					return nil, fmt.Errorf("%w: diffuse_colour value %q", ErrInvalidMaterial, v)
				}
				materialConfig.DiffuseColour[i] = float32(f)
			}
		case "shininess":
			shininess, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: shininess value %q", ErrInvalidMaterial, value)
			}
			materialConfig.Shininess = float32(shininess)
		case "diffuse_map_name":
			materialConfig.DiffuseMapName = value
		case "specular_map_name":
			materialConfig.SpecularMapName = value
		case "normal_map_name":
			materialConfig.NormalMapName = value
		case "autorelease":
			autoRelease, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%w: autorelease value %q", ErrInvalidMaterial, value)
			}
			materialConfig.AutoRelease = autoRelease
		default:
			core.LogWarn("unknown material key '%s', skipping", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := validateMaterial(materialConfig); err != nil {
		return nil, err
	}
	return materialConfig, nil
}

// encodeMaterial writes keys in a fixed order so saves are byte-stable.
func encodeMaterial(mc *MaterialConfig) []byte {
	var b bytes.Buffer
	b.WriteString("name=" + mc.Name + "\n")
	b.WriteString("shader=" + mc.ShaderName + "\n")
	colour := make([]string, len(mc.DiffuseColour))
	for i, c := range mc.DiffuseColour {
		colour[i] = formatFloat(c)
	}
	b.WriteString("diffuse_colour=" + strings.Join(colour, " ") + "\n")
	b.WriteString("shininess=" + formatFloat(mc.Shininess) + "\n")
	if mc.DiffuseMapName != "" {
		b.WriteString("diffuse_map_name=" + mc.DiffuseMapName + "\n")
	}
	if mc.SpecularMapName != "" {
		b.WriteString("specular_map_name=" + mc.SpecularMapName + "\n")
	}
	if mc.NormalMapName != "" {
		b.WriteString("normal_map_name=" + mc.NormalMapName + "\n")
	}
	b.WriteString("autorelease=" + strconv.FormatBool(mc.AutoRelease) + "\n")
	return b.Bytes()
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

func validateMaterial(material *MaterialConfig) error {
	if material.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMaterial)
	}
	if material.ShaderName == "" {
		return fmt.Errorf("%w: shader name is required", ErrInvalidMaterial)
	}
	for _, c := range material.DiffuseColour {
		if c < 0 || c > 1 {
			return fmt.Errorf("%w: diffuse_colour values must be between 0.0 and 1.0", ErrInvalidMaterial)
		}
	}
	if material.Shininess < 0 {
		return fmt.Errorf("%w: shininess must be a non-negative value", ErrInvalidMaterial)
	}
	return nil
}
