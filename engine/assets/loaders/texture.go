package loaders

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

// CustomKeyFlipY flips textures vertically on load, for renderers with a
// bottom-left origin.
const CustomKeyFlipY = "FlipY"

type Texture struct {
	Name            string
	Format          string
	Width           int
	Height          int
	HasTransparency bool
	FlippedY        bool
	Pixels          *image.NRGBA
}

type TextureLoader struct{}

// Load decodes any format registered with the image package. TGA files are
// recognized as textures but there is no decoder for them yet.
func (tl *TextureLoader) Load(fsys platform.FileSystem, md metadata.AssetMetadata) (any, error) {
	if strings.ToLower(path.Ext(md.Path)) == ".tga" {
		return nil, fmt.Errorf("%w: cannot decode %s", ErrUnsupportedFormat, md.Path)
	}
	data, err := fsys.ReadFile(md.Path)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", md.Path, err)
	}

	b := img.Bounds()
	pixels := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(pixels, pixels.Bounds(), img, b.Min, draw.Src)

	flip := md.Custom.Bool(CustomKeyFlipY)
	if flip {
		flipVertical(pixels)
	}

	return &Texture{
		Name:            md.Name,
		Format:          format,
		Width:           b.Dx(),
		Height:          b.Dy(),
		HasTransparency: hasTransparency(pixels),
		FlippedY:        flip,
		Pixels:          pixels,
	}, nil
}

// Save encodes by the file extension. The pixels are flipped back first when
// the texture was flipped on load.
func (tl *TextureLoader) Save(fsys platform.FileSystem, md metadata.AssetMetadata, asset any) error {
	tex, ok := asset.(*Texture)
	if !ok {
		return unexpectedAsset(md, "*Texture", asset)
	}
	if tex.Pixels == nil {
		return fmt.Errorf("cannot save %s: texture has no pixels", md.Path)
	}

	img := tex.Pixels
	if tex.FlippedY {
		img = image.NewNRGBA(tex.Pixels.Rect)
		copy(img.Pix, tex.Pixels.Pix)
		flipVertical(img)
	}

	var buf bytes.Buffer
	var err error
	switch ext := strings.ToLower(path.Ext(md.Path)); ext {
	case ".png":
		err = png.Encode(&buf, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		err = bmp.Encode(&buf, img)
	case ".tif", ".tiff":
		err = tiff.Encode(&buf, img, nil)
	default:
		return fmt.Errorf("%w: cannot encode %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", md.Path, err)
	}
	return fsys.WriteFile(md.Path, buf.Bytes())
}

func flipVertical(img *image.NRGBA) {
	h := img.Rect.Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

func hasTransparency(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return true
		}
	}
	return false
}
