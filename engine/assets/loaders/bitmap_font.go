package loaders

import (
	"github.com/fzipp/bmfont"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

type FontGlyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type FontKerning struct {
	Codepoint0 rune
	Codepoint1 rune
	Amount     int16
}

type BitmapFontPage struct {
	ID   int8
	File string
}

type BitmapFont struct {
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX int32
	AtlasSizeY int32
	Glyphs     []FontGlyph
	Kernings   []FontKerning
	Pages      []BitmapFontPage
}

// BitmapFontLoader reads AngelCode .fnt descriptors. The page images are
// separate texture assets.
type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Load(fsys platform.FileSystem, md metadata.AssetMetadata) (any, error) {
	font, err := bmfont.Load(fsys.Abs(md.Path))
	if err != nil {
		return nil, err
	}
	return importFNT(font.Descriptor), nil
}

// Save is a no-op: .fnt files are produced by external tools.
func (fl *BitmapFontLoader) Save(platform.FileSystem, metadata.AssetMetadata, any) error {
	return nil
}

func importFNT(d *bmfont.Descriptor) *BitmapFont {
	out := &BitmapFont{
		Face:       d.Info.Face,
		Size:       uint32(d.Info.Size),
		LineHeight: int32(d.Common.LineHeight),
		Baseline:   int32(d.Common.Base),
		AtlasSizeX: int32(d.Common.ScaleW),
		AtlasSizeY: int32(d.Common.ScaleH),
		Glyphs:     make([]FontGlyph, 0, len(d.Chars)),
		Kernings:   make([]FontKerning, 0, len(d.Kerning)),
		Pages:      make([]BitmapFontPage, 0, len(d.Pages)),
	}

	for _, p := range d.Pages {
		out.Pages = append(out.Pages, BitmapFontPage{ID: int8(p.ID), File: p.File})
	}
	for _, g := range d.Chars {
		out.Glyphs = append(out.Glyphs, FontGlyph{
			Codepoint: g.ID,
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		})
	}
	for pair, k := range d.Kerning {
		out.Kernings = append(out.Kernings, FontKerning{
			Codepoint0: pair.First,
			Codepoint1: pair.Second,
			Amount:     int16(k.Amount),
		})
	}
	// the descriptor keeps chars and kerning pairs in maps
	slices.SortFunc(out.Pages, func(a, b BitmapFontPage) int { return int(a.ID) - int(b.ID) })
	slices.SortFunc(out.Glyphs, func(a, b FontGlyph) int { return int(a.Codepoint - b.Codepoint) })
	slices.SortFunc(out.Kernings, func(a, b FontKerning) int {
		if a.Codepoint0 != b.Codepoint0 {
			return int(a.Codepoint0 - b.Codepoint0)
		}
		return int(a.Codepoint1 - b.Codepoint1)
	})
	return out
}
