package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"strings"

	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/platform"
)

type SystemFontFace struct {
	Name string
	// Index into the collection.
	Index int
}

type SystemFont struct {
	File       string
	Faces      []SystemFontFace
	Collection *opentype.Collection
	BinarySize int
}

// SystemFontLoader reads .fontcfg descriptors:
//
//	file=NotoSans.ttf
//	face=Noto Sans
//
// The font file is resolved relative to the descriptor.
type SystemFontLoader struct{}

func (fl *SystemFontLoader) Load(fsys platform.FileSystem, md metadata.AssetMetadata) (any, error) {
	data, err := fsys.ReadFile(md.Path)
	if err != nil {
		return nil, err
	}

	rd := &SystemFont{}
	var faces []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "file=") {
			filename := strings.TrimSpace(strings.TrimPrefix(line, "file="))
			rd.File = platform.CleanPath(path.Join(path.Dir(md.Path), filename))
			fontBytes, err := fsys.ReadFile(rd.File)
			if err != nil {
				return nil, err
			}
			c, err := opentype.ParseCollection(fontBytes)
			if err != nil {
				return nil, fmt.Errorf("parse font %s: %w", rd.File, err)
			}
			rd.Collection = c
			rd.BinarySize = len(fontBytes)
		} else if strings.HasPrefix(line, "face=") {
			faces = append(faces, strings.TrimSpace(strings.TrimPrefix(line, "face=")))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if rd.Collection == nil {
		return nil, fmt.Errorf("%w: %s has no file= entry", ErrUnsupportedFormat, md.Path)
	}

	for _, face := range faces {
		idx, err := findFace(rd.Collection, face)
		if err != nil {
			return nil, err
		}
		rd.Faces = append(rd.Faces, SystemFontFace{Name: face, Index: idx})
	}
	return rd, nil
}

// Save is a no-op: descriptors are edited by hand.
func (fl *SystemFontLoader) Save(platform.FileSystem, metadata.AssetMetadata, any) error {
	return nil
}

// findFace matches a face against the family or full name of each font.
func findFace(c *opentype.Collection, face string) (int, error) {
	var buf sfnt.Buffer
	for i := 0; i < c.NumFonts(); i++ {
		f, err := c.Font(i)
		if err != nil {
			return 0, err
		}
		for _, id := range []sfnt.NameID{sfnt.NameIDFamily, sfnt.NameIDFull} {
			name, err := f.Name(&buf, id)
			if err == nil && strings.EqualFold(name, face) {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("font face %q not found in collection", face)
}
