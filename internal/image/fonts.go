package imagepkg

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontManager holds one parsed OpenType font. Faces are not safe for
// concurrent use, so callers get a fresh face per render.
type FontManager struct {
	parsed *opentype.Font
}

// NewFontManager loads the TTF/OTF at path, or the embedded Go Regular
// font when path is empty.
func NewFontManager(path string) (*FontManager, error) {
	data := goregular.TTF
	if path != "" {
		custom, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", path, err)
		}
		data = custom
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &FontManager{parsed: parsed}, nil
}

// NewFace returns a face for size pixels (72 DPI, so points equal pixels).
func (fm *FontManager) NewFace(size float64) (font.Face, error) {
	face, err := opentype.NewFace(fm.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face at %.1fpx: %w", size, err)
	}
	return face, nil
}
