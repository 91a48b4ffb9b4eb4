package template

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

type Kind string

const (
	KindText Kind = "text"
	KindQR   Kind = "qr"
)

// Upper bounds for rendered glyph and QR sizes, in pixels.
const (
	MaxFontSize = 400
	MaxQRSize   = 4 * DefaultMaxDimension
)

var ErrInvalidPlaceholder = errors.New("invalid placeholder")

// Placeholder is a labeled element whose Text is substituted per record.
// X and Y locate its top-left corner on the canvas.
type Placeholder struct {
	ID       string  `json:"id"`
	FieldID  string  `json:"field_id"`
	Text     string  `json:"text"`
	Kind     Kind    `json:"kind"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	FontSize float64 `json:"font_size"`
	Color    string  `json:"color"`
	Size     int     `json:"size"` // QR side in pixels
}

// Patch carries a partial placeholder update. Nil fields are left alone.
type Patch struct {
	FieldID  *string  `json:"field_id"`
	Text     *string  `json:"text"`
	Kind     *Kind    `json:"kind"`
	X        *int     `json:"x"`
	Y        *int     `json:"y"`
	FontSize *float64 `json:"font_size"`
	Color    *string  `json:"color"`
	Size     *int     `json:"size"`
}

func (pt Patch) apply(p *Placeholder) error {
	next := *p
	if pt.FieldID != nil {
		next.FieldID = *pt.FieldID
	}
	if pt.Text != nil {
		next.Text = *pt.Text
	}
	if pt.Kind != nil {
		next.Kind = *pt.Kind
	}
	if pt.X != nil {
		next.X = *pt.X
	}
	if pt.Y != nil {
		next.Y = *pt.Y
	}
	if pt.FontSize != nil {
		next.FontSize = *pt.FontSize
	}
	if pt.Color != nil {
		next.Color = *pt.Color
	}
	if pt.Size != nil {
		next.Size = *pt.Size
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*p = next
	return nil
}

// Validate checks the layout fields.
func (p Placeholder) Validate() error {
	switch p.Kind {
	case KindText, KindQR:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPlaceholder, p.Kind)
	}
	if math.IsNaN(p.FontSize) || p.FontSize <= 0 || p.FontSize > MaxFontSize {
		return fmt.Errorf("%w: font size must be in (0, %d]", ErrInvalidPlaceholder, MaxFontSize)
	}
	if p.Kind == KindQR && (p.Size <= 0 || p.Size > MaxQRSize) {
		return fmt.Errorf("%w: qr size must be in (0, %d]", ErrInvalidPlaceholder, MaxQRSize)
	}
	if _, err := ParseColor(p.Color); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlaceholder, err)
	}
	return nil
}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
