package imagepkg

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/youruser/cardbatch/internal/template"
)

var ErrNoBackground = errors.New("template has no background")

// Size of the blank card used when no background is supplied.
const (
	BlankWidth  = 600
	BlankHeight = 378
)

// Renderer composites a template into a flat image.
type Renderer struct {
	fonts *FontManager
}

func NewRenderer(fonts *FontManager) *Renderer {
	return &Renderer{fonts: fonts}
}

// Compose draws every placeholder, in creation order, over a copy of the
// template background. The template is not modified.
func (r *Renderer) Compose(tpl *template.Template) (*image.NRGBA, error) {
	bg := tpl.Background()
	if bg == nil {
		return nil, ErrNoBackground
	}
	canvas := imaging.Clone(bg)
	faces := map[float64]font.Face{}
	defer func() {
		for _, f := range faces {
			f.Close()
		}
	}()

	for _, p := range tpl.Placeholders() {
		var err error
		switch p.Kind {
		case template.KindQR:
			canvas, err = drawQR(canvas, p)
		default:
			err = r.drawText(canvas, p, faces)
		}
		if err != nil {
			return nil, fmt.Errorf("placeholder %q: %w", p.FieldID, err)
		}
	}
	return canvas, nil
}

// Snapshot composes the template and encodes it as PNG.
func (r *Renderer) Snapshot(tpl *template.Template) ([]byte, error) {
	img, err := r.Compose(tpl)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

func (r *Renderer) drawText(dst *image.NRGBA, p *template.Placeholder, faces map[float64]font.Face) error {
	if p.Text == "" {
		return nil
	}
	face, ok := faces[p.FontSize]
	if !ok {
		var err error
		if face, err = r.fonts.NewFace(p.FontSize); err != nil {
			return err
		}
		faces[p.FontSize] = face
	}
	col, err := template.ParseColor(p.Color)
	if err != nil {
		return err
	}

	d := font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	m := face.Metrics()
	y := fixed.I(p.Y) + m.Ascent
	for _, line := range strings.Split(p.Text, "\n") {
		d.Dot = fixed.Point26_6{X: fixed.I(p.X), Y: y}
		d.DrawString(line)
		y += m.Height
	}
	return nil
}

func drawQR(canvas *image.NRGBA, p *template.Placeholder) (*image.NRGBA, error) {
	if p.Text == "" {
		return canvas, nil
	}
	q, err := GenerateQRImage(p.Text, p.Size)
	if err != nil {
		return nil, err
	}
	if b := q.Bounds(); b.Dx() != p.Size || b.Dy() != p.Size {
		q = imaging.Resize(q, p.Size, p.Size, imaging.NearestNeighbor)
	}
	return imaging.Paste(canvas, q, image.Pt(p.X, p.Y)), nil
}

// Blank is the background used before the user supplies one.
func Blank(w, h int) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
}

// EncodePNG encodes img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
