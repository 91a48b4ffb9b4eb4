// Package template holds the editable card template: a background surface
// and the placeholders drawn on top of it.
package template

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	DefaultMaxDimension = 600
	DefaultFontSize     = 16
	DefaultColor        = "#000000"
	DefaultQRSize       = 96

	defaultLeft = 100
	defaultTop  = 100
)

var (
	ErrPlaceholderNotFound = errors.New("placeholder not found")
	ErrEmptyBackground     = errors.New("background image has no pixels")
)

// Template is the owned canvas state. It is not safe for concurrent use;
// callers serialize access (see internal/session).
type Template struct {
	maxDim       int
	background   *image.NRGBA
	placeholders []*Placeholder
	selected     string
}

// New returns an empty template whose background is capped at maxDim
// pixels on its longest side. maxDim <= 0 means DefaultMaxDimension.
func New(maxDim int) *Template {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	return &Template{maxDim: maxDim}
}

// FitScale returns the canvas size for an image of w x h pixels scaled by
// min(limit/w, limit/h), along with the factor itself.
func FitScale(w, h, limit int) (int, int, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0, 0
	}
	ratio := math.Min(float64(limit)/float64(w), float64(limit)/float64(h))
	sw := clamp(int(math.Round(float64(w)*ratio)), 1, limit)
	sh := clamp(int(math.Round(float64(h)*ratio)), 1, limit)
	return sw, sh, ratio
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetBackground scales img to fit the viewport, resizes the canvas to the
// scaled dimensions and stretches the image over it. Placeholders keep
// their positions.
func (t *Template) SetBackground(img image.Image) error {
	if img == nil {
		return ErrEmptyBackground
	}
	b := img.Bounds()
	w, h, _ := FitScale(b.Dx(), b.Dy(), t.maxDim)
	if w == 0 || h == 0 {
		return ErrEmptyBackground
	}
	t.background = imaging.Resize(img, w, h, imaging.Lanczos)
	return nil
}

// Background returns the scaled background, or nil before one is set.
func (t *Template) Background() *image.NRGBA { return t.background }

// Size is the canvas size in pixels.
func (t *Template) Size() (int, int) {
	if t.background == nil {
		return 0, 0
	}
	b := t.background.Bounds()
	return b.Dx(), b.Dy()
}

// AddPlaceholder creates a text placeholder tagged with label and makes it
// the active selection. An empty label is ignored; any other label is
// used verbatim.
func (t *Template) AddPlaceholder(label string) (*Placeholder, bool) {
	if label == "" {
		return nil, false
	}
	p := &Placeholder{
		ID:       uuid.NewString(),
		FieldID:  label,
		Text:     label,
		Kind:     KindText,
		X:        defaultLeft,
		Y:        defaultTop,
		FontSize: DefaultFontSize,
		Color:    DefaultColor,
		Size:     DefaultQRSize,
	}
	t.placeholders = append(t.placeholders, p)
	t.selected = p.ID
	return p, true
}

// DeletePlaceholder removes the selected placeholder. It reports whether
// anything was removed.
func (t *Template) DeletePlaceholder() bool {
	if t.selected == "" {
		return false
	}
	i := t.index(t.selected)
	t.selected = ""
	if i < 0 {
		return false
	}
	t.placeholders = append(t.placeholders[:i], t.placeholders[i+1:]...)
	return true
}

// Select makes the placeholder with the given id the active selection.
// An empty id clears the selection.
func (t *Template) Select(id string) error {
	if id == "" {
		t.selected = ""
		return nil
	}
	if t.index(id) < 0 {
		return fmt.Errorf("select %s: %w", id, ErrPlaceholderNotFound)
	}
	t.selected = id
	return nil
}

// Selected returns the active placeholder, or nil.
func (t *Template) Selected() *Placeholder {
	if i := t.index(t.selected); i >= 0 {
		return t.placeholders[i]
	}
	return nil
}

func (t *Template) Placeholder(id string) (*Placeholder, error) {
	if i := t.index(id); i >= 0 {
		return t.placeholders[i], nil
	}
	return nil, fmt.Errorf("placeholder %s: %w", id, ErrPlaceholderNotFound)
}

// Placeholders returns the placeholders in creation order. The slice is a
// copy; the elements are the live placeholders.
func (t *Template) Placeholders() []*Placeholder {
	out := make([]*Placeholder, len(t.placeholders))
	copy(out, t.placeholders)
	return out
}

// FieldIDs lists the tagged placeholders' field ids in creation order,
// keeping the first occurrence of duplicates.
func (t *Template) FieldIDs() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range t.placeholders {
		if p.FieldID == "" || seen[p.FieldID] {
			continue
		}
		seen[p.FieldID] = true
		out = append(out, p.FieldID)
	}
	return out
}

// UpdatePlaceholder applies the non-nil fields of patch.
func (t *Template) UpdatePlaceholder(id string, patch Patch) (*Placeholder, error) {
	p, err := t.Placeholder(id)
	if err != nil {
		return nil, err
	}
	if err := patch.apply(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *Template) index(id string) int {
	if id == "" {
		return -1
	}
	for i, p := range t.placeholders {
		if p.ID == id {
			return i
		}
	}
	return -1
}
