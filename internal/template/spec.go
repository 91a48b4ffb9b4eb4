package template

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Spec is the portable form of a template. Background is a file path and
// is only interpreted by the CLI; the server keeps backgrounds in memory.
type Spec struct {
	Background   string            `yaml:"background,omitempty" json:"background,omitempty"`
	MaxDimension int               `yaml:"max_dimension,omitempty" json:"max_dimension,omitempty"`
	Placeholders []PlaceholderSpec `yaml:"placeholders" json:"placeholders"`
}

type PlaceholderSpec struct {
	Field    string  `yaml:"field" json:"field"`
	Text     string  `yaml:"text,omitempty" json:"text,omitempty"`
	Kind     Kind    `yaml:"kind,omitempty" json:"kind,omitempty"`
	X        int     `yaml:"x" json:"x"`
	Y        int     `yaml:"y" json:"y"`
	FontSize float64 `yaml:"font_size,omitempty" json:"font_size,omitempty"`
	Color    string  `yaml:"color,omitempty" json:"color,omitempty"`
	Size     int     `yaml:"size,omitempty" json:"size,omitempty"`
}

// ParseSpec reads a YAML (or JSON) template definition.
func ParseSpec(data []byte) (Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Spec{}, fmt.Errorf("parse template: %w", err)
	}
	return s, nil
}

func (s Spec) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Spec describes the template's placeholders in creation order.
func (t *Template) Spec() Spec {
	s := Spec{MaxDimension: t.maxDim, Placeholders: []PlaceholderSpec{}}
	for _, p := range t.placeholders {
		s.Placeholders = append(s.Placeholders, PlaceholderSpec{
			Field:    p.FieldID,
			Text:     p.Text,
			Kind:     p.Kind,
			X:        p.X,
			Y:        p.Y,
			FontSize: p.FontSize,
			Color:    p.Color,
			Size:     p.Size,
		})
	}
	return s
}

// ApplySpec replaces every placeholder with those described by s. The
// background is untouched and the selection is cleared. Nothing changes if
// any placeholder is invalid.
func (t *Template) ApplySpec(s Spec) error {
	next := make([]*Placeholder, 0, len(s.Placeholders))
	for i, ps := range s.Placeholders {
		p := &Placeholder{
			ID:       uuid.NewString(),
			FieldID:  ps.Field,
			Text:     ps.Text,
			Kind:     ps.Kind,
			X:        ps.X,
			Y:        ps.Y,
			FontSize: ps.FontSize,
			Color:    ps.Color,
			Size:     ps.Size,
		}
		if p.Text == "" {
			p.Text = p.FieldID
		}
		if p.Kind == "" {
			p.Kind = KindText
		}
		if p.FontSize == 0 {
			p.FontSize = DefaultFontSize
		}
		if p.Color == "" {
			p.Color = DefaultColor
		}
		if p.Size == 0 {
			p.Size = DefaultQRSize
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("placeholder %d (%s): %w", i, ps.Field, err)
		}
		next = append(next, p)
	}
	t.placeholders = next
	t.selected = ""
	return nil
}
