package engine

import (
	"errors"
	"fmt"

	"github.com/kamstrup/intmap"
)

var ErrLibraryMissingUnit = errors.New("shape library has no single-cell template")

// ShapeTemplate is a named piece pattern
type ShapeTemplate struct {
	ID      string   `json:"id"`
	Pattern []string `json:"pattern"`
}

// ShapeVariant is one geometrically unique orientation of a template,
// normalized so its bounding box starts at (0,0).
type ShapeVariant struct {
	TemplateID string
	Rotation   int
	Shape      Shape
	first      Cell
	cells      []Cell
}

// DefaultTemplates is the stock piece set
var DefaultTemplates = []ShapeTemplate{
	{ID: "single", Pattern: []string{"X"}},
	{ID: "domino", Pattern: []string{"XX"}},
	{ID: "line3", Pattern: []string{"XXX"}},
	{ID: "line4", Pattern: []string{"XXXX"}},
	{ID: "line5", Pattern: []string{"XXXXX"}},
	{ID: "square2", Pattern: []string{"XX", "XX"}},
	{ID: "square3", Pattern: []string{"XXX", "XXX", "XXX"}},
	{ID: "rect2x3", Pattern: []string{"XXX", "XXX"}},
	{ID: "corner3", Pattern: []string{"XX", "X."}},
	{ID: "corner5", Pattern: []string{"XXX", "X..", "X.."}},
	{ID: "l4", Pattern: []string{"X.", "X.", "XX"}},
	{ID: "j4", Pattern: []string{".X", ".X", "XX"}},
	{ID: "t4", Pattern: []string{"XXX", ".X."}},
	{ID: "s4", Pattern: []string{".XX", "XX."}},
	{ID: "z4", Pattern: []string{"XX.", ".XX"}},
}

// DefaultPalette is the stock set of block colors
var DefaultPalette = []string{"red", "orange", "yellow", "green", "blue", "purple", "pink"}

// ShapeLibrary holds templates and their unique rotations
type ShapeLibrary struct {
	templates []ShapeTemplate
	shapes    map[string]Shape
	variants  []ShapeVariant
}

var defaultLibrary = mustLibrary(DefaultTemplates)

// DefaultShapeLibrary returns the library built from DefaultTemplates
func DefaultShapeLibrary() *ShapeLibrary {
	return defaultLibrary
}

func mustLibrary(templates []ShapeTemplate) *ShapeLibrary {
	lib, err := NewShapeLibrary(templates)
	if err != nil {
		panic(err)
	}
	return lib
}

// NewShapeLibrary parses templates and enumerates their unique rotations.
// A single-cell template is required so every target can be covered.
func NewShapeLibrary(templates []ShapeTemplate) (*ShapeLibrary, error) {
	lib := &ShapeLibrary{
		templates: templates,
		shapes:    make(map[string]Shape, len(templates)),
	}
	seen := intmap.New[uint64, string](len(templates) * 4)
	hasUnit := false

	for _, tpl := range templates {
		if _, dup := lib.shapes[tpl.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", tpl.ID)
		}
		shape, err := ParseShape(tpl.Pattern, "")
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", tpl.ID, err)
		}
		lib.shapes[tpl.ID] = shape
		if shape.FilledCount() == 1 {
			hasUnit = true
		}

		rotated := shape
		for rot := 0; rot < 4; rot++ {
			if rot > 0 {
				rotated = rotated.Rotate()
			}
			key := rotated.footprint()
			if _, ok := seen.Get(key); ok {
				continue
			}
			seen.Put(key, tpl.ID)

			norm := rotated.Normalize()
			cells := norm.Cells()
			lib.variants = append(lib.variants, ShapeVariant{
				TemplateID: tpl.ID,
				Rotation:   rot,
				Shape:      norm,
				first:      cells[0],
				cells:      cells,
			})
		}
	}

	if !hasUnit {
		return nil, ErrLibraryMissingUnit
	}
	return lib, nil
}

// Templates returns the templates in declaration order
func (l *ShapeLibrary) Templates() []ShapeTemplate {
	return l.templates
}

// Variants returns every unique orientation
func (l *ShapeLibrary) Variants() []ShapeVariant {
	return l.variants
}

// Shape returns the uncolored base shape of a template
func (l *ShapeLibrary) Shape(id string) (Shape, bool) {
	s, ok := l.shapes[id]
	return s, ok
}

// Random draws a template, orientation and palette color from rng
func (l *ShapeLibrary) Random(rng *LCG, palette []string) QueuedShape {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	tpl := l.templates[rng.Intn(len(l.templates))]
	rot := rng.Intn(4)
	color := palette[rng.Intn(len(palette))]
	return QueuedShape{
		Shape:      l.shapes[tpl.ID].RotateN(rot).WithColor(color),
		TemplateID: tpl.ID,
	}
}
