package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Shape is an immutable square mapping of local cells to blocks.
// Rotating, cloning or recoloring a shape always yields a new value.
type Shape struct {
	size   int
	blocks []Block
}

// Bounds is the bounding box of a shape's filled cells
type Bounds struct {
	MinRow int `json:"min_row"`
	MaxRow int `json:"max_row"`
	MinCol int `json:"min_col"`
	MaxCol int `json:"max_col"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewShape builds a size×size shape from a block getter
func NewShape(size int, blockAt func(row, col int) Block) Shape {
	s := Shape{size: size, blocks: make([]Block, size*size)}
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			b := blockAt(r, c)
			if !b.Filled {
				b = Block{}
			}
			s.blocks[r*size+c] = b
		}
	}
	return s
}

// ParseShape builds a shape from a text pattern where 'X' or '#' marks a filled cell.
// The bounding square is sized to the longer of the pattern's two dimensions.
func ParseShape(pattern []string, color string) (Shape, error) {
	size := len(pattern)
	for _, row := range pattern {
		if len(row) > size {
			size = len(row)
		}
	}
	if size == 0 || size > MaxShapeSize {
		return Shape{}, fmt.Errorf("shape pattern must be 1..%d cells wide, got %d", MaxShapeSize, size)
	}

	filled := 0
	for r, row := range pattern {
		for c, ch := range row {
			switch ch {
			case 'X', '#':
				filled++
			case '.', ' ':
			default:
				return Shape{}, fmt.Errorf("invalid shape character '%c' at row %d, col %d", ch, r, c)
			}
		}
	}
	if filled == 0 {
		return Shape{}, fmt.Errorf("shape pattern has no filled cells")
	}

	return NewShape(size, func(r, c int) Block {
		if r < len(pattern) && c < len(pattern[r]) && (pattern[r][c] == 'X' || pattern[r][c] == '#') {
			return Block{Filled: true, Color: color}
		}
		return Block{}
	}), nil
}

// MustParseShape is ParseShape for patterns known at compile time
func MustParseShape(pattern []string, color string) Shape {
	s, err := ParseShape(pattern, color)
	if err != nil {
		panic(err)
	}
	return s
}

// Size returns the side of the bounding square
func (s Shape) Size() int {
	return s.size
}

// Block returns the block at a local cell; cells outside the square are empty
func (s Shape) Block(row, col int) Block {
	if row < 0 || col < 0 || row >= s.size || col >= s.size {
		return Block{}
	}
	return s.blocks[row*s.size+col]
}

// Cells returns filled cells in row-major order
func (s Shape) Cells() []Cell {
	cells := make([]Cell, 0, len(s.blocks))
	for i, b := range s.blocks {
		if b.Filled {
			cells = append(cells, Cell{Row: i / s.size, Col: i % s.size})
		}
	}
	return cells
}

// FilledCount returns the number of filled cells
func (s Shape) FilledCount() int {
	n := 0
	for _, b := range s.blocks {
		if b.Filled {
			n++
		}
	}
	return n
}

// Bounds returns the bounding box of filled cells. ok is false for an empty shape.
func (s Shape) Bounds() (Bounds, bool) {
	b := Bounds{MinRow: s.size, MinCol: s.size, MaxRow: -1, MaxCol: -1}
	for _, cell := range s.Cells() {
		b.MinRow = min(b.MinRow, cell.Row)
		b.MaxRow = max(b.MaxRow, cell.Row)
		b.MinCol = min(b.MinCol, cell.Col)
		b.MaxCol = max(b.MaxCol, cell.Col)
	}
	if b.MaxRow < 0 {
		return Bounds{}, false
	}
	b.Width = b.MaxCol - b.MinCol + 1
	b.Height = b.MaxRow - b.MinRow + 1
	return b, true
}

// Anchor returns the canonical center cell of the shape. Even dimensions
// resolve toward the upper-left cell.
func (s Shape) Anchor() (Cell, bool) {
	b, ok := s.Bounds()
	if !ok {
		return Cell{}, false
	}
	return Cell{
		Row: b.MinRow + (b.Height-1)/2,
		Col: b.MinCol + (b.Width-1)/2,
	}, true
}

// Rotate returns the shape turned 90° clockwise within its bounding square
func (s Shape) Rotate() Shape {
	n := s.size
	out := Shape{size: n, blocks: make([]Block, len(s.blocks))}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			out.blocks[c*n+(n-1-r)] = s.blocks[r*n+c]
		}
	}
	return out
}

// RotateN applies Rotate n times (mod 4)
func (s Shape) RotateN(n int) Shape {
	n = ((n % 4) + 4) % 4
	for i := 0; i < n; i++ {
		s = s.Rotate()
	}
	return s
}

// Clone returns an independent copy
func (s Shape) Clone() Shape {
	out := Shape{size: s.size, blocks: make([]Block, len(s.blocks))}
	copy(out.blocks, s.blocks)
	return out
}

// WithColor returns a copy with every filled cell painted color
func (s Shape) WithColor(color string) Shape {
	out := s.Clone()
	for i := range out.blocks {
		if out.blocks[i].Filled {
			out.blocks[i].Color = color
		}
	}
	return out
}

// Normalize shifts filled cells so the bounding box starts at (0,0)
func (s Shape) Normalize() Shape {
	b, ok := s.Bounds()
	if !ok || (b.MinRow == 0 && b.MinCol == 0) {
		return s.Clone()
	}
	return NewShape(s.size, func(r, c int) Block {
		return s.Block(r+b.MinRow, c+b.MinCol)
	})
}

// Equal reports whether two shapes have the same size and blocks
func (s Shape) Equal(o Shape) bool {
	if s.size != o.size {
		return false
	}
	for i := range s.blocks {
		if s.blocks[i] != o.blocks[i] {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the shape has no filled cells
func (s Shape) IsEmpty() bool {
	return s.FilledCount() == 0
}

// footprint encodes the normalized geometry (colors ignored) as a bitmask.
func (s Shape) footprint() uint64 {
	var mask uint64
	for _, cell := range s.Normalize().Cells() {
		mask |= 1 << uint(cell.Row*MaxShapeSize+cell.Col)
	}
	return mask
}

// String renders the shape as rows of '#' and '.'
func (s Shape) String() string {
	var sb strings.Builder
	for r := 0; r < s.size; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c := 0; c < s.size; c++ {
			if s.Block(r, c).Filled {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}

type shapeCellJSON struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Color string `json:"color"`
}

type shapeJSON struct {
	Size  int             `json:"size"`
	Cells []shapeCellJSON `json:"cells"`
}

// MarshalJSON encodes the shape as its size plus the list of filled cells
func (s Shape) MarshalJSON() ([]byte, error) {
	out := shapeJSON{Size: s.size, Cells: make([]shapeCellJSON, 0, len(s.blocks))}
	for _, cell := range s.Cells() {
		out.Cells = append(out.Cells, shapeCellJSON{
			Row:   cell.Row,
			Col:   cell.Col,
			Color: s.Block(cell.Row, cell.Col).Color,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the format written by MarshalJSON
func (s *Shape) UnmarshalJSON(data []byte) error {
	var in shapeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Size < 0 || in.Size > MaxShapeSize {
		return fmt.Errorf("shape size must be 0..%d, got %d", MaxShapeSize, in.Size)
	}
	blocks := make([]Block, in.Size*in.Size)
	for _, c := range in.Cells {
		if c.Row < 0 || c.Col < 0 || c.Row >= in.Size || c.Col >= in.Size {
			return fmt.Errorf("shape cell (%d,%d) outside %dx%d square", c.Row, c.Col, in.Size, in.Size)
		}
		if c.Color == "" {
			return fmt.Errorf("shape cell (%d,%d) has no color", c.Row, c.Col)
		}
		blocks[c.Row*in.Size+c.Col] = Block{Filled: true, Color: c.Color}
	}
	s.size = in.Size
	s.blocks = blocks
	return nil
}
