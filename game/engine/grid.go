package engine

import (
	"encoding/json"
	"fmt"
)

// Grid is an immutable N×N board. Tiles live in a row-major arena of
// pointers; every mutator copies the arena and swaps in new tiles only for
// the positions it touches, so older grids stay valid and share the rest.
type Grid struct {
	size  int
	tiles []*Tile
}

// NewGrid creates an empty size×size grid
func NewGrid(size int) *Grid {
	g := &Grid{size: size, tiles: make([]*Tile, size*size)}
	for r := 1; r <= size; r++ {
		for c := 1; c <= size; c++ {
			g.tiles[(r-1)*size+(c-1)] = &Tile{Position: Position{Row: r, Column: c}}
		}
	}
	return g
}

// Size returns N
func (g *Grid) Size() int {
	return g.size
}

// InBounds reports whether p lies within 1..N on both axes
func (g *Grid) InBounds(p Position) bool {
	return p.Row >= 1 && p.Row <= g.size && p.Column >= 1 && p.Column <= g.size
}

func (g *Grid) index(p Position) int {
	return (p.Row-1)*g.size + (p.Column - 1)
}

// Tile returns a copy of the tile at p
func (g *Grid) Tile(p Position) (Tile, bool) {
	if !g.InBounds(p) {
		return Tile{}, false
	}
	return *g.tiles[g.index(p)], true
}

// IsFilled reports whether p is in bounds and holds a filled block
func (g *Grid) IsFilled(p Position) bool {
	return g.InBounds(p) && g.tiles[g.index(p)].Block.Filled
}

// IsRowFull reports whether every tile of row r is filled
func (g *Grid) IsRowFull(r int) bool {
	if r < 1 || r > g.size {
		return false
	}
	for c := 1; c <= g.size; c++ {
		if !g.IsFilled(Position{Row: r, Column: c}) {
			return false
		}
	}
	return true
}

// IsColumnFull reports whether every tile of column c is filled
func (g *Grid) IsColumnFull(c int) bool {
	if c < 1 || c > g.size {
		return false
	}
	for r := 1; r <= g.size; r++ {
		if !g.IsFilled(Position{Row: r, Column: c}) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no tile is filled
func (g *Grid) IsEmpty() bool {
	for _, t := range g.tiles {
		if t.Block.Filled {
			return false
		}
	}
	return true
}

// FilledCount returns the number of filled tiles
func (g *Grid) FilledCount() int {
	n := 0
	for _, t := range g.tiles {
		if t.Block.Filled {
			n++
		}
	}
	return n
}

// Tiles returns copies of all tiles in row-major order
func (g *Grid) Tiles() []Tile {
	out := make([]Tile, len(g.tiles))
	for i, t := range g.tiles {
		out[i] = *t
	}
	return out
}

// update returns a new grid where each listed position is replaced by fn(old tile)
func (g *Grid) update(positions []Position, fn func(t Tile) Tile) *Grid {
	out := &Grid{size: g.size, tiles: make([]*Tile, len(g.tiles))}
	copy(out.tiles, g.tiles)
	for _, p := range positions {
		if !g.InBounds(p) {
			continue
		}
		i := g.index(p)
		next := fn(*out.tiles[i])
		out.tiles[i] = &next
	}
	return out
}

// WithBlocks returns a new grid with the given blocks written. Empty blocks
// are stored without a color.
func (g *Grid) WithBlocks(blocks map[Position]Block) *Grid {
	if len(blocks) == 0 {
		return g
	}
	positions := make([]Position, 0, len(blocks))
	for p := range blocks {
		positions = append(positions, p)
	}
	return g.update(positions, func(t Tile) Tile {
		b := blocks[t.Position]
		if !b.Filled {
			b = Block{}
		}
		t.Block = b
		return t
	})
}

// WithBackgrounds returns a new grid with the given background colors
func (g *Grid) WithBackgrounds(colors map[Position]string) *Grid {
	if len(colors) == 0 {
		return g
	}
	positions := make([]Position, 0, len(colors))
	for p := range colors {
		positions = append(positions, p)
	}
	return g.update(positions, func(t Tile) Tile {
		t.BackgroundColor = colors[t.Position]
		return t
	})
}

// WithAnimations returns a new grid with the given animations appended to each tile
func (g *Grid) WithAnimations(anims map[Position][]TileAnimation) *Grid {
	if len(anims) == 0 {
		return g
	}
	positions := make([]Position, 0, len(anims))
	for p := range anims {
		positions = append(positions, p)
	}
	return g.update(positions, func(t Tile) Tile {
		merged := make([]TileAnimation, 0, len(t.Animations)+len(anims[t.Position]))
		merged = append(merged, t.Animations...)
		merged = append(merged, anims[t.Position]...)
		t.Animations = merged
		return t
	})
}

type gridJSON struct {
	Size  int    `json:"size"`
	Tiles []Tile `json:"tiles"`
}

// MarshalJSON encodes the grid as its size plus a flat row-major tile list
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridJSON{Size: g.size, Tiles: g.Tiles()})
}

// UnmarshalJSON decodes the format written by MarshalJSON
func (g *Grid) UnmarshalJSON(data []byte) error {
	var in gridJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Size < MinGridSize || in.Size > MaxGridSize {
		return fmt.Errorf("grid size must be between %d and %d, got %d", MinGridSize, MaxGridSize, in.Size)
	}
	out := NewGrid(in.Size)
	seen := make(map[Position]bool, len(in.Tiles))
	for _, t := range in.Tiles {
		if !out.InBounds(t.Position) {
			return fmt.Errorf("tile %s outside %dx%d grid", t.Position, in.Size, in.Size)
		}
		if seen[t.Position] {
			return fmt.Errorf("duplicate tile %s", t.Position)
		}
		if t.Block.Filled && t.Block.Color == "" {
			return fmt.Errorf("filled tile %s has no color", t.Position)
		}
		seen[t.Position] = true
		tile := t
		out.tiles[out.index(t.Position)] = &tile
	}
	if len(seen) != in.Size*in.Size {
		return fmt.Errorf("grid has %d tiles, expected %d", len(seen), in.Size*in.Size)
	}
	*g = *out
	return nil
}
