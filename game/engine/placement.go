package engine

// PlacedCell maps a filled shape cell to its absolute grid position
type PlacedCell struct {
	Local    Cell     `json:"local"`
	Position Position `json:"position"`
	Block    Block    `json:"block"`
}

// PlacementCells resolves every filled cell of shape relative to its anchor,
// with the anchor landing on target. Returns nil for an empty shape.
func PlacementCells(shape Shape, target Position) []PlacedCell {
	anchor, ok := shape.Anchor()
	if !ok {
		return nil
	}
	cells := shape.Cells()
	out := make([]PlacedCell, 0, len(cells))
	for _, cell := range cells {
		out = append(out, PlacedCell{
			Local: cell,
			Position: Position{
				Row:    target.Row + (cell.Row - anchor.Row),
				Column: target.Column + (cell.Col - anchor.Col),
			},
			Block: shape.Block(cell.Row, cell.Col),
		})
	}
	return out
}

// IsValidPlacement reports whether every filled cell of shape lands on an
// in-bounds, unfilled tile when the anchor is placed at target.
// A nil target or an empty shape is never valid.
func IsValidPlacement(shape Shape, target *Position, grid *Grid) bool {
	if target == nil || grid == nil {
		return false
	}
	cells := PlacementCells(shape, *target)
	if len(cells) == 0 {
		return false
	}
	for _, pc := range cells {
		if !grid.InBounds(pc.Position) || grid.IsFilled(pc.Position) {
			return false
		}
	}
	return true
}

// InvalidBlocks returns the shape-local cells that would land out of bounds
// or on a filled tile. With a nil target every filled cell is reported.
func InvalidBlocks(shape Shape, target *Position, grid *Grid) []Cell {
	if target == nil || grid == nil {
		return shape.Cells()
	}
	var invalid []Cell
	for _, pc := range PlacementCells(shape, *target) {
		if !grid.InBounds(pc.Position) || grid.IsFilled(pc.Position) {
			invalid = append(invalid, pc.Local)
		}
	}
	return invalid
}

// ApplyPlacement writes the shape's blocks onto a new grid. ok is false and
// the input grid is returned untouched when the placement is invalid.
func ApplyPlacement(shape Shape, target Position, grid *Grid) (*Grid, bool) {
	if !IsValidPlacement(shape, &target, grid) {
		return grid, false
	}
	blocks := make(map[Position]Block)
	for _, pc := range PlacementCells(shape, target) {
		blocks[pc.Position] = pc.Block
	}
	return grid.WithBlocks(blocks), true
}

// ValidTargets enumerates every anchor target in the padded search range
// where shape fits, in row-major order.
func ValidTargets(shape Shape, grid *Grid) []Position {
	var out []Position
	for r := -SearchPadding; r <= grid.Size(); r++ {
		for c := -SearchPadding; c <= grid.Size(); c++ {
			p := Position{Row: r, Column: c}
			if IsValidPlacement(shape, &p, grid) {
				out = append(out, p)
			}
		}
	}
	return out
}
