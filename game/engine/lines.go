package engine

// ClearResult is the outcome of ClearFullLines
type ClearResult struct {
	Grid           *Grid         `json:"-"`
	Rows           []ClearedLine `json:"rows"`
	Columns        []ClearedLine `json:"columns"`
	FullBoardClear bool          `json:"full_board_clear"`
}

// LinesCleared returns the number of rows plus columns removed
func (r ClearResult) LinesCleared() int {
	return len(r.Rows) + len(r.Columns)
}

// ClearFullLines finds every full row and column on the pre-mutation grid,
// clears rows first and then columns, and flags a full-board clear when the
// result is empty and at least one line went away. It never fails.
func ClearFullLines(grid *Grid) ClearResult {
	n := grid.Size()
	result := ClearResult{Grid: grid}

	for r := 1; r <= n; r++ {
		if grid.IsRowFull(r) {
			result.Rows = append(result.Rows, ClearedLine{Index: r, Color: lineColor(grid, rowPositions(r, n))})
		}
	}
	for c := 1; c <= n; c++ {
		if grid.IsColumnFull(c) {
			result.Columns = append(result.Columns, ClearedLine{Index: c, Color: lineColor(grid, columnPositions(c, n))})
		}
	}

	if result.LinesCleared() == 0 {
		return result
	}

	g := grid
	for _, row := range result.Rows {
		g = g.WithBlocks(emptyBlocks(rowPositions(row.Index, n)))
	}
	for _, col := range result.Columns {
		g = g.WithBlocks(emptyBlocks(columnPositions(col.Index, n)))
	}

	result.Grid = g
	result.FullBoardClear = g.IsEmpty()
	return result
}

func rowPositions(r, n int) []Position {
	out := make([]Position, n)
	for c := 1; c <= n; c++ {
		out[c-1] = Position{Row: r, Column: c}
	}
	return out
}

func columnPositions(c, n int) []Position {
	out := make([]Position, n)
	for r := 1; r <= n; r++ {
		out[r-1] = Position{Row: r, Column: c}
	}
	return out
}

func emptyBlocks(positions []Position) map[Position]Block {
	out := make(map[Position]Block, len(positions))
	for _, p := range positions {
		out[p] = Block{}
	}
	return out
}

// lineColor returns the shared color of the filled blocks on a line, or ""
// when they differ.
func lineColor(grid *Grid, positions []Position) string {
	color := ""
	for _, p := range positions {
		t, ok := grid.Tile(p)
		if !ok || !t.Block.Filled {
			continue
		}
		if color == "" {
			color = t.Block.Color
		} else if t.Block.Color != color {
			return ""
		}
	}
	return color
}
