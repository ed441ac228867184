package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearFullLines(t *testing.T) {
	tests := []struct {
		name      string
		rows      []string
		wantRows  []ClearedLine
		wantCols  []ClearedLine
		fullBoard bool
		remaining int
	}{
		{
			name:      "nothing to clear",
			rows:      []string{"R...", "....", "....", "...."},
			remaining: 1,
		},
		{
			name:      "single uniform row",
			rows:      []string{"....", "BBBB", "R...", "...."},
			wantRows:  []ClearedLine{{Index: 2, Color: "blue"}},
			remaining: 1,
		},
		{
			name:      "mixed color column",
			rows:      []string{"..R.", "..B.", "..R.", "..R."},
			wantCols:  []ClearedLine{{Index: 3}},
			fullBoard: true,
		},
		{
			name:      "row and column share an intersection",
			rows:      []string{"R...", "R...", "R...", "RGGG"},
			wantRows:  []ClearedLine{{Index: 4}},
			wantCols:  []ClearedLine{{Index: 1, Color: "red"}},
			fullBoard: true,
		},
		{
			name:      "intersection leaves other blocks",
			rows:      []string{"R..Y", "R...", "R...", "RGGG"},
			wantRows:  []ClearedLine{{Index: 4}},
			wantCols:  []ClearedLine{{Index: 1, Color: "red"}},
			remaining: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gridFromRows(tt.rows...)
			res := ClearFullLines(g)

			assert.Equal(t, tt.wantRows, res.Rows)
			assert.Equal(t, tt.wantCols, res.Columns)
			assert.Equal(t, tt.fullBoard, res.FullBoardClear)
			assert.Equal(t, tt.remaining, res.Grid.FilledCount())

			for _, row := range res.Rows {
				assert.False(t, res.Grid.IsRowFull(row.Index), "row %d still full", row.Index)
			}
			for _, col := range res.Columns {
				assert.False(t, res.Grid.IsColumnFull(col.Index), "column %d still full", col.Index)
			}
		})
	}
}

func TestClearFullLines_NoOpReturnsSameGrid(t *testing.T) {
	g := gridFromRows("R...", "....", "....", "....")
	res := ClearFullLines(g)
	assert.Same(t, g, res.Grid)
	assert.Equal(t, 0, res.LinesCleared())
}

func TestClearFullLines_EmptyGridIsNotFullBoardClear(t *testing.T) {
	res := ClearFullLines(NewGrid(5))
	assert.False(t, res.FullBoardClear)
	assert.Equal(t, 0, res.LinesCleared())
}

func TestClearFullLines_DoesNotMutateInput(t *testing.T) {
	g := gridFromRows("BBBB", "....", "....", "....")
	res := ClearFullLines(g)
	require.Len(t, res.Rows, 1)
	assert.True(t, g.IsRowFull(1))
	assert.True(t, res.Grid.IsEmpty())
}

func TestClearFullLines_EveryLineOnPackedBoard(t *testing.T) {
	g := gridFromRows("RRRR", "BBBB", "GGGG", "YYYY")
	res := ClearFullLines(g)

	assert.Len(t, res.Rows, 4)
	assert.Len(t, res.Columns, 4)
	assert.True(t, res.FullBoardClear)
	assert.True(t, res.Grid.IsEmpty())
	assert.Equal(t, "red", res.Rows[0].Color)
	assert.Empty(t, res.Columns[0].Color)
}
