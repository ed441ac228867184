package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLCG_Deterministic(t *testing.T) {
	a, b := NewLCG(1234), NewLCG(1234)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Next(), b.Next())
	}

	c, d := NewLCG(1234), NewLCG(1235)
	assert.NotEqual(t, c.Next(), d.Next())

	r := LCG{State: 0}
	first := r.Next()
	assert.Equal(t, uint32(1013904223), first)
	assert.Equal(t, first*1664525+1013904223, r.Next())
}

func TestLCG_IntnRange(t *testing.T) {
	r := NewLCG(7)
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		v := r.Intn(6)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 6)
		seen[v] = true
	}
	assert.Len(t, seen, 6)
	assert.Equal(t, 0, r.Intn(1))
	assert.Equal(t, 0, r.Intn(0))
}

func TestShuffle(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	r1 := NewLCG(99)
	Shuffle(&r1, items)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, items)

	again := []int{1, 2, 3, 4, 5, 6, 7, 8}
	r2 := NewLCG(99)
	Shuffle(&r2, again)
	assert.Equal(t, items, again, "same seed, same permutation")
	assert.Equal(t, r1, r2)
}

func TestShapeLibrary(t *testing.T) {
	lib := DefaultShapeLibrary()
	assert.Len(t, lib.Templates(), len(DefaultTemplates))

	counts := map[string]int{}
	for _, v := range lib.Variants() {
		counts[v.TemplateID]++
		b, ok := v.Shape.Bounds()
		require.True(t, ok)
		assert.Equal(t, 0, b.MinRow, "%s is normalized", v.TemplateID)
		assert.Equal(t, 0, b.MinCol, "%s is normalized", v.TemplateID)
		assert.Equal(t, v.Shape.Cells()[0], v.first)
	}

	assert.Equal(t, 1, counts["single"])
	assert.Equal(t, 2, counts["domino"])
	assert.Equal(t, 1, counts["square2"])
	assert.Equal(t, 4, counts["t4"])
	assert.Equal(t, 2, counts["s4"])
	assert.Equal(t, 4, counts["l4"])
	assert.Equal(t, 4, counts["j4"])

	shape, ok := lib.Shape("corner3")
	require.True(t, ok)
	assert.Equal(t, 3, shape.FilledCount())
}

func TestNewShapeLibrary_Errors(t *testing.T) {
	_, err := NewShapeLibrary([]ShapeTemplate{{ID: "domino", Pattern: []string{"XX"}}})
	assert.ErrorIs(t, err, ErrLibraryMissingUnit)

	_, err = NewShapeLibrary([]ShapeTemplate{{ID: "a", Pattern: []string{"X"}}, {ID: "a", Pattern: []string{"XX"}}})
	assert.Error(t, err)

	_, err = NewShapeLibrary([]ShapeTemplate{{ID: "bad", Pattern: []string{"?"}}})
	assert.Error(t, err)
}

func TestShapeLibrary_Random(t *testing.T) {
	lib := DefaultShapeLibrary()
	r1, r2 := NewLCG(5), NewLCG(5)
	for i := 0; i < 20; i++ {
		a := lib.Random(&r1, []string{"red", "blue"})
		b := lib.Random(&r2, []string{"red", "blue"})
		require.True(t, a.Shape.Equal(b.Shape))
		assert.Equal(t, a.TemplateID, b.TemplateID)
		assert.False(t, a.RotationUnlocked)
		for _, c := range a.Shape.Cells() {
			assert.Contains(t, []string{"red", "blue"}, a.Shape.Block(c.Row, c.Col).Color)
		}
	}
}

func assertExactCover(t *testing.T, target *Grid, solution []SolvedShape) {
	t.Helper()
	covered := make(map[Position]int)
	for _, piece := range solution {
		for _, cell := range piece.Shape.Cells() {
			p := Position{Row: piece.GridPosition.Row + cell.Row, Column: piece.GridPosition.Column + cell.Col}
			covered[p]++

			tile, ok := target.Tile(p)
			require.True(t, ok, "%s out of bounds", p)
			require.True(t, tile.Block.Filled, "%s is not part of the target", p)
			assert.Equal(t, tile.Block.Color, piece.Shape.Block(cell.Row, cell.Col).Color, "color at %s", p)
		}
	}
	for p, n := range covered {
		assert.Equal(t, 1, n, "%s covered %d times", p, n)
	}
	assert.Len(t, covered, target.FilledCount())
}

func TestSolveDailyChallenge_FullSquare(t *testing.T) {
	target := gridFromRows(
		"RB..",
		"GY..",
		"....",
		"....",
	)
	for _, seed := range []int64{0, 1, 42, 20240307} {
		solution, err := SolveDailyChallenge(target, seed)
		require.NoError(t, err)
		require.NotEmpty(t, solution)
		assertExactCover(t, target, solution)
		assert.Equal(t, 4, target.FilledCount(), "target untouched")
	}
}

func TestSolveDailyChallenge_Deterministic(t *testing.T) {
	target := gridFromRows(
		"RRRRRR",
		"R.BB.R",
		"R.BB.R",
		"RGGGGR",
		"......",
		"YYY...",
	)
	first, err := SolveDailyChallenge(target, 777)
	require.NoError(t, err)
	second, err := SolveDailyChallenge(target, 777)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].TemplateID, second[i].TemplateID)
		assert.Equal(t, first[i].GridPosition, second[i].GridPosition)
		assert.True(t, first[i].Shape.Equal(second[i].Shape))
	}
	assertExactCover(t, target, first)

	sol := SolutionGrid(target.Size(), first)
	assert.Equal(t, target.Tiles(), sol.Tiles())
}

func TestSolveDailyChallenge_SeedsVary(t *testing.T) {
	target := gridFromRows(
		"RRRRR",
		"RRRRR",
		"RRRRR",
		"RRRRR",
		"RRRRR",
	)
	distinct := map[int]bool{}
	for seed := int64(1); seed <= 20; seed++ {
		solution, err := SolveDailyChallenge(target, seed)
		require.NoError(t, err)
		assertExactCover(t, target, solution)
		distinct[len(solution)] = true
	}
	assert.Greater(t, len(distinct), 1, "different seeds should pick different decompositions")
}

func TestSolveDailyChallenge_EmptyTarget(t *testing.T) {
	solution, err := SolveDailyChallenge(NewGrid(5), 1)
	require.NoError(t, err)
	assert.NotNil(t, solution)
	assert.Empty(t, solution)
}

func TestSolver_CustomLibrary(t *testing.T) {
	// A ring of eight cells covered with dominoes and single cells only
	lib, err := NewShapeLibrary([]ShapeTemplate{
		{ID: "domino", Pattern: []string{"XX"}},
		{ID: "single", Pattern: []string{"X"}},
	})
	require.NoError(t, err)

	target := gridFromRows(
		"RRR.",
		"R.R.",
		"RRR.",
		"....",
	)
	s := NewSolver(lib)
	solution, err := s.Solve(target, 3)
	require.NoError(t, err)
	assertExactCover(t, target, solution)

	stats := s.Stats()
	assert.Equal(t, len(solution), stats.Pieces)
	assert.GreaterOrEqual(t, stats.Nodes, len(solution))
}

func TestSolvedShape_AnchorTarget(t *testing.T) {
	target := gridFromRows(
		"....",
		".RR.",
		".RR.",
		"....",
	)
	solution, err := SolveDailyChallenge(target, 11)
	require.NoError(t, err)

	g := NewGrid(4)
	for _, piece := range solution {
		anchor := piece.AnchorTarget()
		var ok bool
		g, ok = ApplyPlacement(piece.Shape, anchor, g)
		require.True(t, ok, "piece %s at %s", piece.TemplateID, anchor)
	}
	assert.Equal(t, target.Tiles(), g.Tiles())
}
