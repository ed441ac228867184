package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func animationsAt(t *testing.T, g *Grid, p Position) []TileAnimation {
	t.Helper()
	tile, ok := g.Tile(p)
	require.True(t, ok)
	return tile.Animations
}

func TestScheduleLineClears_WaveTiming(t *testing.T) {
	cfg := DefaultAnimationConfig()
	const base = int64(1_000_000)
	g := ScheduleLineClears(NewGrid(6), []ClearedLine{{Index: 3, Color: "red"}}, nil, base, cfg)

	for c := 1; c <= 6; c++ {
		anims := animationsAt(t, g, Position{Row: 3, Column: c})
		require.Len(t, anims, 1)
		a := anims[0]
		assert.Equal(t, AnimRowSingle, a.Type)
		assert.Equal(t, base+cfg.Single.StartDelay+int64(c-1)*cfg.Single.WaveDelay, a.StartTime)
		assert.Equal(t, cfg.Single.Duration, a.Duration)
		assert.Equal(t, "red", a.Color)
		assert.Nil(t, a.Beats)
		assert.NoError(t, a.Validate())
	}
	assert.Empty(t, animationsAt(t, g, Position{Row: 2, Column: 1}))
}

func TestScheduleLineClears_StackedTiers(t *testing.T) {
	cfg := DefaultAnimationConfig()
	const base = int64(5000)
	cols := []ClearedLine{{Index: 1}, {Index: 2}, {Index: 3}, {Index: 4}}
	g := ScheduleLineClears(NewGrid(5), nil, cols, base, cfg)

	anims := animationsAt(t, g, Position{Row: 4, Column: 2})
	require.Len(t, anims, 4)

	wantTypes := []AnimationType{AnimColumnSingle, AnimColumnDouble, AnimColumnTriple, AnimColumnQuad}
	tiers := []AnimationTier{cfg.Single, cfg.Double, cfg.Triple, cfg.Quad}
	ids := map[string]bool{}
	for i, a := range anims {
		assert.Equal(t, wantTypes[i], a.Type)
		// Row 4 is index 3 along a column
		assert.Equal(t, base+tiers[i].StartDelay+3*tiers[i].WaveDelay, a.StartTime)
		assert.NoError(t, a.Validate())
		ids[a.ID] = true
	}
	assert.Len(t, ids, 4, "animation ids are unique")

	quad := anims[3]
	require.NotNil(t, quad.Beats)
	assert.Equal(t, cfg.QuadBeatCount, quad.Beats.BeatCount)
	assert.Equal(t, cfg.QuadFinishDuration, quad.Beats.FinishDuration)
	assert.Equal(t, int64(250), quad.Beats.BeatDuration(quad.Duration))

	assert.Empty(t, animationsAt(t, g, Position{Row: 1, Column: 5}))
}

func TestNormalAnimationsEnd(t *testing.T) {
	cfg := DefaultAnimationConfig()
	assert.Equal(t, int64(0), NormalAnimationsEnd(0, 0, 10, cfg))
	assert.Equal(t, 9*cfg.Single.WaveDelay+cfg.Single.Duration, NormalAnimationsEnd(1, 0, 10, cfg))
	assert.Equal(t, cfg.Quad.StartDelay+9*cfg.Quad.WaveDelay+cfg.Quad.Duration, NormalAnimationsEnd(10, 10, 10, cfg))
}

func TestScheduleFullBoardClear(t *testing.T) {
	cfg := DefaultAnimationConfig()
	fb := cfg.FullBoard
	const base, delay = int64(10_000), int64(1_500)
	g := ScheduleFullBoardClear(NewGrid(4), base, delay, cfg)

	for _, tile := range g.Tiles() {
		require.Len(t, tile.Animations, 2)
		col, row := tile.Animations[0], tile.Animations[1]

		assert.Equal(t, AnimFullBoardColumns, col.Type)
		assert.Equal(t, base+delay+int64(tile.Position.Column-1)*fb.ColumnWaveDelay, col.StartTime)
		assert.Equal(t, fb.ColumnDuration, col.Duration)

		assert.Equal(t, AnimFullBoardRows, row.Type)
		assert.Equal(t, base+delay+fb.ColumnToRowDelay+int64(tile.Position.Row-1)*fb.RowWaveDelay, row.StartTime)
		assert.NoError(t, col.Validate())
		assert.NoError(t, row.Validate())
	}
}

func TestCleanupAnimations(t *testing.T) {
	p := Position{Row: 1, Column: 1}
	q := Position{Row: 2, Column: 2}
	g := NewGrid(4).WithAnimations(map[Position][]TileAnimation{
		p: {
			{ID: "done", Type: AnimRowSingle, StartTime: 100, Duration: 50},
			{ID: "running", Type: AnimRowDouble, StartTime: 100, Duration: 500},
		},
		q: {{ID: "later", Type: AnimColumnSingle, StartTime: 1000, Duration: 10}},
	})

	assert.Same(t, g, CleanupAnimations(g, 100), "nothing expired yet")

	cleaned := CleanupAnimations(g, 150)
	require.NotSame(t, g, cleaned)
	assert.Equal(t, 3, ActiveAnimationCount(g), "input untouched")
	assert.Equal(t, 2, ActiveAnimationCount(cleaned))
	anims := animationsAt(t, cleaned, p)
	require.Len(t, anims, 1)
	assert.Equal(t, "running", anims[0].ID)

	// Idempotent: a second pass at the same instant changes nothing
	again := CleanupAnimations(cleaned, 150)
	assert.Same(t, cleaned, again)

	empty := CleanupAnimations(cleaned, 10_000)
	assert.Equal(t, 0, ActiveAnimationCount(empty))
	assert.Nil(t, animationsAt(t, empty, q))
}

func TestTileAnimation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		anim    TileAnimation
		wantErr bool
	}{
		{"quad with beats", TileAnimation{Type: AnimRowQuad, Beats: &BeatPattern{BeatCount: 4}}, false},
		{"quad without beats", TileAnimation{Type: AnimColumnQuad}, true},
		{"single with beats", TileAnimation{Type: AnimRowSingle, Beats: &BeatPattern{}}, true},
		{"full board with color", TileAnimation{Type: AnimFullBoardRows, Color: "red"}, true},
		{"unknown kind", TileAnimation{Type: "sparkle"}, true},
		{"negative duration", TileAnimation{Type: AnimRowSingle, Duration: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.anim.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
