package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// AnimationType is the discriminator of TileAnimation
type AnimationType string

const (
	AnimRowSingle        AnimationType = "row_single"
	AnimRowDouble        AnimationType = "row_double"
	AnimRowTriple        AnimationType = "row_triple"
	AnimRowQuad          AnimationType = "row_quad"
	AnimColumnSingle     AnimationType = "column_single"
	AnimColumnDouble     AnimationType = "column_double"
	AnimColumnTriple     AnimationType = "column_triple"
	AnimColumnQuad       AnimationType = "column_quad"
	AnimFullBoardColumns AnimationType = "full_board_columns"
	AnimFullBoardRows    AnimationType = "full_board_rows"
)

// BeatPattern is the payload carried only by the quad kinds: the duration is
// split into BeatCount repeating beats followed by a FinishDuration tail.
type BeatPattern struct {
	BeatCount      int   `json:"beat_count"`
	FinishDuration int64 `json:"finish_duration"`
}

// BeatDuration returns the length of one beat for an animation of the given duration
func (b BeatPattern) BeatDuration(duration int64) int64 {
	if b.BeatCount <= 0 {
		return 0
	}
	return max(duration-b.FinishDuration, 0) / int64(b.BeatCount)
}

// TileAnimation is a tagged variant keyed by Type. Color is only set on
// line-clear kinds whose line was uniform; Beats only on the quad kinds.
// StartTime is unix milliseconds, Duration is milliseconds.
type TileAnimation struct {
	ID        string        `json:"id"`
	Type      AnimationType `json:"type"`
	StartTime int64         `json:"start_time"`
	Duration  int64         `json:"duration"`
	Color     string        `json:"color,omitempty"`
	Beats     *BeatPattern  `json:"beats,omitempty"`
}

// EndTime returns when the animation has fully played
func (a TileAnimation) EndTime() int64 {
	return a.StartTime + a.Duration
}

// Expired reports whether the animation has finished at now
func (a TileAnimation) Expired(now int64) bool {
	return now >= a.EndTime()
}

// Validate checks that the payload matches the kind
func (a TileAnimation) Validate() error {
	switch a.Type {
	case AnimRowQuad, AnimColumnQuad:
		if a.Beats == nil {
			return fmt.Errorf("animation %s of type %s requires beats", a.ID, a.Type)
		}
	case AnimRowSingle, AnimRowDouble, AnimRowTriple,
		AnimColumnSingle, AnimColumnDouble, AnimColumnTriple:
		if a.Beats != nil {
			return fmt.Errorf("animation %s of type %s cannot carry beats", a.ID, a.Type)
		}
	case AnimFullBoardColumns, AnimFullBoardRows:
		if a.Beats != nil || a.Color != "" {
			return fmt.Errorf("animation %s of type %s carries no payload", a.ID, a.Type)
		}
	default:
		return fmt.Errorf("unknown animation type %q", a.Type)
	}
	if a.Duration < 0 {
		return fmt.Errorf("animation %s has negative duration", a.ID)
	}
	return nil
}

// AnimationTier holds the timing of one stacking tier, in milliseconds
type AnimationTier struct {
	Duration   int64 `json:"duration_ms"`
	WaveDelay  int64 `json:"wave_delay_ms"`
	StartDelay int64 `json:"start_delay_ms"`
}

// FullBoardTiming holds the timing of the two full-board passes, in milliseconds
type FullBoardTiming struct {
	ColumnDuration   int64 `json:"column_duration_ms"`
	ColumnWaveDelay  int64 `json:"column_wave_delay_ms"`
	RowDuration      int64 `json:"row_duration_ms"`
	RowWaveDelay     int64 `json:"row_wave_delay_ms"`
	ColumnToRowDelay int64 `json:"column_to_row_delay_ms"`
}

// AnimationConfig holds every scheduling parameter
type AnimationConfig struct {
	Single             AnimationTier   `json:"single"`
	Double             AnimationTier   `json:"double"`
	Triple             AnimationTier   `json:"triple"`
	Quad               AnimationTier   `json:"quad"`
	QuadBeatCount      int             `json:"quad_beat_count"`
	QuadFinishDuration int64           `json:"quad_finish_duration_ms"`
	FullBoard          FullBoardTiming `json:"full_board"`
}

// DefaultAnimationConfig returns the stock timings
func DefaultAnimationConfig() AnimationConfig {
	return AnimationConfig{
		Single:             AnimationTier{Duration: 400, WaveDelay: 30, StartDelay: 0},
		Double:             AnimationTier{Duration: 500, WaveDelay: 35, StartDelay: 100},
		Triple:             AnimationTier{Duration: 600, WaveDelay: 40, StartDelay: 200},
		Quad:               AnimationTier{Duration: 1200, WaveDelay: 45, StartDelay: 300},
		QuadBeatCount:      4,
		QuadFinishDuration: 200,
		FullBoard: FullBoardTiming{
			ColumnDuration:   500,
			ColumnWaveDelay:  50,
			RowDuration:      500,
			RowWaveDelay:     50,
			ColumnToRowDelay: 600,
		},
	}
}

type tierSpec struct {
	tier AnimationTier
	kind AnimationType
	quad bool
}

// tiersFor returns the stacked tiers earned by clearing count lines along one axis.
func (c AnimationConfig) tiersFor(count int, rows bool) []tierSpec {
	kinds := [4]AnimationType{AnimColumnSingle, AnimColumnDouble, AnimColumnTriple, AnimColumnQuad}
	if rows {
		kinds = [4]AnimationType{AnimRowSingle, AnimRowDouble, AnimRowTriple, AnimRowQuad}
	}
	tiers := [4]AnimationTier{c.Single, c.Double, c.Triple, c.Quad}

	var out []tierSpec
	for i := 0; i < 4 && i < count; i++ {
		out = append(out, tierSpec{tier: tiers[i], kind: kinds[i], quad: i == 3})
	}
	return out
}

func (c AnimationConfig) newLineAnimation(spec tierSpec, start int64, color string) TileAnimation {
	a := TileAnimation{
		ID:        uuid.NewString(),
		Type:      spec.kind,
		StartTime: start,
		Duration:  spec.tier.Duration,
		Color:     color,
	}
	if spec.quad {
		a.Beats = &BeatPattern{BeatCount: c.QuadBeatCount, FinishDuration: c.QuadFinishDuration}
	}
	return a
}

// ScheduleLineClears appends stacked clear animations to every tile on the
// cleared rows and columns. A tile at index i along its line starts at
// base + tier.StartDelay + i·tier.WaveDelay.
func ScheduleLineClears(grid *Grid, rows, columns []ClearedLine, base int64, cfg AnimationConfig) *Grid {
	n := grid.Size()
	anims := make(map[Position][]TileAnimation)

	for _, spec := range cfg.tiersFor(len(rows), true) {
		for _, row := range rows {
			for i, p := range rowPositions(row.Index, n) {
				start := base + spec.tier.StartDelay + int64(i)*spec.tier.WaveDelay
				anims[p] = append(anims[p], cfg.newLineAnimation(spec, start, row.Color))
			}
		}
	}
	for _, spec := range cfg.tiersFor(len(columns), false) {
		for _, col := range columns {
			for i, p := range columnPositions(col.Index, n) {
				start := base + spec.tier.StartDelay + int64(i)*spec.tier.WaveDelay
				anims[p] = append(anims[p], cfg.newLineAnimation(spec, start, col.Color))
			}
		}
	}

	return grid.WithAnimations(anims)
}

// NormalAnimationsEnd returns how long after the base time the line-clear
// animations for the given counts finish on an n×n grid.
func NormalAnimationsEnd(rows, columns, n int, cfg AnimationConfig) int64 {
	var end int64
	for _, count := range []struct {
		lines int
		rows  bool
	}{{rows, true}, {columns, false}} {
		for _, spec := range cfg.tiersFor(count.lines, count.rows) {
			end = max(end, spec.tier.StartDelay+int64(n-1)*spec.tier.WaveDelay+spec.tier.Duration)
		}
	}
	return end
}

// ScheduleFullBoardClear appends the two-pass full-board animation: every
// column sweeps first, then every row starting ColumnToRowDelay later. The
// ordering is expressed purely through start times.
func ScheduleFullBoardClear(grid *Grid, base, delayAfterNormal int64, cfg AnimationConfig) *Grid {
	n := grid.Size()
	fb := cfg.FullBoard
	colBase := base + delayAfterNormal
	rowBase := colBase + fb.ColumnToRowDelay

	anims := make(map[Position][]TileAnimation, n*n)
	for c := 1; c <= n; c++ {
		for _, p := range columnPositions(c, n) {
			anims[p] = append(anims[p], TileAnimation{
				ID:        uuid.NewString(),
				Type:      AnimFullBoardColumns,
				StartTime: colBase + int64(c-1)*fb.ColumnWaveDelay,
				Duration:  fb.ColumnDuration,
			})
		}
	}
	for r := 1; r <= n; r++ {
		for _, p := range rowPositions(r, n) {
			anims[p] = append(anims[p], TileAnimation{
				ID:        uuid.NewString(),
				Type:      AnimFullBoardRows,
				StartTime: rowBase + int64(r-1)*fb.RowWaveDelay,
				Duration:  fb.RowDuration,
			})
		}
	}
	return grid.WithAnimations(anims)
}

// CleanupAnimations drops every animation that has finished at now. When
// nothing has expired the same *Grid is returned so callers can detect
// "no change" by pointer comparison.
func CleanupAnimations(grid *Grid, now int64) *Grid {
	var touched []Position
	for _, t := range grid.tiles {
		for _, a := range t.Animations {
			if a.Expired(now) {
				touched = append(touched, t.Position)
				break
			}
		}
	}
	if len(touched) == 0 {
		return grid
	}
	return grid.update(touched, func(t Tile) Tile {
		kept := make([]TileAnimation, 0, len(t.Animations))
		for _, a := range t.Animations {
			if !a.Expired(now) {
				kept = append(kept, a)
			}
		}
		if len(kept) == 0 {
			kept = nil
		}
		t.Animations = kept
		return t
	})
}

// ActiveAnimationCount returns the number of animations stored on the grid
func ActiveAnimationCount(grid *Grid) int {
	n := 0
	for _, t := range grid.tiles {
		n += len(t.Animations)
	}
	return n
}
