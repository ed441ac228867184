package engine

import "maps"

// ComboCategory names a single clear event for statistics. Categories are
// mutually exclusive; classification never affects points.
type ComboCategory string

const (
	ComboNone       ComboCategory = "none"
	ComboQuadByQuad ComboCategory = "quad_by_quad"
)

// Combo is the classification of one placement's clears
type Combo struct {
	Category  ComboCategory `json:"category"`
	Rows      int           `json:"rows"`
	Columns   int           `json:"columns"`
	SameColor bool          `json:"same_color,omitempty"`
	Color     string        `json:"color,omitempty"`
}

// PointsEarned returns (rows² + columns² + 2·rows·columns) × multiplier
func PointsEarned(rows, columns, multiplier int) int {
	return (rows*rows + columns*columns + rows*columns*2) * multiplier
}

// ScorePlacement returns the points for one placement, adding the
// full-board bonus once when it applies.
func ScorePlacement(rows, columns int, fullBoard bool, multiplier, fullBoardBonus int) int {
	points := PointsEarned(rows, columns, multiplier)
	if fullBoard {
		points += fullBoardBonus
	}
	return points
}

func tierName(n int) string {
	switch {
	case n <= 1:
		return "single"
	case n == 2:
		return "double"
	case n == 3:
		return "triple"
	default:
		return "quad"
	}
}

func axisCategory(n int, singular, plural string) string {
	if n == 1 {
		return "single_" + singular
	}
	return tierName(n) + "_" + plural
}

// ClassifyCombo tags the clear event described by rows and columns
func ClassifyCombo(rows, columns []ClearedLine) Combo {
	combo := Combo{Rows: len(rows), Columns: len(columns)}

	switch {
	case combo.Rows == 0 && combo.Columns == 0:
		combo.Category = ComboNone
		return combo
	case combo.Columns == 0:
		combo.Category = ComboCategory(axisCategory(combo.Rows, "row", "rows"))
	case combo.Rows == 0:
		combo.Category = ComboCategory(axisCategory(combo.Columns, "column", "columns"))
	case combo.Rows >= 4 && combo.Columns >= 4:
		combo.Category = ComboQuadByQuad
	default:
		combo.Category = ComboCategory(axisCategory(combo.Rows, "row", "rows") + "_with_" + axisCategory(combo.Columns, "column", "columns"))
	}

	if combo.Rows+combo.Columns >= 2 {
		color := ""
		same := true
		for _, line := range append(append([]ClearedLine{}, rows...), columns...) {
			if line.Color == "" || (color != "" && line.Color != color) {
				same = false
				break
			}
			color = line.Color
		}
		if same {
			combo.SameColor = true
			combo.Color = color
		}
	}
	return combo
}

// ComboStats accumulates clear statistics over a game
type ComboStats struct {
	Categories          map[ComboCategory]int `json:"categories"`
	SameColor           map[ComboCategory]int `json:"same_color"`
	ColorCombos         map[string]int        `json:"color_combos"`
	Placements          int                   `json:"placements"`
	ClearingPlacements  int                   `json:"clearing_placements"`
	RowsCleared         int                   `json:"rows_cleared"`
	ColumnsCleared      int                   `json:"columns_cleared"`
	FullBoardClears     int                   `json:"full_board_clears"`
	BestPlacementPoints int                   `json:"best_placement_points"`
	BestCombo           ComboCategory         `json:"best_combo,omitempty"`
}

// NewComboStats returns empty statistics
func NewComboStats() ComboStats {
	return ComboStats{
		Categories:  map[ComboCategory]int{},
		SameColor:   map[ComboCategory]int{},
		ColorCombos: map[string]int{},
	}
}

// Record returns a copy of s updated with one committed placement
func (s ComboStats) Record(combo Combo, points int, fullBoard bool) ComboStats {
	out := s
	out.Categories = cloneCounts(s.Categories)
	out.SameColor = cloneCounts(s.SameColor)
	out.ColorCombos = cloneCounts(s.ColorCombos)

	out.Placements++
	if combo.Category == ComboNone || combo.Category == "" {
		return out
	}

	out.ClearingPlacements++
	out.Categories[combo.Category]++
	out.RowsCleared += combo.Rows
	out.ColumnsCleared += combo.Columns
	if combo.SameColor {
		out.SameColor[combo.Category]++
		out.ColorCombos[combo.Color]++
	}
	if fullBoard {
		out.FullBoardClears++
	}
	if points > out.BestPlacementPoints {
		out.BestPlacementPoints = points
		out.BestCombo = combo.Category
	}
	return out
}

func cloneCounts[K comparable](m map[K]int) map[K]int {
	if m == nil {
		return map[K]int{}
	}
	return maps.Clone(m)
}
