package engine

// allowedRotations returns how many orientations the search may try for a shape
func allowedRotations(unlocked bool, score, unlockCost int) int {
	if unlocked || score >= unlockCost {
		return 4
	}
	return 1
}

// CheckGameOver reports whether no queued shape fits anywhere on grid.
// Shapes whose rotation is unlocked, or affordable at the current score,
// are tried in all four orientations. An empty queue is never game over.
func CheckGameOver(grid *Grid, queue []Shape, score int, rotationUnlocked []bool, unlockCost int) bool {
	if len(queue) == 0 {
		return false
	}
	n := grid.Size()
	for i, shape := range queue {
		unlocked := i < len(rotationUnlocked) && rotationUnlocked[i]
		s := shape
		for rot := 0; rot < allowedRotations(unlocked, score, unlockCost); rot++ {
			if rot > 0 {
				s = s.Rotate()
			}
			for r := -SearchPadding; r <= n; r++ {
				for c := -SearchPadding; c <= n; c++ {
					target := Position{Row: r, Column: c}
					if IsValidPlacement(s, &target, grid) {
						return false
					}
				}
			}
		}
	}
	return true
}
