package engine

import "errors"

// ErrNoDecomposition means the shape library could not cover a target. With a
// single-cell template in the library this indicates a corrupted target or a
// library regression, so callers should surface it loudly.
var ErrNoDecomposition = errors.New("no decomposition found for challenge target")

// SolveStats reports how much work a solve took
type SolveStats struct {
	Nodes    int `json:"nodes"`
	MaxDepth int `json:"max_depth"`
	Pieces   int `json:"pieces"`
}

// Solver reconstructs a shape sequence that covers a target pattern exactly.
// A Solver is not safe for concurrent use; create one per goroutine.
type Solver struct {
	library *ShapeLibrary
	stats   SolveStats
}

// NewSolver returns a solver over library, or the default library when nil
func NewSolver(library *ShapeLibrary) *Solver {
	if library == nil {
		library = DefaultShapeLibrary()
	}
	return &Solver{library: library}
}

// Stats returns the counters of the last Solve call
func (s *Solver) Stats() SolveStats {
	return s.stats
}

// SolveDailyChallenge covers every filled tile of target with pieces from the
// default library. The result is deterministic for a given (target, seed).
func SolveDailyChallenge(target *Grid, seed int64) ([]SolvedShape, error) {
	return NewSolver(nil).Solve(target, seed)
}

// coverage is the solver's private scratch copy of the target. colors[i] is
// the color a piece must carry at row-major index i; needed[i] is false once
// the cell is covered or when it was never part of the target.
type coverage struct {
	size   int
	needed []bool
	colors []string
}

func newCoverage(target *Grid) *coverage {
	n := target.Size()
	cv := &coverage{size: n, needed: make([]bool, n*n), colors: make([]string, n*n)}
	for i, t := range target.tiles {
		if t.Block.Filled {
			cv.needed[i] = true
			cv.colors[i] = t.Block.Color
		}
	}
	return cv
}

// firstUncovered scans row-major from start and returns -1 when done
func (cv *coverage) firstUncovered(start int) int {
	for i := start; i < len(cv.needed); i++ {
		if cv.needed[i] {
			return i
		}
	}
	return -1
}

// fits reports whether every cell of v lands on a still-needed target cell
// when v's first filled cell sits on (r, c).
func (cv *coverage) fits(v ShapeVariant, r, c int) bool {
	originR, originC := r-v.first.Row, c-v.first.Col
	for _, cell := range v.cells {
		rr, cc := originR+cell.Row, originC+cell.Col
		if rr < 0 || cc < 0 || rr >= cv.size || cc >= cv.size {
			return false
		}
		if !cv.needed[rr*cv.size+cc] {
			return false
		}
	}
	return true
}

func (cv *coverage) mark(v ShapeVariant, originR, originC int, needed bool) {
	for _, cell := range v.cells {
		cv.needed[(originR+cell.Row)*cv.size+originC+cell.Col] = needed
	}
}

// piece builds the SolvedShape for v at a 0-indexed origin, copying target colors
func (cv *coverage) piece(v ShapeVariant, originR, originC int) SolvedShape {
	shape := NewShape(v.Shape.Size(), func(r, c int) Block {
		if !v.Shape.Block(r, c).Filled {
			return Block{}
		}
		return Block{Filled: true, Color: cv.colors[(originR+r)*cv.size+originC+c]}
	})
	return SolvedShape{
		TemplateID:   v.TemplateID,
		Shape:        shape,
		GridPosition: Position{Row: originR + 1, Column: originC + 1},
	}
}

// Solve runs the seeded backtracking search. The target grid is never
// modified. An empty target yields an empty, non-nil solution.
func (s *Solver) Solve(target *Grid, seed int64) ([]SolvedShape, error) {
	s.stats = SolveStats{}
	if target == nil || target.IsEmpty() {
		return []SolvedShape{}, nil
	}

	cv := newCoverage(target)
	rng := NewLCG(seed)
	variants := s.library.Variants()

	var search func(from int, moves []SolvedShape) []SolvedShape
	search = func(from int, moves []SolvedShape) []SolvedShape {
		s.stats.MaxDepth = max(s.stats.MaxDepth, len(moves))

		idx := cv.firstUncovered(from)
		if idx < 0 {
			return moves
		}
		r, c := idx/cv.size, idx%cv.size

		var candidates []ShapeVariant
		for _, v := range variants {
			if cv.fits(v, r, c) {
				candidates = append(candidates, v)
			}
		}
		Shuffle(&rng, candidates)

		for _, v := range candidates {
			s.stats.Nodes++
			originR, originC := r-v.first.Row, c-v.first.Col
			cv.mark(v, originR, originC, false)

			placed := cv.piece(v, originR, originC)
			if solution := search(idx+1, append(moves[:len(moves):len(moves)], placed)); solution != nil {
				return solution
			}
			cv.mark(v, originR, originC, true)
		}
		return nil
	}

	solution := search(0, []SolvedShape{})
	if solution == nil {
		return nil, ErrNoDecomposition
	}
	s.stats.Pieces = len(solution)
	return solution, nil
}

// SolutionGrid paints a solution onto an empty size×size grid, which lets
// callers check a decomposition against its target.
func SolutionGrid(size int, solution []SolvedShape) *Grid {
	blocks := make(map[Position]Block)
	for _, piece := range solution {
		for _, cell := range piece.Shape.Cells() {
			p := Position{Row: piece.GridPosition.Row + cell.Row, Column: piece.GridPosition.Column + cell.Col}
			blocks[p] = piece.Shape.Block(cell.Row, cell.Col)
		}
	}
	return NewGrid(size).WithBlocks(blocks)
}
