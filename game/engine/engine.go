package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidQueueIndex = errors.New("invalid queue index")
	ErrGameOver          = errors.New("game is over")
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() (*GameState, error)
	IsGameOver() bool
	IsChallengeComplete() bool
	GetScore() int

	// Placement operations
	Place(queueIndex int, target *Position, now time.Time) (*PlacementResult, error)
	CanPlace(queueIndex int, target *Position) bool
	CanPlaceAnywhere() bool
	PossiblePlacements(queueIndex int) ([]Position, error)
	Rotate(queueIndex int) (bool, error)
	UnlockRotation(queueIndex int) (bool, error)

	// Animations
	CleanupAnimations(now time.Time) bool

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetPlacementHistory() []PlacementRecord
	GetLastPlacement() *PlacementRecord
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state   *GameState
	config  *GameConfig
	library *ShapeLibrary
}

// NewEngine creates a new game engine seeded from config.Seed
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return NewEngineWithSeed(config, config.Seed)
}

// NewEngineWithSeed creates a new game engine whose queue and challenge are derived from seed
func NewEngineWithSeed(config *GameConfig, seed int64) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	state, err := NewGameState(config, seed)
	if err != nil {
		return nil, err
	}
	return &GameEngine{
		config:  config,
		state:   state,
		library: DefaultShapeLibrary(),
	}, nil
}

// NewEngineWithDefaults creates a new game engine with default configuration
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultGameConfig())
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return e
}

// InitGameStateFromConfig creates a new game state using the provided
// configuration, falling back to DefaultGameConfig when config is nil.
func InitGameStateFromConfig(config *GameConfig) (*GameState, error) {
	if config == nil {
		config = DefaultGameConfig()
	}
	return NewGameState(config, config.Seed)
}

// NewGameState builds the starting state for config. In classic mode the
// layout is a prefilled board and the queue is drawn from the seeded RNG. In
// daily-challenge mode the layout is the target: its colors become tile
// backgrounds and the solver's decomposition becomes the shape sequence.
func NewGameState(config *GameConfig, seed int64) (*GameState, error) {
	state := &GameState{
		Grid:             config.LayoutGrid(),
		RNG:              NewLCG(seed),
		Stats:            NewComboStats(),
		Message:          config.Messages.Welcome,
		ConfigName:       config.Name,
		Mode:             config.Mode,
		PlacementHistory: []PlacementRecord{},
	}

	switch config.Mode {
	case ModeDailyChallenge:
		target := state.Grid
		solution, err := SolveDailyChallenge(target, seed)
		if err != nil {
			return nil, fmt.Errorf("solving challenge %q with seed %d: %w", config.Name, seed, err)
		}

		backgrounds := make(map[Position]string, target.FilledCount())
		for _, t := range target.Tiles() {
			if t.Block.Filled {
				backgrounds[t.Position] = t.Block.Color
			}
		}
		state.Grid = NewGrid(config.GridSize).WithBackgrounds(backgrounds)
		state.ChallengeSeed = seed
		for _, piece := range solution {
			state.Pending = append(state.Pending, QueuedShape{Shape: piece.Shape, TemplateID: piece.TemplateID})
		}
		state.Queue, state.Pending = takeQueue(state.Pending, config.QueueSize)
	default:
		state.Queue = drawQueue(DefaultShapeLibrary(), &state.RNG, config.Palette, config.QueueSize)
	}

	state.GameOver = checkStateGameOver(state, config)
	if state.GameOver {
		state.Message = config.Messages.GameOver
	}
	return state, nil
}

func drawQueue(lib *ShapeLibrary, rng *LCG, palette []string, n int) []QueuedShape {
	queue := make([]QueuedShape, 0, n)
	for i := 0; i < n; i++ {
		queue = append(queue, lib.Random(rng, palette))
	}
	return queue
}

func takeQueue(pending []QueuedShape, n int) (queue, rest []QueuedShape) {
	n = min(n, len(pending))
	queue = append([]QueuedShape{}, pending[:n]...)
	rest = append([]QueuedShape(nil), pending[n:]...)
	return queue, rest
}

func checkStateGameOver(state *GameState, config *GameConfig) bool {
	shapes := make([]Shape, len(state.Queue))
	unlocked := make([]bool, len(state.Queue))
	for i, q := range state.Queue {
		shapes[i] = q.Shape
		unlocked[i] = q.RotationUnlocked
	}
	return CheckGameOver(state.Grid, shapes, state.Score, unlocked, config.RotationUnlockCost)
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState sets the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Grid == nil {
		return fmt.Errorf("state has no grid")
	}
	if e.config != nil && state.Grid.Size() != e.config.GridSize {
		return fmt.Errorf("state grid size %d does not match config grid size %d", state.Grid.Size(), e.config.GridSize)
	}
	e.state = state
	return nil
}

// Reset starts a new game with the same config. Classic games draw a fresh
// queue from the current RNG; challenges replay the same seed. Placement
// history and totals carry over.
func (e *GameEngine) Reset() (*GameState, error) {
	seed := e.state.ChallengeSeed
	if e.config.Mode == ModeClassic {
		seed = int64(e.state.RNG.Next())
	}

	state, err := NewGameState(e.config, seed)
	if err != nil {
		return nil, err
	}
	state.PlacementHistory = e.state.PlacementHistory
	state.TotalPlacements = e.state.TotalPlacements
	e.state = state
	return e.state, nil
}

// IsGameOver returns whether no queued shape fits anywhere
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// IsChallengeComplete returns whether every challenge piece has been placed
func (e *GameEngine) IsChallengeComplete() bool {
	return e.state.ChallengeComplete
}

// GetScore returns the current score
func (e *GameEngine) GetScore() int {
	return e.state.Score
}

func (e *GameEngine) queued(queueIndex int) (QueuedShape, error) {
	if queueIndex < 0 || queueIndex >= len(e.state.Queue) {
		return QueuedShape{}, fmt.Errorf("%w: %d (queue has %d shapes)", ErrInvalidQueueIndex, queueIndex, len(e.state.Queue))
	}
	return e.state.Queue[queueIndex], nil
}

// CanPlace reports whether the queued shape fits with its anchor at target
func (e *GameEngine) CanPlace(queueIndex int, target *Position) bool {
	q, err := e.queued(queueIndex)
	if err != nil {
		return false
	}
	return IsValidPlacement(q.Shape, target, e.state.Grid)
}

// CanPlaceAnywhere reports whether any queued shape has a valid placement
func (e *GameEngine) CanPlaceAnywhere() bool {
	return !checkStateGameOver(e.state, e.config)
}

// PossiblePlacements lists every anchor target where the queued shape fits
// in its current orientation.
func (e *GameEngine) PossiblePlacements(queueIndex int) ([]Position, error) {
	q, err := e.queued(queueIndex)
	if err != nil {
		return nil, err
	}
	return ValidTargets(q.Shape, e.state.Grid), nil
}

// Place runs one placement transaction: validate, write the blocks, clear
// full lines, score, then schedule the clear animations from now. An invalid
// target is an ordinary outcome reported with Placed=false. The state is only
// updated once every step has been computed.
func (e *GameEngine) Place(queueIndex int, target *Position, now time.Time) (*PlacementResult, error) {
	if e.state.GameOver || e.state.ChallengeComplete {
		return nil, ErrGameOver
	}
	q, err := e.queued(queueIndex)
	if err != nil {
		return nil, err
	}

	base := now.UnixMilli()
	result := &PlacementResult{QueueIndex: queueIndex, Target: target}

	if !IsValidPlacement(q.Shape, target, e.state.Grid) {
		result.InvalidCells = InvalidBlocks(q.Shape, target, e.state.Grid)
		result.Message = e.config.Messages.InvalidPlacement
		result.Combo = Combo{Category: ComboNone}
		next := e.clone()
		next.Message = result.Message
		result.Record = recordPlacement(next, result, q, base)
		e.state = next
		return result, nil
	}

	placed, _ := ApplyPlacement(q.Shape, *target, e.state.Grid)
	clear := ClearFullLines(placed)
	points := ScorePlacement(len(clear.Rows), len(clear.Columns), clear.FullBoardClear,
		e.config.ScoreMultiplier, e.config.FullBoardBonus)

	grid := ScheduleLineClears(clear.Grid, clear.Rows, clear.Columns, base, e.config.Animations)
	if clear.FullBoardClear {
		delay := NormalAnimationsEnd(len(clear.Rows), len(clear.Columns), grid.Size(), e.config.Animations)
		grid = ScheduleFullBoardClear(grid, base, delay, e.config.Animations)
	}

	combo := ClassifyCombo(clear.Rows, clear.Columns)

	queue := make([]QueuedShape, 0, len(e.state.Queue))
	queue = append(queue, e.state.Queue[:queueIndex]...)
	queue = append(queue, e.state.Queue[queueIndex+1:]...)
	pending := e.state.Pending
	rng := e.state.RNG
	if len(queue) == 0 {
		if e.config.Mode == ModeDailyChallenge {
			queue, pending = takeQueue(pending, e.config.QueueSize)
		} else {
			queue = drawQueue(e.library, &rng, e.config.Palette, e.config.QueueSize)
		}
	}

	next := *e.state
	next.Grid = grid
	next.Score = e.state.Score + points
	next.Queue = queue
	next.Pending = pending
	next.RNG = rng
	next.Stats = e.state.Stats.Record(combo, points, clear.FullBoardClear)
	next.ChallengeComplete = e.config.Mode == ModeDailyChallenge && len(queue) == 0
	next.GameOver = !next.ChallengeComplete && checkStateGameOver(&next, e.config)

	switch {
	case next.ChallengeComplete:
		next.Message = e.config.Messages.ChallengeComplete
	case next.GameOver:
		next.Message = e.config.Messages.GameOver
	case clear.FullBoardClear && e.config.Messages.FullBoardClear != "":
		next.Message = fmt.Sprintf(e.config.Messages.FullBoardClear, e.config.FullBoardBonus)
	default:
		next.Message = fmt.Sprintf(e.config.Messages.Placed, points)
	}

	result.Placed = true
	result.Rows = clear.Rows
	result.Columns = clear.Columns
	result.FullBoardClear = clear.FullBoardClear
	result.Points = points
	result.Combo = combo
	result.GameOver = next.GameOver
	result.ChallengeComplete = next.ChallengeComplete
	result.Message = next.Message
	result.Record = recordPlacement(&next, result, q, base)
	e.state = &next
	return result, nil
}

// clone copies the current state so it can be changed without touching
// states already returned to callers. Queue gets its own backing array.
func (e *GameEngine) clone() *GameState {
	next := *e.state
	next.Queue = append([]QueuedShape(nil), e.state.Queue...)
	return &next
}

// recordPlacement appends the attempt to a fresh copy of the state's history
func recordPlacement(state *GameState, result *PlacementResult, q QueuedShape, timestamp int64) *PlacementRecord {
	state.TotalPlacements++
	rec := PlacementRecord{
		ID:              uuid.NewString(),
		QueueIndex:      result.QueueIndex,
		TemplateID:      q.TemplateID,
		Target:          result.Target,
		Placed:          result.Placed,
		Points:          result.Points,
		RowsCleared:     len(result.Rows),
		ColumnsCleared:  len(result.Columns),
		FullBoardClear:  result.FullBoardClear,
		Combo:           result.Combo.Category,
		ScoreAfter:      state.Score,
		Timestamp:       timestamp,
		PlacementNumber: state.TotalPlacements,
	}
	history := make([]PlacementRecord, len(state.PlacementHistory), len(state.PlacementHistory)+1)
	copy(history, state.PlacementHistory)
	state.PlacementHistory = append(history, rec)
	return &state.PlacementHistory[len(state.PlacementHistory)-1]
}

// Rotate turns a queued shape 90° clockwise. It fails when rotation has not
// been unlocked for that shape.
func (e *GameEngine) Rotate(queueIndex int) (bool, error) {
	q, err := e.queued(queueIndex)
	if err != nil {
		return false, err
	}
	next := e.clone()
	if !q.RotationUnlocked {
		next.Message = e.config.Messages.RotationLocked
		e.state = next
		return false, nil
	}
	next.Queue[queueIndex].Shape = q.Shape.Rotate()
	e.state = next
	return true, nil
}

// UnlockRotation spends RotationUnlockCost points to allow rotating a queued
// shape. Unlocking an already unlocked shape is a no-op that succeeds.
func (e *GameEngine) UnlockRotation(queueIndex int) (bool, error) {
	q, err := e.queued(queueIndex)
	if err != nil {
		return false, err
	}
	if q.RotationUnlocked {
		return true, nil
	}
	next := e.clone()
	if next.Score < e.config.RotationUnlockCost {
		next.Message = fmt.Sprintf("Unlocking rotation costs %d points", e.config.RotationUnlockCost)
		e.state = next
		return false, nil
	}

	next.Score -= e.config.RotationUnlockCost
	next.Queue[queueIndex].RotationUnlocked = true
	next.GameOver = checkStateGameOver(next, e.config)
	if next.GameOver {
		next.Message = e.config.Messages.GameOver
	}
	e.state = next
	return true, nil
}

// CleanupAnimations removes finished animations and reports whether anything changed
func (e *GameEngine) CleanupAnimations(now time.Time) bool {
	grid := CleanupAnimations(e.state.Grid, now.UnixMilli())
	if grid == e.state.Grid {
		return false
	}
	next := e.clone()
	next.Grid = grid
	e.state = next
	return true
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and resets the game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	state, err := NewGameState(config, config.Seed)
	if err != nil {
		return err
	}
	e.config = config
	e.state = state
	return nil
}

// GetPlacementHistory returns the complete placement history
func (e *GameEngine) GetPlacementHistory() []PlacementRecord {
	return e.state.PlacementHistory
}

// GetLastPlacement returns the last placement attempt, or nil if none
func (e *GameEngine) GetLastPlacement() *PlacementRecord {
	if len(e.state.PlacementHistory) == 0 {
		return nil
	}
	return &e.state.PlacementHistory[len(e.state.PlacementHistory)-1]
}
