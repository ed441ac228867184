package engine

import "fmt"

// GameMode selects how the shape queue is produced
type GameMode string

const (
	ModeClassic        GameMode = "classic"
	ModeDailyChallenge GameMode = "daily_challenge"

	// Validation constants
	MinGridSize     = 4
	MaxGridSize     = 20
	DefaultGridSize = 10
	MaxShapeSize    = 5
	MinQueueSize    = 1
	MaxQueueSize    = 5

	// SearchPadding is how far outside the grid the game-over search probes anchor targets.
	SearchPadding = 3
)

// Position is a 1-indexed grid coordinate
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Column)
}

// Cell is a 0-indexed coordinate local to a shape's bounding square
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Block is the content of a grid tile or a shape cell.
// Color is only meaningful when Filled is true.
type Block struct {
	Filled bool   `json:"is_filled"`
	Color  string `json:"color,omitempty"`
}

// Tile is a single grid entry. Tiles are immutable once stored in a Grid.
type Tile struct {
	Position        Position        `json:"position"`
	BackgroundColor string          `json:"background_color,omitempty"`
	Block           Block           `json:"block"`
	Animations      []TileAnimation `json:"active_animations,omitempty"`
}

// ClearedLine identifies a row or column removed by a clear.
// Color is set only when every block in the line shared one color.
type ClearedLine struct {
	Index int    `json:"index"`
	Color string `json:"color,omitempty"`
}

// SolvedShape is one piece of a challenge decomposition.
// GridPosition is where the shape's local (0,0) cell lands.
type SolvedShape struct {
	TemplateID   string   `json:"template_id"`
	Shape        Shape    `json:"shape"`
	GridPosition Position `json:"grid_position"`
}

// AnchorTarget returns the placement target that reproduces this piece's position
func (s SolvedShape) AnchorTarget() Position {
	anchor, _ := s.Shape.Anchor()
	return Position{
		Row:    s.GridPosition.Row + anchor.Row,
		Column: s.GridPosition.Column + anchor.Col,
	}
}

// QueuedShape is a shape waiting to be placed
type QueuedShape struct {
	Shape            Shape  `json:"shape"`
	TemplateID       string `json:"template_id"`
	RotationUnlocked bool   `json:"rotation_unlocked"`
}

// PlacementRecord is a single entry in the placement history
type PlacementRecord struct {
	ID              string        `json:"id"`
	QueueIndex      int           `json:"queue_index"`
	TemplateID      string        `json:"template_id,omitempty"`
	Target          *Position     `json:"target,omitempty"`
	Placed          bool          `json:"placed"`
	Points          int           `json:"points"`
	RowsCleared     int           `json:"rows_cleared"`
	ColumnsCleared  int           `json:"columns_cleared"`
	FullBoardClear  bool          `json:"full_board_clear,omitempty"`
	Combo           ComboCategory `json:"combo,omitempty"`
	ScoreAfter      int           `json:"score_after"`
	Timestamp       int64         `json:"timestamp"`
	PlacementNumber int           `json:"placement_number"`
}

// GameState represents the complete game state
type GameState struct {
	Grid              *Grid         `json:"grid"`
	Score             int           `json:"score"`
	Queue             []QueuedShape `json:"queue"`
	Pending           []QueuedShape `json:"pending,omitempty"`
	RNG               LCG           `json:"rng"`
	Stats             ComboStats    `json:"stats"`
	GameOver          bool          `json:"game_over"`
	ChallengeComplete bool          `json:"challenge_complete,omitempty"`
	Message           string        `json:"message"`
	ConfigName        string        `json:"config_name"`
	Mode              GameMode      `json:"mode"`
	ChallengeSeed     int64         `json:"challenge_seed,omitempty"`

	PlacementHistory []PlacementRecord `json:"placement_history"`
	TotalPlacements  int               `json:"total_placements"`
}

// PlacementResult describes the outcome of one placement transaction
type PlacementResult struct {
	Placed            bool             `json:"placed"`
	QueueIndex        int              `json:"queue_index"`
	Target            *Position        `json:"target,omitempty"`
	InvalidCells      []Cell           `json:"invalid_cells,omitempty"`
	Rows              []ClearedLine    `json:"cleared_rows,omitempty"`
	Columns           []ClearedLine    `json:"cleared_columns,omitempty"`
	FullBoardClear    bool             `json:"full_board_clear,omitempty"`
	Points            int              `json:"points"`
	Combo             Combo            `json:"combo"`
	GameOver          bool             `json:"game_over"`
	ChallengeComplete bool             `json:"challenge_complete,omitempty"`
	Message           string           `json:"message"`
	Record            *PlacementRecord `json:"record,omitempty"`
}
