package engine

import "fmt"

// SnapshotVersion is bumped whenever the Snapshot layout changes
const SnapshotVersion = 1

// TileSnapshot is the flat persistence form of a tile. Animations are
// transient and not part of it.
type TileSnapshot struct {
	Position        Position `json:"position"`
	Filled          bool     `json:"is_filled"`
	Color           string   `json:"color,omitempty"`
	BackgroundColor string   `json:"background_color,omitempty"`
}

// Snapshot is the plain serializable view of a GameState handed to persistence
type Snapshot struct {
	Version           int               `json:"version"`
	ConfigName        string            `json:"config_name"`
	Mode              GameMode          `json:"mode"`
	GridSize          int               `json:"grid_size"`
	Tiles             []TileSnapshot    `json:"tiles"`
	Score             int               `json:"score"`
	Stats             ComboStats        `json:"stats"`
	Queue             []QueuedShape     `json:"queue"`
	Pending           []QueuedShape     `json:"pending,omitempty"`
	RNG               LCG               `json:"rng"`
	GameOver          bool              `json:"game_over"`
	ChallengeComplete bool              `json:"challenge_complete,omitempty"`
	ChallengeSeed     int64             `json:"challenge_seed,omitempty"`
	Message           string            `json:"message"`
	TotalPlacements   int               `json:"total_placements"`
	PlacementHistory  []PlacementRecord `json:"placement_history,omitempty"`
}

// Snapshot flattens the state
func (s *GameState) Snapshot() Snapshot {
	tiles := make([]TileSnapshot, 0, s.Grid.Size()*s.Grid.Size())
	for _, t := range s.Grid.Tiles() {
		tiles = append(tiles, TileSnapshot{
			Position:        t.Position,
			Filled:          t.Block.Filled,
			Color:           t.Block.Color,
			BackgroundColor: t.BackgroundColor,
		})
	}
	return Snapshot{
		Version:           SnapshotVersion,
		ConfigName:        s.ConfigName,
		Mode:              s.Mode,
		GridSize:          s.Grid.Size(),
		Tiles:             tiles,
		Score:             s.Score,
		Stats:             s.Stats,
		Queue:             s.Queue,
		Pending:           s.Pending,
		RNG:               s.RNG,
		GameOver:          s.GameOver,
		ChallengeComplete: s.ChallengeComplete,
		ChallengeSeed:     s.ChallengeSeed,
		Message:           s.Message,
		TotalPlacements:   s.TotalPlacements,
		PlacementHistory:  s.PlacementHistory,
	}
}

// RestoreSnapshot rebuilds a GameState, rejecting snapshots whose tile list
// does not describe exactly one tile per position.
func RestoreSnapshot(snap Snapshot) (*GameState, error) {
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	n := snap.GridSize
	if n < MinGridSize || n > MaxGridSize {
		return nil, fmt.Errorf("snapshot grid size %d out of range", n)
	}
	if len(snap.Tiles) != n*n {
		return nil, fmt.Errorf("snapshot has %d tiles, want %d", len(snap.Tiles), n*n)
	}

	grid := NewGrid(n)
	seen := make(map[Position]bool, n*n)
	blocks := make(map[Position]Block)
	backgrounds := make(map[Position]string)
	for _, t := range snap.Tiles {
		if !grid.InBounds(t.Position) {
			return nil, fmt.Errorf("snapshot tile %s out of bounds", t.Position)
		}
		if seen[t.Position] {
			return nil, fmt.Errorf("snapshot tile %s appears twice", t.Position)
		}
		seen[t.Position] = true
		if t.Filled {
			if t.Color == "" {
				return nil, fmt.Errorf("snapshot tile %s is filled without a color", t.Position)
			}
			blocks[t.Position] = Block{Filled: true, Color: t.Color}
		}
		if t.BackgroundColor != "" {
			backgrounds[t.Position] = t.BackgroundColor
		}
	}

	stats := snap.Stats
	if stats.Categories == nil {
		stats = NewComboStats()
	}
	history := snap.PlacementHistory
	if history == nil {
		history = []PlacementRecord{}
	}

	return &GameState{
		Grid:              grid.WithBlocks(blocks).WithBackgrounds(backgrounds),
		Score:             snap.Score,
		Queue:             snap.Queue,
		Pending:           snap.Pending,
		RNG:               snap.RNG,
		Stats:             stats,
		GameOver:          snap.GameOver,
		ChallengeComplete: snap.ChallengeComplete,
		Message:           snap.Message,
		ConfigName:        snap.ConfigName,
		Mode:              snap.Mode,
		ChallengeSeed:     snap.ChallengeSeed,
		PlacementHistory:  history,
		TotalPlacements:   snap.TotalPlacements,
	}, nil
}
