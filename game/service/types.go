package service

import (
	"time"

	"github.com/wricardo/blockgrid/game/engine"
)

// SessionInfo provides session metadata and current state
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config,omitempty"`
}

// PlaceResult contains the outcome of one placement
type PlaceResult struct {
	Success   bool                    `json:"success"`
	Placement *engine.PlacementResult `json:"placement"`
	GameState *engine.GameState       `json:"game_state"`
	Events    []GameEvent             `json:"events,omitempty"`
	Message   string                  `json:"message"`
}

// RotationResult contains the outcome of a rotate or unlock request
type RotationResult struct {
	Success    bool               `json:"success"`
	QueueIndex int                `json:"queue_index"`
	Shape      engine.QueuedShape `json:"shape"`
	GameState  *engine.GameState  `json:"game_state"`
	Message    string             `json:"message"`
}

// CleanupResult reports an animation cleanup pass
type CleanupResult struct {
	Changed          bool              `json:"changed"`
	ActiveAnimations int               `json:"active_animations"`
	GameState        *engine.GameState `json:"game_state"`
}

// GameEvent represents significant game events
type GameEvent struct {
	Type      string           `json:"type"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Position  *engine.Position `json:"position,omitempty"`
}

// Event types carried by GameEvent
const (
	EventPlaced            = "placed"
	EventInvalidPlacement  = "invalid_placement"
	EventLinesCleared      = "lines_cleared"
	EventFullBoardClear    = "full_board_clear"
	EventGameOver          = "game_over"
	EventChallengeComplete = "challenge_complete"
)

// HistoryOptions configures history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated placement history
type HistoryResponse struct {
	Placements      []engine.PlacementRecord `json:"placements"`
	TotalPlacements int                      `json:"total_placements"`
	Page            int                      `json:"page"`
	PageSize        int                      `json:"page_size"`
	TotalPages      int                      `json:"total_pages"`
	HasNext         bool                     `json:"has_next"`
	HasPrevious     bool                     `json:"has_previous"`
}

// StatsResponse summarizes a session's scoring
type StatsResponse struct {
	SessionID         string            `json:"session_id"`
	Score             int               `json:"score"`
	Stats             engine.ComboStats `json:"stats"`
	TotalAttempts     int               `json:"total_attempts"`
	InvalidAttempts   int               `json:"invalid_attempts"`
	FilledTiles       int               `json:"filled_tiles"`
	ActiveAnimations  int               `json:"active_animations"`
	GameOver          bool              `json:"game_over"`
	ChallengeComplete bool              `json:"challenge_complete"`
}

// ConfigInfo provides configuration metadata
type ConfigInfo struct {
	Filename    string          `json:"filename"`
	ConfigID    string          `json:"config_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Mode        engine.GameMode `json:"mode"`
	GridSize    int             `json:"grid_size"`
	QueueSize   int             `json:"queue_size"`
}

// SolveRequest describes a challenge target to decompose. Either ConfigID
// names a challenge config, or Layout and Legend describe the target directly.
type SolveRequest struct {
	ConfigID string            `json:"config_id,omitempty"`
	Layout   []string          `json:"layout,omitempty"`
	Legend   map[string]string `json:"legend,omitempty"`
	Seed     int64             `json:"seed"`
}

// SolveResult is a decomposition of a challenge target
type SolveResult struct {
	Seed     int64                `json:"seed"`
	GridSize int                  `json:"grid_size"`
	Pieces   []engine.SolvedShape `json:"pieces"`
	Stats    engine.SolveStats    `json:"stats"`
	Duration time.Duration        `json:"duration_ns"`
}
