package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EmptyLayoutCell marks an unfilled cell in a config layout
const EmptyLayoutCell = '.'

// Messages holds the player-facing texts of a config
type Messages struct {
	Welcome           string `json:"welcome"`
	Placed            string `json:"placed"`
	InvalidPlacement  string `json:"invalid_placement"`
	GameOver          string `json:"game_over"`
	FullBoardClear    string `json:"full_board_clear"`
	ChallengeComplete string `json:"challenge_complete"`
	RotationLocked    string `json:"rotation_locked"`
}

// GameConfig defines the rules and starting board of a game
type GameConfig struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Mode               GameMode          `json:"mode"`
	GridSize           int               `json:"grid_size"`
	QueueSize          int               `json:"queue_size"`
	ScoreMultiplier    int               `json:"score_multiplier"`
	FullBoardBonus     int               `json:"full_board_bonus"`
	RotationUnlockCost int               `json:"rotation_unlock_cost"`
	Seed               int64             `json:"seed,omitempty"`
	Palette            []string          `json:"palette"`
	Layout             []string          `json:"layout,omitempty"`
	Legend             map[string]string `json:"legend,omitempty"`
	Animations         AnimationConfig   `json:"animations"`
	Messages           Messages          `json:"messages"`
}

// DefaultGameConfig returns the stock classic configuration
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:               "Classic",
		Description:        "Place shapes on a 10x10 board and clear full rows and columns",
		Mode:               ModeClassic,
		GridSize:           DefaultGridSize,
		QueueSize:          3,
		ScoreMultiplier:    5,
		FullBoardBonus:     300,
		RotationUnlockCost: 50,
		Palette:            append([]string(nil), DefaultPalette...),
		Animations:         DefaultAnimationConfig(),
		Messages: Messages{
			Welcome:           "Welcome! Fill rows and columns to clear them.",
			Placed:            "Placed! +%d points",
			InvalidPlacement:  "That shape does not fit there",
			GameOver:          "No moves left! Game over.",
			FullBoardClear:    "Full board clear! +%d bonus",
			ChallengeComplete: "Challenge complete!",
			RotationLocked:    "Rotation is locked for this shape",
		},
	}
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	switch config.Mode {
	case ModeClassic, ModeDailyChallenge:
	default:
		return fmt.Errorf("config validation: mode must be %q or %q, got %q", ModeClassic, ModeDailyChallenge, config.Mode)
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: grid_size must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridSize)
	}
	if config.QueueSize < MinQueueSize || config.QueueSize > MaxQueueSize {
		return fmt.Errorf("config validation: queue_size must be between %d and %d, got %d", MinQueueSize, MaxQueueSize, config.QueueSize)
	}
	if config.ScoreMultiplier < 1 {
		return fmt.Errorf("config validation: score_multiplier must be at least 1, got %d", config.ScoreMultiplier)
	}
	if config.FullBoardBonus < 0 {
		return fmt.Errorf("config validation: full_board_bonus cannot be negative, got %d", config.FullBoardBonus)
	}
	if config.RotationUnlockCost < 0 {
		return fmt.Errorf("config validation: rotation_unlock_cost cannot be negative, got %d", config.RotationUnlockCost)
	}

	if len(config.Palette) == 0 {
		return fmt.Errorf("config validation: palette must contain at least one color")
	}
	for i, color := range config.Palette {
		if color == "" {
			return fmt.Errorf("config validation: palette[%d] is empty", i)
		}
	}

	if err := validateLayout(config); err != nil {
		return err
	}
	if err := validateAnimations(config.Animations); err != nil {
		return err
	}

	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.GameOver == "" {
		return fmt.Errorf("config validation: messages.game_over is required")
	}
	if config.Messages.InvalidPlacement == "" {
		return fmt.Errorf("config validation: messages.invalid_placement is required")
	}
	if !strings.Contains(config.Messages.Placed, "%d") {
		return fmt.Errorf("config validation: messages.placed must contain %%d for points")
	}
	if config.Messages.FullBoardClear != "" && !strings.Contains(config.Messages.FullBoardClear, "%d") {
		return fmt.Errorf("config validation: messages.full_board_clear must contain %%d for the bonus")
	}
	if config.Mode == ModeDailyChallenge && config.Messages.ChallengeComplete == "" {
		return fmt.Errorf("config validation: messages.challenge_complete is required in %s mode", ModeDailyChallenge)
	}

	return nil
}

func validateLayout(config *GameConfig) error {
	if len(config.Layout) == 0 {
		if config.Mode == ModeDailyChallenge {
			return fmt.Errorf("config validation: layout is required in %s mode", ModeDailyChallenge)
		}
		return nil
	}

	if len(config.Layout) != config.GridSize {
		return fmt.Errorf("config validation: layout must have %d rows to match grid_size, got %d",
			config.GridSize, len(config.Layout))
	}
	for key, color := range config.Legend {
		if len(key) != 1 || key[0] == EmptyLayoutCell {
			return fmt.Errorf("config validation: legend key %q must be a single character other than '%c'", key, EmptyLayoutCell)
		}
		if color == "" {
			return fmt.Errorf("config validation: legend['%s'] has no color", key)
		}
	}

	filled := 0
	for i, row := range config.Layout {
		if len(row) != config.GridSize {
			return fmt.Errorf("config validation: row %d must have %d characters to match grid_size, got %d",
				i+1, config.GridSize, len(row))
		}
		rowFilled := 0
		for j, char := range row {
			if char == EmptyLayoutCell {
				continue
			}
			if _, ok := config.Legend[string(char)]; !ok {
				return fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", char, i+1, j+1)
			}
			rowFilled++
		}
		filled += rowFilled
		if config.Mode == ModeClassic && rowFilled == config.GridSize {
			return fmt.Errorf("config validation: row %d of the starting board is already full", i+1)
		}
	}

	if config.Mode == ModeClassic {
		for c := 0; c < config.GridSize; c++ {
			full := true
			for r := 0; r < config.GridSize; r++ {
				if config.Layout[r][c] == EmptyLayoutCell {
					full = false
					break
				}
			}
			if full {
				return fmt.Errorf("config validation: column %d of the starting board is already full", c+1)
			}
		}
	}

	if config.Mode == ModeDailyChallenge && filled == 0 {
		return fmt.Errorf("config validation: challenge layout must contain at least one filled cell")
	}
	return nil
}

func validateAnimations(a AnimationConfig) error {
	tiers := map[string]AnimationTier{"single": a.Single, "double": a.Double, "triple": a.Triple, "quad": a.Quad}
	for name, tier := range tiers {
		if tier.Duration <= 0 || tier.WaveDelay < 0 || tier.StartDelay < 0 {
			return fmt.Errorf("config validation: animations.%s needs a positive duration and non-negative delays", name)
		}
	}
	if a.QuadBeatCount < 1 {
		return fmt.Errorf("config validation: animations.quad_beat_count must be at least 1, got %d", a.QuadBeatCount)
	}
	if a.QuadFinishDuration < 0 || a.QuadFinishDuration > a.Quad.Duration {
		return fmt.Errorf("config validation: animations.quad_finish_duration_ms must be between 0 and the quad duration (%d), got %d",
			a.Quad.Duration, a.QuadFinishDuration)
	}
	fb := a.FullBoard
	if fb.ColumnDuration <= 0 || fb.RowDuration <= 0 {
		return fmt.Errorf("config validation: animations.full_board durations must be positive")
	}
	if fb.ColumnWaveDelay < 0 || fb.RowWaveDelay < 0 || fb.ColumnToRowDelay < 0 {
		return fmt.Errorf("config validation: animations.full_board delays cannot be negative")
	}
	return nil
}

// LayoutGrid builds the grid described by the layout: legend characters
// become filled blocks of the legend color. An absent layout is an empty grid.
func (c *GameConfig) LayoutGrid() *Grid {
	grid := NewGrid(c.GridSize)
	if len(c.Layout) == 0 {
		return grid
	}
	blocks := make(map[Position]Block)
	for r, row := range c.Layout {
		for col, char := range row {
			if color, ok := c.Legend[string(char)]; ok && char != EmptyLayoutCell {
				blocks[Position{Row: r + 1, Column: col + 1}] = Block{Filled: true, Color: color}
			}
		}
	}
	return grid.WithBlocks(blocks)
}

// DailySeed derives the challenge seed for a calendar day as yyyymmdd
func DailySeed(day time.Time) int64 {
	y, m, d := day.Date()
	return int64(y*10000 + int(m)*100 + d)
}

// LoadGameConfig loads a game configuration from a JSON file. Fields absent
// from the file keep the values of DefaultGameConfig.
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	return ParseGameConfig(data)
}

// ParseGameConfig decodes and validates a JSON configuration over the defaults
func ParseGameConfig(data []byte) (*GameConfig, error) {
	config := DefaultGameConfig()
	config.Palette = nil
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}
	if len(config.Palette) == 0 {
		config.Palette = append([]string(nil), DefaultPalette...)
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigByName loads a game configuration by name from the configs directory
func LoadConfigByName(configName string) (*GameConfig, error) {
	if !strings.HasSuffix(configName, ".json") {
		configName = configName + ".json"
	}

	config, err := LoadGameConfig(filepath.Join("configs", configName))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file '%s' not found", configName)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
	}
	return config, nil
}
