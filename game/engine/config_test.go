package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createValidConfig() *GameConfig {
	config := DefaultGameConfig()
	config.Name = "Test Config"
	config.Description = "A valid test configuration"
	config.GridSize = 5
	config.Seed = 42
	return config
}

func createChallengeConfig() *GameConfig {
	config := createValidConfig()
	config.Name = "Test Challenge"
	config.Mode = ModeDailyChallenge
	config.Layout = []string{
		".....",
		".RR..",
		".RB..",
		"..BBB",
		".....",
	}
	config.Legend = map[string]string{"R": "red", "B": "blue"}
	return config
}

func TestValidateGameConfig_ValidConfig(t *testing.T) {
	assert.NoError(t, ValidateGameConfig(createValidConfig()))
	assert.NoError(t, ValidateGameConfig(createChallengeConfig()))
	assert.NoError(t, ValidateGameConfig(DefaultGameConfig()))
}

func TestValidateGameConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *GameConfig)
		wantErr string
	}{
		{"missing name", func(c *GameConfig) { c.Name = "" }, "name is required"},
		{"missing description", func(c *GameConfig) { c.Description = "" }, "description is required"},
		{"unknown mode", func(c *GameConfig) { c.Mode = "arcade" }, "mode must be"},
		{"grid too small", func(c *GameConfig) { c.GridSize = 3 }, "grid_size must be between"},
		{"grid too large", func(c *GameConfig) { c.GridSize = 21 }, "grid_size must be between"},
		{"queue too small", func(c *GameConfig) { c.QueueSize = 0 }, "queue_size must be between"},
		{"queue too large", func(c *GameConfig) { c.QueueSize = 6 }, "queue_size must be between"},
		{"zero multiplier", func(c *GameConfig) { c.ScoreMultiplier = 0 }, "score_multiplier"},
		{"negative bonus", func(c *GameConfig) { c.FullBoardBonus = -1 }, "full_board_bonus"},
		{"negative unlock cost", func(c *GameConfig) { c.RotationUnlockCost = -5 }, "rotation_unlock_cost"},
		{"empty palette", func(c *GameConfig) { c.Palette = nil }, "palette must contain"},
		{"blank palette color", func(c *GameConfig) { c.Palette = []string{"red", ""} }, "palette[1] is empty"},
		{"layout row count", func(c *GameConfig) {
			c.Layout = []string{".....", "....."}
		}, "layout must have 5 rows"},
		{"layout row width", func(c *GameConfig) {
			c.Layout = []string{".....", "....", ".....", ".....", "....."}
		}, "row 2 must have 5 characters"},
		{"unknown layout character", func(c *GameConfig) {
			c.Layout = []string{".....", "..Z..", ".....", ".....", "....."}
			c.Legend = map[string]string{"R": "red"}
		}, "invalid character 'Z' at row 2, col 3"},
		{"prefilled full row", func(c *GameConfig) {
			c.Layout = []string{".....", "RRRRR", ".....", ".....", "....."}
			c.Legend = map[string]string{"R": "red"}
		}, "row 2 of the starting board is already full"},
		{"prefilled full column", func(c *GameConfig) {
			c.Layout = []string{"R....", "R....", "R....", "R....", "R...."}
			c.Legend = map[string]string{"R": "red"}
		}, "column 1 of the starting board is already full"},
		{"legend without color", func(c *GameConfig) {
			c.Layout = []string{"R....", ".....", ".....", ".....", "....."}
			c.Legend = map[string]string{"R": ""}
		}, "has no color"},
		{"missing welcome", func(c *GameConfig) { c.Messages.Welcome = "" }, "messages.welcome"},
		{"missing game over", func(c *GameConfig) { c.Messages.GameOver = "" }, "messages.game_over"},
		{"placed without points verb", func(c *GameConfig) { c.Messages.Placed = "Placed!" }, "messages.placed must contain %d"},
		{"zero quad beats", func(c *GameConfig) { c.Animations.QuadBeatCount = 0 }, "quad_beat_count"},
		{"finish longer than quad", func(c *GameConfig) { c.Animations.QuadFinishDuration = 5000 }, "quad_finish_duration_ms"},
		{"zero tier duration", func(c *GameConfig) { c.Animations.Double.Duration = 0 }, "animations.double"},
		{"negative full board delay", func(c *GameConfig) { c.Animations.FullBoard.ColumnToRowDelay = -1 }, "full_board delays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createValidConfig()
			tt.mutate(config)
			err := ValidateGameConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateGameConfig_ChallengeRequiresLayout(t *testing.T) {
	config := createChallengeConfig()
	config.Layout = nil
	err := ValidateGameConfig(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layout is required")

	config = createChallengeConfig()
	config.Layout = []string{".....", ".....", ".....", ".....", "....."}
	err = ValidateGameConfig(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one filled cell")

	// A challenge target may contain full lines
	config = createChallengeConfig()
	config.Layout = []string{"RRRRR", ".....", ".....", ".....", "....."}
	assert.NoError(t, ValidateGameConfig(config))
}

func TestGameConfig_LayoutGrid(t *testing.T) {
	config := createChallengeConfig()
	grid := config.LayoutGrid()

	assert.Equal(t, 5, grid.Size())
	assert.Equal(t, 7, grid.FilledCount())

	tile, ok := grid.Tile(Position{Row: 2, Column: 2})
	require.True(t, ok)
	assert.Equal(t, Block{Filled: true, Color: "red"}, tile.Block)

	tile, ok = grid.Tile(Position{Row: 4, Column: 5})
	require.True(t, ok)
	assert.Equal(t, "blue", tile.Block.Color)

	assert.True(t, createValidConfig().LayoutGrid().IsEmpty())
}

func TestDailySeed(t *testing.T) {
	day := time.Date(2024, time.March, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, int64(20240307), DailySeed(day))
}

const testConfigJSON = `{
	"name": "Test Config",
	"description": "Test description",
	"mode": "classic",
	"grid_size": 6,
	"queue_size": 2,
	"score_multiplier": 10,
	"full_board_bonus": 500,
	"rotation_unlock_cost": 20,
	"layout": [
		"R.....",
		".B....",
		"......",
		"......",
		"......",
		"......"
	],
	"legend": {"R": "red", "B": "blue"},
	"messages": {
		"welcome": "Welcome!",
		"placed": "Nice, %d points",
		"invalid_placement": "Nope",
		"game_over": "Done"
	}
}`

func TestLoadConfigByName(t *testing.T) {
	tempDir := t.TempDir()
	t.Chdir(tempDir)

	require.NoError(t, os.MkdirAll("configs", 0755))
	require.NoError(t, os.WriteFile(filepath.Join("configs", "test.json"), []byte(testConfigJSON), 0644))

	config, err := LoadConfigByName("test")
	require.NoError(t, err)
	assert.Equal(t, "Test Config", config.Name)

	config2, err := LoadConfigByName("test.json")
	require.NoError(t, err)
	assert.Equal(t, "Test Config", config2.Name)

	_, err = LoadConfigByName("nonexistent")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"), "got %v", err)
}

func TestLoadGameConfig(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "test_config.json")
	require.NoError(t, os.WriteFile(tempFile, []byte(testConfigJSON), 0644))

	config, err := LoadGameConfig(tempFile)
	require.NoError(t, err)

	assert.Equal(t, 6, config.GridSize)
	assert.Equal(t, 2, config.QueueSize)
	assert.Equal(t, 10, config.ScoreMultiplier)
	assert.Equal(t, 500, config.FullBoardBonus)
	assert.Equal(t, "Nope", config.Messages.InvalidPlacement)

	// Absent fields keep their defaults
	assert.Equal(t, DefaultAnimationConfig(), config.Animations)
	assert.Equal(t, DefaultPalette, config.Palette)
	assert.Equal(t, DefaultGameConfig().Messages.ChallengeComplete, config.Messages.ChallengeComplete)

	_, err = LoadGameConfig("nonexistent.json")
	assert.Error(t, err)
}

func TestParseGameConfig_Invalid(t *testing.T) {
	_, err := ParseGameConfig([]byte(`{"name": ""}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")

	_, err = ParseGameConfig([]byte(`{not json`))
	assert.Error(t, err)
}

func TestInitGameStateFromConfig(t *testing.T) {
	config := createValidConfig()
	config.Layout = []string{"R....", ".....", ".....", ".....", "....."}
	config.Legend = map[string]string{"R": "red"}

	state, err := InitGameStateFromConfig(config)
	require.NoError(t, err)

	assert.Equal(t, 0, state.Score)
	assert.False(t, state.GameOver)
	assert.Equal(t, config.Messages.Welcome, state.Message)
	assert.Equal(t, ModeClassic, state.Mode)
	assert.Equal(t, 5, state.Grid.Size())
	assert.Equal(t, 1, state.Grid.FilledCount())
	assert.Len(t, state.Queue, config.QueueSize)
	assert.NotNil(t, state.PlacementHistory)

	for _, q := range state.Queue {
		assert.False(t, q.Shape.IsEmpty())
		assert.Contains(t, config.Palette, q.Shape.Block(q.Shape.Cells()[0].Row, q.Shape.Cells()[0].Col).Color)
	}

	again, err := InitGameStateFromConfig(config)
	require.NoError(t, err)
	for i := range state.Queue {
		assert.True(t, state.Queue[i].Shape.Equal(again.Queue[i].Shape), "queue %d differs for the same seed", i)
	}

	defaultState, err := InitGameStateFromConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultGridSize, defaultState.Grid.Size())
}

func TestInitGameStateFromConfig_Challenge(t *testing.T) {
	config := createChallengeConfig()
	state, err := NewGameState(config, 20240307)
	require.NoError(t, err)

	assert.Equal(t, ModeDailyChallenge, state.Mode)
	assert.Equal(t, int64(20240307), state.ChallengeSeed)
	assert.True(t, state.Grid.IsEmpty(), "challenge boards start empty")

	tile, _ := state.Grid.Tile(Position{Row: 2, Column: 2})
	assert.Equal(t, "red", tile.BackgroundColor)

	cells := 0
	for _, q := range append(append([]QueuedShape{}, state.Queue...), state.Pending...) {
		cells += q.Shape.FilledCount()
	}
	assert.Equal(t, 7, cells)
	assert.LessOrEqual(t, len(state.Queue), config.QueueSize)
}
