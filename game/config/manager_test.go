package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/blockgrid/game/engine"
)

func createValidConfig() *engine.GameConfig {
	config := engine.DefaultGameConfig()
	config.Name = "Test Config"
	config.Description = "Test configuration"
	config.GridSize = 6
	config.Layout = []string{
		"......",
		".R....",
		"......",
		"....B.",
		"......",
		"......",
	}
	config.Legend = map[string]string{"R": "red", "B": "blue"}
	return config
}

func writeConfigFile(t *testing.T, dir, name string, config any) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	require.NoError(t, err)

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), data, 0644))
}

func TestNewManager(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("empty directory uses built-in default", func(t *testing.T) {
		m, err := NewManager(t.TempDir())
		require.NoError(t, err)
		def := m.GetDefault()
		require.NotNil(t, def)
		assert.Equal(t, "default", def.Name)
		assert.NoError(t, engine.ValidateGameConfig(def))
	})

	t.Run("classic preferred", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "aaa", createValidConfig())
		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic", classic)

		m, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "Classic", m.GetDefault().Name)
	})

	t.Run("first valid config otherwise", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "beta", createValidConfig())

		m, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "Test Config", m.GetDefault().Name)
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "valid", createValidConfig())

	invalid := createValidConfig()
	invalid.GridSize = 2
	writeConfigFile(t, dir, "invalid", invalid)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))

	// Partial files are filled in from the defaults
	writeConfigFile(t, dir, "partial", map[string]any{"name": "Partial", "grid_size": 8})

	m, err := NewManager(dir)
	require.NoError(t, err)

	tests := []struct {
		name    string
		config  string
		wantErr error
	}{
		{"valid", "valid", nil},
		{"with extension", "valid.json", nil},
		{"partial", "partial", nil},
		{"missing", "missing", ErrConfigNotFound},
		{"invalid", "invalid", ErrInvalidConfig},
		{"broken json", "broken", ErrInvalidConfig},
		{"path traversal", "../valid", ErrConfigNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := m.LoadConfig(tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, config)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, config.Palette)
		})
	}

	partial, err := m.LoadConfig("partial")
	require.NoError(t, err)
	assert.Equal(t, 8, partial.GridSize)
	assert.Equal(t, 3, partial.QueueSize)
	assert.Equal(t, engine.ModeClassic, partial.Mode)
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "zeta", createValidConfig())

	challenge := createValidConfig()
	challenge.Name = "Daily"
	challenge.Mode = engine.ModeDailyChallenge
	writeConfigFile(t, dir, "alpha", challenge)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0755))

	m, err := NewManager(dir)
	require.NoError(t, err)

	configs, err := m.ListConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, "alpha", configs[0].ConfigID)
	assert.Equal(t, "alpha.json", configs[0].Filename)
	assert.Equal(t, engine.ModeDailyChallenge, configs[0].Mode)
	assert.Equal(t, "zeta", configs[1].ConfigID)
	assert.Equal(t, 6, configs[1].GridSize)
	assert.Equal(t, 3, configs[1].QueueSize)
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	other := createValidConfig()
	other.Name = "Other"
	writeConfigFile(t, dir, "other", other)

	m, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, m.SetDefault("other"))
	assert.Equal(t, "Other", m.GetDefault().Name)
	assert.ErrorIs(t, m.SetDefault("missing"), ErrConfigNotFound)
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	config := createValidConfig()
	config.Name = "Saved"
	require.NoError(t, m.SaveConfig("saved", config))
	assert.FileExists(t, filepath.Join(dir, "saved.json"))

	loaded, err := m.LoadConfig("saved")
	require.NoError(t, err)
	assert.Same(t, config, loaded, "saved configs are cached")

	// A fresh manager reads the same content back from disk
	fresh, err := NewManager(dir)
	require.NoError(t, err)
	reread, err := fresh.LoadConfig("saved")
	require.NoError(t, err)
	assert.Equal(t, config.Name, reread.Name)
	assert.Equal(t, config.Layout, reread.Layout)

	bad := createValidConfig()
	bad.QueueSize = 0
	assert.ErrorIs(t, m.SaveConfig("bad", bad), ErrInvalidConfig)
	assert.NoFileExists(t, filepath.Join(dir, "bad.json"))

	assert.ErrorIs(t, m.SaveConfig("../escape", createValidConfig()), ErrInvalidConfig)
}

func TestManager_ReloadConfig(t *testing.T) {
	dir := t.TempDir()
	config := createValidConfig()
	config.Description = "before"
	writeConfigFile(t, dir, "changeable", config)

	m, err := NewManager(dir)
	require.NoError(t, err)

	first, err := m.LoadConfig("changeable")
	require.NoError(t, err)
	assert.Equal(t, "before", first.Description)

	config.Description = "after"
	writeConfigFile(t, dir, "changeable", config)

	cached, err := m.LoadConfig("changeable")
	require.NoError(t, err)
	assert.Equal(t, "before", cached.Description, "cache serves the old copy")

	require.NoError(t, m.ReloadConfig("changeable"))
	reloaded, err := m.LoadConfig("changeable")
	require.NoError(t, err)
	assert.Equal(t, "after", reloaded.Description)

	assert.ErrorIs(t, m.ReloadConfig("missing"), ErrConfigNotFound)
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())
	writeConfigFile(t, dir, "extra", createValidConfig())

	m, err := NewManager(dir)
	require.NoError(t, err)
	_, err = m.LoadConfig("extra")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.RefreshCache())
	assert.Equal(t, 1, m.Count(), "only the default is reloaded")
	assert.NotNil(t, m.GetDefault())
}

func TestManager_ValidateConfig(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, m.ValidateConfig(createValidConfig()))

	full := createValidConfig()
	full.Layout[0] = "RRRRRR"
	assert.ErrorIs(t, m.ValidateConfig(full), ErrInvalidConfig, "classic layouts cannot start with a full row")
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeConfigFile(t, dir, fmt.Sprintf("config%d", i), createValidConfig())
	}

	m, err := NewManager(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_, err := m.LoadConfig(fmt.Sprintf("config%d", (g+i)%5))
				assert.NoError(t, err)
				_ = m.GetDefault()
			}
		}(g)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, m.Count(), 5)
}
