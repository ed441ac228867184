package session

import (
	"fmt"
	"time"

	"github.com/wricardo/blockgrid/game/engine"
	"github.com/wricardo/blockgrid/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the stored form of a session. The engine state is
// kept as a snapshot; the config is stored by ID and reloaded on restore.
type PersistedSessionData struct {
	ID             string          `json:"id"`
	ConfigName     string          `json:"config_name"`
	Seed           int64           `json:"seed"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	GameState      engine.Snapshot `json:"game_state"`
}

// persistedData builds the stored form of a session
func persistedData(session *service.Session, configs service.ConfigManager) (*PersistedSessionData, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}

	configID := session.ConfigID
	if configID == "" {
		var err error
		if configID, err = configIDFromName(configs, session.Config.Name); err != nil {
			return nil, fmt.Errorf("failed to get config ID: %w", err)
		}
	}

	return &PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configID,
		Seed:           session.Config.Seed,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState().Snapshot(),
	}, nil
}

// restoreSession rebuilds a live session from its stored form
func restoreSession(data *PersistedSessionData, configs service.ConfigManager) (*service.Session, error) {
	stored, err := configs.LoadConfig(data.ConfigName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
	}
	gameConfig := *stored
	gameConfig.Seed = data.Seed

	gameEngine, err := engine.NewEngine(&gameConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}

	state, err := engine.RestoreSnapshot(data.GameState)
	if err != nil {
		return nil, fmt.Errorf("failed to restore game state: %w", err)
	}
	if err := gameEngine.SetState(state); err != nil {
		return nil, fmt.Errorf("failed to set game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigName,
		Engine:         gameEngine,
		Config:         &gameConfig,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// configIDFromName returns the config ID (filename without extension) for a display name
func configIDFromName(configs service.ConfigManager, displayName string) (string, error) {
	list, err := configs.ListConfigs()
	if err != nil {
		return "", fmt.Errorf("failed to list configs: %w", err)
	}

	for _, config := range list {
		if config.Name == displayName {
			return config.ConfigID, nil
		}
	}

	// If not found, assume the displayName is already the config ID
	return displayName, nil
}
