package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/blockgrid/game/engine"
)

var (
	// ErrSessionNotFound is returned when a session ID does not resolve
	ErrSessionNotFound = errors.New("session not found")
	// ErrConfigNotFound is returned when a config name does not resolve
	ErrConfigNotFound = errors.New("configuration not found")
	// ErrNotChallenge is returned when a challenge operation targets a classic config
	ErrNotChallenge = errors.New("config is not a daily challenge")
	// ErrInvalidRequest is returned for malformed ad-hoc challenge targets
	ErrInvalidRequest = errors.New("invalid request")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Place(ctx context.Context, sessionID string, queueIndex int, target *engine.Position) (*PlaceResult, error)
	Rotate(ctx context.Context, sessionID string, queueIndex int) (*RotationResult, error)
	UnlockRotation(ctx context.Context, sessionID string, queueIndex int) (*RotationResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)
	CleanupAnimations(ctx context.Context, sessionID string) (*CleanupResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetStats(ctx context.Context, sessionID string) (*StatsResponse, error)
	GetPlacementHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error

	// Challenges
	SolveChallenge(ctx context.Context, req SolveRequest) (*SolveResult, error)
	DailyChallenge(ctx context.Context, configName string, day time.Time) (*SessionInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game session. ConfigID is the file-level
// identifier of Config, kept so persisted sessions can reload it.
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
