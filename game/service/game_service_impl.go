package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/blockgrid/game/engine"
	"github.com/wricardo/blockgrid/logging"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
	now      func() time.Time
	log      log15.Logger
}

// Option customizes a game service
type Option func(*gameServiceImpl)

// WithClock replaces time.Now, mostly for tests that need fixed animation times
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) { s.now = now }
}

// WithLogger replaces the default component logger
func WithLogger(l log15.Logger) Option {
	return func(s *gameServiceImpl) { s.log = l }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		now:      time.Now,
		log:      logging.New("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

// loadConfig resolves a config by ID, or the default when configName is empty.
// Not-found errors list the available config IDs.
func (s *gameServiceImpl) loadConfig(configName string) (*engine.GameConfig, string, error) {
	if configName == "" {
		config := s.configs.GetDefault()
		return config, s.getConfigID(config.Name), nil
	}

	config, err := s.configs.LoadConfig(configName)
	if err == nil {
		return config, configName, nil
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return nil, "", fmt.Errorf("failed to load config %s: %w", configName, err)
	}

	availableConfigs, listErr := s.configs.ListConfigs()
	if listErr == nil && len(availableConfigs) > 0 {
		var configIDs []string
		for _, cfg := range availableConfigs {
			configIDs = append(configIDs, cfg.ConfigID)
		}
		return nil, "", fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
	}
	return nil, "", fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
}

// seeded returns a copy of config carrying the seed the session will use.
// Explicit seeds win; challenges default to the day's seed and classic games
// to the clock.
func (s *gameServiceImpl) seeded(config *engine.GameConfig, seed int64) *engine.GameConfig {
	cfg := *config
	switch {
	case seed != 0:
		cfg.Seed = seed
	case cfg.Seed != 0:
	case cfg.Mode == engine.ModeDailyChallenge:
		cfg.Seed = engine.DailySeed(s.now())
	default:
		cfg.Seed = s.now().UnixNano()
	}
	return &cfg
}

// getSession looks up a session and marks it accessed. Callers hold s.mu.
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		s.log.Debug("failed to update last access", "session", sessionID, "err", err)
	}
	return sess, nil
}

// save persists a session after a mutation. Failures are logged, not returned.
func (s *gameServiceImpl) save(sessionID, op string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.log.Warn("failed to persist session", "session", sessionID, "op", op, "err", err)
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, configID, err := s.loadConfig(configName)
	if err != nil {
		return nil, err
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", configID, s.seeded(config, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.log.Info("session created", "session", sess.ID, "config", configID, "mode", sess.Config.Mode, "seed", sess.Config.Seed)

	return s.sessionInfo(sess), nil
}

// DailyChallenge starts a challenge session seeded for the given day
func (s *gameServiceImpl) DailyChallenge(ctx context.Context, configName string, day time.Time) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, configID, err := s.loadConfig(configName)
	if err != nil {
		return nil, err
	}
	if config.Mode != engine.ModeDailyChallenge {
		return nil, fmt.Errorf("%w: %s", ErrNotChallenge, configID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed := engine.DailySeed(day)
	sess, err := s.sessions.Create("", configID, s.seeded(config, seed))
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge session: %w", err)
	}
	s.log.Info("daily challenge started", "session", sess.ID, "config", configID, "seed", seed,
		"pieces", len(sess.Engine.GetState().Queue)+len(sess.Engine.GetState().Pending))

	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.log.Info("session deleted", "session", sessionID)
	return nil
}

// Place runs one placement transaction for a queued shape
func (s *gameServiceImpl) Place(ctx context.Context, sessionID string, queueIndex int, target *engine.Position) (*PlaceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	placement, err := sess.Engine.Place(queueIndex, target, now)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	result := &PlaceResult{
		Success:   placement.Placed,
		Placement: placement,
		GameState: state,
		Events:    placementEvents(placement, now),
		Message:   placement.Message,
	}

	if placement.Placed {
		s.log.Info("shape placed", "session", sessionID, "queue_index", queueIndex, "target", target,
			"points", placement.Points, "lines", len(placement.Rows)+len(placement.Columns),
			"combo", placement.Combo.Category, "score", state.Score)
	} else {
		s.log.Debug("placement rejected", "session", sessionID, "queue_index", queueIndex,
			"target", target, "invalid_cells", len(placement.InvalidCells))
	}

	s.save(sessionID, "place")
	return result, nil
}

// Rotate turns a queued shape whose rotation has been unlocked
func (s *gameServiceImpl) Rotate(ctx context.Context, sessionID string, queueIndex int) (*RotationResult, error) {
	return s.rotation(sessionID, queueIndex, "rotate", (*engine.GameEngine).Rotate)
}

// UnlockRotation spends points to allow rotating a queued shape
func (s *gameServiceImpl) UnlockRotation(ctx context.Context, sessionID string, queueIndex int) (*RotationResult, error) {
	return s.rotation(sessionID, queueIndex, "unlock_rotation", (*engine.GameEngine).UnlockRotation)
}

func (s *gameServiceImpl) rotation(sessionID string, queueIndex int, op string, fn func(*engine.GameEngine, int) (bool, error)) (*RotationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	ok, err := fn(sess.Engine, queueIndex)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	result := &RotationResult{
		Success:    ok,
		QueueIndex: queueIndex,
		Shape:      state.Queue[queueIndex],
		GameState:  state,
		Message:    state.Message,
	}
	s.log.Debug(op, "session", sessionID, "queue_index", queueIndex, "ok", ok, "score", state.Score)

	if ok {
		s.save(sessionID, op)
	}
	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := sess.Engine.Reset()
	if err != nil {
		return nil, fmt.Errorf("failed to reset session %s: %w", sessionID, err)
	}
	s.log.Info("session reset", "session", sessionID)

	s.save(sessionID, "reset")
	return state, nil
}

// CleanupAnimations drops finished tile animations
func (s *gameServiceImpl) CleanupAnimations(ctx context.Context, sessionID string) (*CleanupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	changed := sess.Engine.CleanupAnimations(s.now())
	state := sess.Engine.GetState()
	if changed {
		s.save(sessionID, "cleanup")
	}
	return &CleanupResult{
		Changed:          changed,
		ActiveAnimations: engine.ActiveAnimationCount(state.Grid),
		GameState:        state,
	}, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetStats summarizes scoring and combo statistics for a session
func (s *gameServiceImpl) GetStats(ctx context.Context, sessionID string) (*StatsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	invalid := 0
	for _, rec := range state.PlacementHistory {
		if !rec.Placed {
			invalid++
		}
	}
	return &StatsResponse{
		SessionID:         sess.ID,
		Score:             state.Score,
		Stats:             state.Stats,
		TotalAttempts:     state.TotalPlacements,
		InvalidAttempts:   invalid,
		FilledTiles:       state.Grid.FilledCount(),
		ActiveAnimations:  engine.ActiveAnimationCount(state.Grid),
		GameOver:          state.GameOver,
		ChallengeComplete: state.ChallengeComplete,
	}, nil
}

// GetPlacementHistory returns paginated placement history
func (s *gameServiceImpl) GetPlacementHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return paginate(sess.Engine.GetPlacementHistory(), opts), nil
}

func paginate(history []engine.PlacementRecord, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	placements := []engine.PlacementRecord{}
	if start < total {
		if opts.Order == "desc" {
			// Most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				placements = append(placements, history[i])
			}
		} else {
			placements = append(placements, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Placements:      placements,
		TotalPlacements: total,
		Page:            opts.Page,
		PageSize:        opts.Limit,
		TotalPages:      totalPages,
		HasNext:         opts.Page < totalPages,
		HasPrevious:     opts.Page > 1,
	}
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// SolveChallenge decomposes a challenge target into a shape sequence. The
// solver itself cannot be interrupted; a cancelled ctx abandons the wait.
func (s *gameServiceImpl) SolveChallenge(ctx context.Context, req SolveRequest) (*SolveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.solveTarget(req)
	if err != nil {
		return nil, err
	}
	seed := req.Seed
	if seed == 0 {
		seed = engine.DailySeed(s.now())
	}

	type outcome struct {
		result *SolveResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		solver := engine.NewSolver(nil)
		start := time.Now()
		pieces, err := solver.Solve(target, seed)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		done <- outcome{result: &SolveResult{
			Seed:     seed,
			GridSize: target.Size(),
			Pieces:   pieces,
			Stats:    solver.Stats(),
			Duration: time.Since(start),
		}}
	}()

	select {
	case <-ctx.Done():
		s.log.Warn("challenge solve abandoned", "seed", seed, "err", ctx.Err())
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		s.log.Info("challenge solved", "seed", seed, "pieces", len(out.result.Pieces),
			"nodes", out.result.Stats.Nodes, "duration", out.result.Duration)
		return out.result, nil
	}
}

func (s *gameServiceImpl) solveTarget(req SolveRequest) (*engine.Grid, error) {
	if req.ConfigID != "" {
		config, configID, err := s.loadConfig(req.ConfigID)
		if err != nil {
			return nil, err
		}
		if config.Mode != engine.ModeDailyChallenge {
			return nil, fmt.Errorf("%w: %s", ErrNotChallenge, configID)
		}
		return config.LayoutGrid(), nil
	}

	config := engine.DefaultGameConfig()
	config.Name = "adhoc"
	config.Mode = engine.ModeDailyChallenge
	config.GridSize = len(req.Layout)
	config.Layout = req.Layout
	config.Legend = req.Legend
	if err := engine.ValidateGameConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return config.LayoutGrid(), nil
}

// placementEvents summarizes a placement result as a list of events
func placementEvents(p *engine.PlacementResult, now time.Time) []GameEvent {
	if !p.Placed {
		return []GameEvent{{
			Type:      EventInvalidPlacement,
			Message:   fmt.Sprintf("%d cells blocked or out of bounds", len(p.InvalidCells)),
			Timestamp: now,
			Position:  p.Target,
		}}
	}

	events := []GameEvent{{
		Type:      EventPlaced,
		Message:   fmt.Sprintf("Placed shape %d for %d points", p.QueueIndex, p.Points),
		Timestamp: now,
		Position:  p.Target,
	}}
	if n := len(p.Rows) + len(p.Columns); n > 0 {
		events = append(events, GameEvent{
			Type:      EventLinesCleared,
			Message:   fmt.Sprintf("Cleared %d rows and %d columns (%s)", len(p.Rows), len(p.Columns), p.Combo.Category),
			Timestamp: now,
		})
	}
	if p.FullBoardClear {
		events = append(events, GameEvent{Type: EventFullBoardClear, Message: "Board cleared", Timestamp: now})
	}
	switch {
	case p.ChallengeComplete:
		events = append(events, GameEvent{Type: EventChallengeComplete, Message: p.Message, Timestamp: now})
	case p.GameOver:
		events = append(events, GameEvent{Type: EventGameOver, Message: p.Message, Timestamp: now})
	}
	return events
}
