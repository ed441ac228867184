package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/blockgrid/game/config"
	"github.com/wricardo/blockgrid/game/engine"
	"github.com/wricardo/blockgrid/game/service"
	"github.com/wricardo/blockgrid/game/session"
	"github.com/wricardo/blockgrid/logging"
	"github.com/wricardo/blockgrid/transport/websocket"
)

const dateLayout = "2006-01-02"

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	log     log15.Logger
	now     func() time.Time
}

// NewServer creates a new API server. hub may be nil when no live clients
// are served.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logging.New("api"),
		now:     time.Now,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/place", s.handlePlace).Methods("POST")
	api.HandleFunc("/sessions/{id}/rotate", s.handleRotate).Methods("POST")
	api.HandleFunc("/sessions/{id}/unlock-rotation", s.handleUnlockRotation).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/cleanup", s.handleCleanup).Methods("POST")
	api.HandleFunc("/sessions/{id}/stats", s.handleGetStats).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// Challenges
	api.HandleFunc("/challenges/solve", s.handleSolveChallenge).Methods("POST")
	api.HandleFunc("/challenges/daily", s.handleGetDaily).Methods("GET")
	api.HandleFunc("/challenges/daily", s.handleStartDaily).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// statusFor maps service and engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidQueueIndex),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrGameOver), errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotChallenge), errors.Is(err, engine.ErrNoDecomposition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	respondError(w, status, err.Error())
}

// decode reads an optional JSON body; an empty body leaves v untouched
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) broadcastState(sessionID string, state *engine.GameState) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	info, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default) or "score"
	order := query.Get("order") // "asc", "desc" (default)
	configName := query.Get("config")

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	if configName != "" {
		filtered := make([]*service.SessionInfo, 0, len(sessions))
		for _, info := range sessions {
			if strings.EqualFold(info.ConfigName, configName) {
				filtered = append(filtered, info)
			}
		}
		sessions = filtered
	}
	total := len(sessions)

	less := func(a, b *service.SessionInfo) bool {
		switch sortBy {
		case "created":
			return a.CreatedAt.Before(b.CreatedAt)
		case "score":
			return score(a) < score(b)
		default:
			return a.LastAccessedAt.Before(b.LastAccessedAt)
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if order == "asc" {
			return less(sessions[i], sessions[j])
		}
		return less(sessions[j], sessions[i])
	})

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func score(info *service.SessionInfo) int {
	if info.GameState == nil {
		return 0
	}
	return info.GameState.Score
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// PlaceRequest is the body of POST /api/sessions/{id}/place
type PlaceRequest struct {
	QueueIndex int              `json:"queue_index"`
	Target     *engine.Position `json:"target"`
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Place(r.Context(), sessionID, req.QueueIndex, req.Target)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.broadcastState(sessionID, result.GameState)
	if s.hub != nil && result.Placement != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventPlacement, result.Placement)
	}

	target := "none"
	if req.Target != nil {
		target = req.Target.String()
	}
	log := s.log.New("session", sessionID, "queue_index", req.QueueIndex, "target", target)
	if result.Success {
		p := result.Placement
		log.Info("placement", "placed", true, "points", p.Points,
			"lines", len(p.Rows)+len(p.Columns), "combo", p.Combo.Category,
			"score", result.GameState.Score, "game_over", p.GameOver)
	} else {
		log.Info("placement", "placed", false, "invalid_cells", len(result.Placement.InvalidCells))
	}

	respondJSON(w, http.StatusOK, result)
}

// queueRequest is the body of rotate and unlock requests
type queueRequest struct {
	QueueIndex int `json:"queue_index"`
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	s.handleRotation(w, r, s.service.Rotate)
}

func (s *Server) handleUnlockRotation(w http.ResponseWriter, r *http.Request) {
	s.handleRotation(w, r, s.service.UnlockRotation)
}

func (s *Server) handleRotation(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, sessionID string, queueIndex int) (*service.RotationResult, error)) {
	sessionID := mux.Vars(r)["id"]

	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := fn(r.Context(), sessionID, req.QueueIndex)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if result.Success {
		s.broadcastState(sessionID, result.GameState)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.broadcastState(sessionID, state)
	s.log.Info("session reset", "session", sessionID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.CleanupAnimations(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if result.Changed && s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventCleanup, map[string]int{
			"active_animations": result.ActiveAnimations,
		})
		s.hub.BroadcastToSession(sessionID, result.GameState)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetStats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetPlacementHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	cfg, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
		engine.GameConfig
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.Name
	}
	if configID == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	gameConfig := req.GameConfig
	if err := s.service.SaveConfig(r.Context(), configID, &gameConfig); err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("config saved", "config", configID, "mode", gameConfig.Mode)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// Challenge Handlers

func (s *Server) handleSolveChallenge(w http.ResponseWriter, r *http.Request) {
	var req service.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ConfigID == "" && len(req.Layout) == 0 {
		respondError(w, http.StatusBadRequest, "config_id or layout is required")
		return
	}

	result, err := s.service.SolveChallenge(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// dailyParams reads ?config= and ?date=YYYY-MM-DD, defaulting to the
// "daily" config and today
func (s *Server) dailyParams(r *http.Request) (string, time.Time, error) {
	query := r.URL.Query()
	configName := query.Get("config")
	if configName == "" {
		configName = "daily"
	}
	day := s.now()
	if dateStr := query.Get("date"); dateStr != "" {
		parsed, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("date must be %s: %w", dateLayout, err)
		}
		day = parsed
	}
	return configName, day, nil
}

// handleGetDaily returns the day's decomposition of a challenge config
func (s *Server) handleGetDaily(w http.ResponseWriter, r *http.Request) {
	configName, day, err := s.dailyParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.SolveChallenge(r.Context(), service.SolveRequest{
		ConfigID: configName,
		Seed:     engine.DailySeed(day),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_id": configName,
		"date":      day.Format(dateLayout),
		"solution":  result,
	})
}

// handleStartDaily starts a session playing the day's challenge
func (s *Server) handleStartDaily(w http.ResponseWriter, r *http.Request) {
	configName, day, err := s.dailyParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.DailyChallenge(r.Context(), configName, day)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("daily challenge started", "session", info.ID, "config", configName, "date", day.Format(dateLayout))

	respondJSON(w, http.StatusCreated, info)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live updates disabled", http.StatusNotFound)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
