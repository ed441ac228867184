package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/blockgrid/game/engine"
	"github.com/wricardo/blockgrid/game/service"
	"github.com/wricardo/blockgrid/logging"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	log        log15.Logger
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logging.New("mcp", "api", baseURL),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Block Grid",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Block Grid - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Drop shapes from your queue onto the grid. Filling a whole row or column clears it and scores points.
The game ends when no queued shape fits anywhere.

AVAILABLE TOOLS:
- create_session / get_session / list_sessions / delete_session
- game_state: Grid, queue and score
- place: Place a queued shape with its anchor on a target cell - requires intent explanation
- valid_targets: Every target where a queued shape fits
- rotate / unlock_rotation: Rotate a shape, unlocking rotation first costs points
- reset_game, cleanup_animations, stats, placement_history
- list_configs, solve_challenge, daily_challenge
- game_instructions: Rules and strategy

NOTE: The 'intent' parameter on place serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func queueIndexProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     0,
		"description": "Index of the shape in the queue (0-based)",
	}
}

func sessionTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}
}

func queueTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":  sessionProp(),
				"queue_index": queueIndexProp(),
			},
			Required: []string{"session_id", "queue_index"},
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List active game sessions, most recently used first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum sessions to return",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(sessionTool("get_session", "Get details of a specific session"), c.handleGetSession)
	c.mcpServer.AddTool(sessionTool("delete_session", "Delete a session"), c.handleDeleteSession)

	// Game operations
	c.mcpServer.AddTool(sessionTool("game_state", "Get the grid, shape queue and score"), c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place",
		Description: "Place a queued shape. The target is where the shape's anchor (its first filled cell, top row first) lands.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":  sessionProp(),
				"queue_index": queueIndexProp(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Target row (1-based)",
				},
				"column": map[string]interface{}{
					"type":        "integer",
					"description": "Target column (1-based)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this placement (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "queue_index", "row", "column"},
		},
	}, c.handlePlace)

	c.mcpServer.AddTool(queueTool("valid_targets", "List every target where a queued shape fits in its current orientation"), c.handleValidTargets)
	c.mcpServer.AddTool(queueTool("rotate", "Rotate a queued shape 90° clockwise (rotation must be unlocked)"), c.handleRotate)
	c.mcpServer.AddTool(queueTool("unlock_rotation", "Spend points to unlock rotation for a queued shape"), c.handleUnlockRotation)
	c.mcpServer.AddTool(sessionTool("reset_game", "Reset the game to its initial state"), c.handleReset)
	c.mcpServer.AddTool(sessionTool("cleanup_animations", "Drop finished clearing animations from the grid"), c.handleCleanup)
	c.mcpServer.AddTool(sessionTool("stats", "Score and combo statistics for a session"), c.handleStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "placement_history",
		Description: "View past placements, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (1-based)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Placements per page (max 100)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handlePlacementHistory)

	// Configuration and challenges
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_challenge",
		Description: "Decompose a daily challenge target into the shapes that rebuild it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Challenge config ID",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Solver seed (optional, defaults to today as yyyymmdd)",
				},
			},
			Required: []string{"config_id"},
		},
	}, c.handleSolveChallenge)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "daily_challenge",
		Description: "Start a session on a day's challenge",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Challenge config ID (defaults to daily)",
				},
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Day as YYYY-MM-DD (defaults to today)",
				},
			},
		},
	}, c.handleDailyChallenge)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get rules, scoring and strategy",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("api call failed", "method", method, "path", path, "err", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

func queueIndex(args map[string]interface{}) (int, error) {
	idx, ok := intArg(args, "queue_index")
	if !ok {
		return 0, fmt.Errorf("queue_index is required")
	}
	return idx, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\n%s", session.ID, formatSessionInfo(&session))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/sessions"
	if limit, ok := intArg(arguments(request), "limit"); ok && limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var response struct {
		Count    int                   `json:"count"`
		Total    int                   `json:"total"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d of %d):\n\n", response.Count, response.Total)
	for _, s := range response.Sessions {
		score, status := 0, "playing"
		if s.GameState != nil {
			score = s.GameState.Score
			status = stateStatus(s.GameState)
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, %s, Last used: %s)\n",
			s.ID, s.ConfigName, score, status, s.LastAccessedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string `json:"message"`
	}
	if err := c.apiCall(ctx, "DELETE", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handlePlace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/place")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idx, err := queueIndex(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, okRow := intArg(args, "row")
	col, okCol := intArg(args, "column")
	if !okRow || !okCol {
		return mcp.NewToolResultError("row and column are required"), nil
	}
	if intent, _ := args["intent"].(string); intent != "" {
		c.log.Debug("place intent", "session", args["session_id"], "intent", intent)
	}

	body := map[string]interface{}{
		"queue_index": idx,
		"target":      engine.Position{Row: row, Column: col},
	}
	var result service.PlaceResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPlaceResult(&result)), nil
}

func (c *Client) handleValidTargets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idx, err := queueIndex(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if idx < 0 || idx >= len(state.Queue) {
		return mcp.NewToolResultError(fmt.Sprintf("queue_index %d out of range (queue has %d shapes)", idx, len(state.Queue))), nil
	}

	targets := engine.ValidTargets(state.Queue[idx].Shape, state.Grid)
	if len(targets) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Shape %d fits nowhere in its current orientation.", idx)), nil
	}
	parts := make([]string, len(targets))
	for i, t := range targets {
		parts[i] = t.String()
	}
	return mcp.NewToolResultText(fmt.Sprintf("Shape %d fits at %d targets (row,column):\n%s",
		idx, len(targets), strings.Join(parts, " "))), nil
}

func (c *Client) handleRotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.rotation(ctx, request, "/rotate")
}

func (c *Client) handleUnlockRotation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.rotation(ctx, request, "/unlock-rotation")
}

func (c *Client) rotation(ctx context.Context, request mcp.CallToolRequest, suffix string) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idx, err := queueIndex(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.RotationResult
	if err := c.apiCall(ctx, "POST", path, map[string]int{"queue_index": idx}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status := "✓"
	if !result.Success {
		status = "✗"
	}
	text := fmt.Sprintf("%s %s\n\nShape %d:\n%s", status, result.Message, result.QueueIndex, formatShape(result.Shape.Shape))
	if result.GameState != nil {
		text += fmt.Sprintf("\nScore: %d", result.GameState.Score)
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleCleanup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/cleanup")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.CleanupResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !result.Changed {
		return mcp.NewToolResultText(fmt.Sprintf("Nothing to clean up (%d animations still running)", result.ActiveAnimations)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleaned up finished animations, %d still running", result.ActiveAnimations)), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/stats")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var stats service.StatsResponse
	if err := c.apiCall(ctx, "GET", path, nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStats(&stats)), nil
}

func (c *Client) handlePlacementHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "• %s (id: %s, mode: %s)\n  %s\n  Grid: %dx%d, Queue: %d\n\n",
			cfg.Name, cfg.ConfigID, cfg.Mode, cfg.Description, cfg.GridSize, cfg.GridSize, cfg.QueueSize)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleSolveChallenge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)
	if configID == "" {
		return mcp.NewToolResultError("config_id is required"), nil
	}
	req := service.SolveRequest{ConfigID: configID}
	if seed, ok := intArg(args, "seed"); ok {
		req.Seed = int64(seed)
	}

	var result service.SolveResult
	if err := c.apiCall(ctx, "POST", "/api/challenges/solve", req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSolveResult(&result)), nil
}

func (c *Client) handleDailyChallenge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	query := url.Values{}
	if configID, _ := args["config_id"].(string); configID != "" {
		query.Set("config", configID)
	}
	if date, _ := args["date"].(string); date != "" {
		query.Set("date", date)
	}
	path := "/api/challenges/daily"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Started daily challenge session: %s\n%s", session.ID, formatSessionInfo(&session))), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Block Grid - Complete Instructions

GAME OBJECTIVE:
Place shapes from the queue onto a square grid. Every full row or column is
cleared and scores points. The game is over when no queued shape fits anywhere,
even counting rotations you could still unlock.

GRID LEGEND:
- '.' is an empty tile
- Letters are filled tiles; the legend under the grid maps letters to colors
- Rows and columns are numbered from 1, top-left is (1,1)

PLACING SHAPES:
- Each shape has an anchor: its first filled cell scanning the top row first,
  left to right. It is marked '@' in the queue.
- place(queue_index, row, column) puts the anchor on (row, column). Every filled
  cell must land on an empty tile inside the grid.
- Use valid_targets to list every fitting target before guessing.
- An invalid placement changes nothing but is still recorded in the history.

SCORING:
- points = (rows² + columns² + 2·rows·columns) × multiplier
- Clearing rows and columns together is worth far more than clearing them apart:
  one row and one column at once score 4× the multiplier, two separate singles 2×.
- Emptying the whole board adds the full-board bonus.

ROTATION:
- Shapes arrive locked. unlock_rotation spends the configured cost from your
  score, then rotate turns the shape 90° clockwise as often as you like.

DAILY CHALLENGE:
- The queue is a fixed sequence of shapes that exactly rebuilds the target
  picture. The challenge is complete once every piece is placed.

STRATEGY:
- Keep a single row and column free of clutter so long pieces always fit.
- Prefer placements that complete several lines at once.
- Check every queued shape still has a home after each placement.

Good luck!`
	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func stateStatus(state *engine.GameState) string {
	switch {
	case state.ChallengeComplete:
		return "challenge complete"
	case state.GameOver:
		return "game over"
	default:
		return "playing"
	}
}

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

// colorLegend assigns each color a letter, preferring its initial
func colorLegend(colors []string) map[string]byte {
	sort.Strings(colors)
	legend := make(map[string]byte, len(colors))
	used := map[byte]bool{'.': true}
	for _, color := range colors {
		if _, ok := legend[color]; ok || color == "" {
			continue
		}
		letter := strings.ToUpper(color)[0]
		if used[letter] || letter < 'A' || letter > 'Z' {
			letter = '#'
			for ch := byte('A'); ch <= 'Z'; ch++ {
				if !used[ch] {
					letter = ch
					break
				}
			}
		}
		used[letter] = true
		legend[color] = letter
	}
	return legend
}

func formatGrid(grid *engine.Grid) string {
	if grid == nil {
		return ""
	}
	var colors []string
	for _, tile := range grid.Tiles() {
		if tile.Block.Filled {
			colors = append(colors, tile.Block.Color)
		}
	}
	legend := colorLegend(colors)

	var b strings.Builder
	n := grid.Size()
	b.WriteString("    ")
	for c := 1; c <= n; c++ {
		fmt.Fprintf(&b, "%d", c%10)
	}
	b.WriteString("\n")
	for r := 1; r <= n; r++ {
		fmt.Fprintf(&b, "%3d ", r)
		for c := 1; c <= n; c++ {
			tile, _ := grid.Tile(engine.Position{Row: r, Column: c})
			if tile.Block.Filled {
				b.WriteByte(legend[tile.Block.Color])
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("\n")
	}

	if len(legend) > 0 {
		keys := make([]string, 0, len(legend))
		for color := range legend {
			keys = append(keys, color)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, color := range keys {
			parts[i] = fmt.Sprintf("%c=%s", legend[color], color)
		}
		b.WriteString("Legend: " + strings.Join(parts, " ") + "\n")
	}
	return b.String()
}

// formatShape draws a shape's bounding box, marking the anchor with '@'
func formatShape(shape engine.Shape) string {
	bounds, ok := shape.Bounds()
	if !ok {
		return "(empty)\n"
	}
	anchor, _ := shape.Anchor()
	var b strings.Builder
	for r := bounds.MinRow; r <= bounds.MaxRow; r++ {
		for c := bounds.MinCol; c <= bounds.MaxCol; c++ {
			switch {
			case r == anchor.Row && c == anchor.Col:
				b.WriteByte('@')
			case shape.Block(r, c).Filled:
				b.WriteByte('#')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d | Placements: %d | Mode: %s\n\n", state.Score, state.TotalPlacements, state.Mode)
	b.WriteString(formatGrid(state.Grid))

	b.WriteString("\nQueue:\n")
	for i, q := range state.Queue {
		lock := "rotation locked"
		if q.RotationUnlocked {
			lock = "rotation unlocked"
		}
		color := ""
		if cells := q.Shape.Cells(); len(cells) > 0 {
			color = q.Shape.Block(cells[0].Row, cells[0].Col).Color
		}
		fmt.Fprintf(&b, "[%d] %s %s, %s\n%s", i, q.TemplateID, color, lock, formatShape(q.Shape))
	}
	if len(state.Pending) > 0 {
		fmt.Fprintf(&b, "(%d more challenge pieces pending)\n", len(state.Pending))
	}

	switch {
	case state.ChallengeComplete:
		b.WriteString("\n🎉 CHALLENGE COMPLETE!")
	case state.GameOver:
		b.WriteString("\n💀 GAME OVER")
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}
	return b.String()
}

func formatPlaceResult(result *service.PlaceResult) string {
	var b strings.Builder
	p := result.Placement
	switch {
	case p == nil:
		b.WriteString(result.Message)
	case !p.Placed:
		fmt.Fprintf(&b, "✗ Placement rejected: %d cells blocked or outside the grid\n", len(p.InvalidCells))
	default:
		fmt.Fprintf(&b, "✓ Placed shape %d at %s for %d points\n", p.QueueIndex, p.Target, p.Points)
		if lines := len(p.Rows) + len(p.Columns); lines > 0 {
			fmt.Fprintf(&b, "Cleared %d rows and %d columns (%s)\n", len(p.Rows), len(p.Columns), p.Combo.Category)
		}
		if p.FullBoardClear {
			b.WriteString("Full board clear!\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatStats(stats *service.StatsResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\nScore: %d\nAttempts: %d (%d invalid)\nFilled tiles: %d\nRunning animations: %d\n",
		stats.SessionID, stats.Score, stats.TotalAttempts, stats.InvalidAttempts, stats.FilledTiles, stats.ActiveAnimations)
	fmt.Fprintf(&b, "Lines cleared: %d rows, %d columns\nFull board clears: %d\n",
		stats.Stats.RowsCleared, stats.Stats.ColumnsCleared, stats.Stats.FullBoardClears)

	if len(stats.Stats.Categories) > 0 {
		keys := make([]string, 0, len(stats.Stats.Categories))
		for k := range stats.Stats.Categories {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		b.WriteString("Combos:\n")
		for _, k := range keys {
			cat := engine.ComboCategory(k)
			fmt.Fprintf(&b, "  %s: %d", k, stats.Stats.Categories[cat])
			if same := stats.Stats.SameColor[cat]; same > 0 {
				fmt.Fprintf(&b, " (%d same color)", same)
			}
			b.WriteString("\n")
		}
	}
	if stats.Stats.BestCombo != "" {
		fmt.Fprintf(&b, "Best placement: %d points (%s)\n", stats.Stats.BestPlacementPoints, stats.Stats.BestCombo)
	}
	if stats.GameOver {
		b.WriteString("Game over\n")
	}
	if stats.ChallengeComplete {
		b.WriteString("Challenge complete\n")
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Placement History (Page %d/%d), Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalPlacements)

	for _, rec := range history.Placements {
		status := "✓"
		if !rec.Placed {
			status = "✗"
		}
		target := "-"
		if rec.Target != nil {
			target = rec.Target.String()
		}
		fmt.Fprintf(&b, "%d. %s shape %d (%s) at %s +%d [Score: %d]\n",
			rec.PlacementNumber, status, rec.QueueIndex, rec.TemplateID, target, rec.Points, rec.ScoreAfter)
	}
	return b.String()
}

func formatSolveResult(result *service.SolveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Decomposition for seed %d: %d pieces on a %dx%d grid (%d nodes)\n\n",
		result.Seed, len(result.Pieces), result.GridSize, result.GridSize, result.Stats.Nodes)
	for i, piece := range result.Pieces {
		fmt.Fprintf(&b, "%d. %s, place anchor at %s\n%s", i+1, piece.TemplateID, piece.AnchorTarget(), formatShape(piece.Shape))
	}
	return b.String()
}
