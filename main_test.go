package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/blockgrid/api"
	"github.com/wricardo/blockgrid/game/config"
	"github.com/wricardo/blockgrid/game/session"
	"github.com/wricardo/blockgrid/transport/mcp"
)

// withFlags sets flag values for the duration of a test
func withFlags(t *testing.T, dir, backend string) {
	t.Helper()
	oldDir, oldStore, oldSessions, oldSQLite := *configDir, *store, *sessionsDir, *sqlitePath
	*configDir = dir
	*store = backend
	*sessionsDir = filepath.Join(t.TempDir(), "sessions")
	*sqlitePath = filepath.Join(t.TempDir(), "sessions.db")
	t.Cleanup(func() {
		*configDir, *store, *sessionsDir, *sqlitePath = oldDir, oldStore, oldSessions, oldSQLite
	})
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "Block Grid Server", AppName)
}

func TestFlagDefaults(t *testing.T) {
	assert.Greater(t, *port, 0)
	assert.LessOrEqual(t, *port, 65535)
	assert.NotEmpty(t, *host)
	assert.NotEmpty(t, *configDir)
	assert.Equal(t, 24*time.Hour, *sessionTTL)
}

func TestEnvDefault(t *testing.T) {
	t.Setenv("BLOCKGRID_TEST_VALUE", "")
	assert.Equal(t, "fallback", envDefault("BLOCKGRID_TEST_VALUE", "fallback"))
	t.Setenv("BLOCKGRID_TEST_VALUE", "set")
	assert.Equal(t, "set", envDefault("BLOCKGRID_TEST_VALUE", "fallback"))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, "server"},
		{[]string{"http"}, "server"},
		{[]string{"stdio-mcp"}, "stdio-mcp"},
		{[]string{"mcp"}, "stdio-mcp"},
	}
	for _, tt := range tests {
		mode, err := parseMode(tt.args)
		require.NoError(t, err)
		assert.Equal(t, tt.want, mode, "args %v", tt.args)
	}

	_, err := parseMode([]string{"desktop"})
	assert.ErrorContains(t, err, `unknown mode "desktop"`)
}

func TestRun_UnknownModeOpensNothing(t *testing.T) {
	withFlags(t, "configs", StoreSQLite)
	t.Cleanup(func() { flag.CommandLine.Parse(nil) })

	assert.Equal(t, 2, run([]string{"desktop"}))
	assert.NoFileExists(t, *sqlitePath, "services must not start before the mode is known")
}

func TestInitializeServices(t *testing.T) {
	for _, backend := range []string{StoreFile, StoreSQLite, StoreMemory} {
		t.Run(backend, func(t *testing.T) {
			withFlags(t, "configs", backend)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			gameService, closeAll, err := initializeServices(ctx)
			require.NoError(t, err)
			require.NotNil(t, gameService)
			defer closeAll()

			info, err := gameService.CreateSession(ctx, "mini")
			require.NoError(t, err)
			assert.Equal(t, 6, info.GameState.Grid.Size())
		})
	}
}

func TestInitializeServices_Errors(t *testing.T) {
	tests := []struct {
		name    string
		dir     string
		backend string
	}{
		{"missing config dir", "/non/existent/path", StoreFile},
		{"unknown store", "configs", "redis"},
		{"postgres without url", "configs", StorePostgres},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withFlags(t, tt.dir, tt.backend)
			oldURL := *databaseURL
			*databaseURL = ""
			defer func() { *databaseURL = oldURL }()

			_, _, err := initializeServices(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestSessionsSurviveRestart(t *testing.T) {
	withFlags(t, "configs", StoreSQLite)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, closeFirst, err := initializeServices(ctx)
	require.NoError(t, err)
	info, err := first.CreateSession(ctx, "mini")
	require.NoError(t, err)
	closeFirst()

	second, closeSecond, err := initializeServices(ctx)
	require.NoError(t, err)
	defer closeSecond()

	restored, err := second.GetSession(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, restored.ID)
}

func TestBackgroundRoutinesStop(t *testing.T) {
	configs, err := config.NewManager("configs")
	require.NoError(t, err)
	persistence, err := session.NewFilePersistence(t.TempDir(), configs)
	require.NoError(t, err)
	manager := session.NewManagerWithPersistence(persistence)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() { sessionCleanupRoutine(ctx, manager, time.Millisecond, time.Hour); done <- struct{}{} }()
	go func() { persistenceSyncRoutine(ctx, manager, time.Millisecond); done <- struct{}{} }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("background routine did not stop")
		}
	}
}

func TestNgrokSettings(t *testing.T) {
	t.Setenv("NGROK_ENABLED", "")
	t.Setenv("NGROK_AUTHTOKEN", "")
	t.Setenv("NGROK_AUTH_TOKEN", "legacy-token")
	t.Setenv("NGROK_DOMAIN", "grid.example.com")

	enabled, token, domain := ngrokSettings()
	assert.False(t, enabled)
	assert.Equal(t, "legacy-token", token)
	assert.Equal(t, "grid.example.com", domain)

	t.Setenv("NGROK_ENABLED", "1")
	t.Setenv("NGROK_AUTHTOKEN", "primary-token")
	enabled, token, _ = ngrokSettings()
	assert.True(t, enabled)
	assert.Equal(t, "primary-token", token)
}

func TestMCPEndpoint(t *testing.T) {
	withFlags(t, "configs", StoreMemory)
	gameService, closeAll, err := initializeServices(context.Background())
	require.NoError(t, err)
	defer closeAll()

	apiServer := httptest.NewServer(api.NewServer(gameService, nil))
	defer apiServer.Close()

	router := newRouter(api.NewServer(gameService, nil), mcp.NewClient(apiServer.URL))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	body, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "create_session")
	assert.Contains(t, rec.Body.String(), "solve_challenge")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
