// Command blockgrid starts the Block Grid game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config directory, session storage backend, logging,
// version output, and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/blockgrid/api"
	"github.com/wricardo/blockgrid/game/config"
	"github.com/wricardo/blockgrid/game/service"
	"github.com/wricardo/blockgrid/game/session"
	"github.com/wricardo/blockgrid/logging"
	"github.com/wricardo/blockgrid/transport/mcp"
	"github.com/wricardo/blockgrid/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Block Grid Server"
)

// Session storage backends
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", envDefault("CONFIG_DIR", "configs"), "Directory containing game configurations")
	store        = flag.String("store", envDefault("SESSION_STORE", StoreFile), "Session storage: file, sqlite, postgres or memory")
	sessionsDir  = flag.String("sessions-dir", envDefault("SESSIONS_DIR", "sessions"), "Directory for file session storage")
	sqlitePath   = flag.String("sqlite-path", envDefault("SQLITE_PATH", "sessions.db"), "SQLite database for sqlite session storage")
	databaseURL  = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string for postgres session storage")
	sessionTTL   = flag.Duration("session-ttl", 24*time.Hour, "Drop sessions from memory after this long without access")
	logLevel     = flag.String("log-level", envDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error, crit")
	logFormat    = flag.String("log-format", envDefault("LOG_FORMAT", logging.FormatLogfmt), "Log format: logfmt, json or terminal")
	debug        = flag.Bool("debug", false, "Enable debug logging (same as -log-level debug)")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

var log = logging.New("main")

// envDefault returns the environment variable key, or fallback when unset
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                              # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090                   # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -store sqlite                # Keep sessions in sessions.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                    # Run MCP stdio server\n", os.Args[0])
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// serverModes maps the accepted mode arguments to the mode they select
var serverModes = map[string]string{
	"server":    "server",
	"http":      "server",
	"stdio-mcp": "stdio-mcp",
	"mcp-stdio": "stdio-mcp",
	"mcp":       "stdio-mcp",
}

// parseMode picks the run mode from the positional arguments
func parseMode(args []string) (string, error) {
	if len(args) == 0 {
		return "server", nil
	}
	mode, ok := serverModes[args[0]]
	if !ok {
		return "", fmt.Errorf("unknown mode %q, use 'server' (default) or 'stdio-mcp'", args[0])
	}
	return mode, nil
}

// run parses flags, initializes services, and starts the selected mode. It
// returns the process exit code once every service has been closed.
func run(args []string) int {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	if err := flag.CommandLine.Parse(args); err != nil {
		return 2
	}

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		return 0
	}

	level := *logLevel
	if *debug {
		level = "debug"
	}
	if err := logging.Setup(level, *logFormat); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging flags: %v\n", err)
		return 2
	}
	switch {
	case envErr == nil:
		log.Info("loaded environment variables from .env file")
	case !os.IsNotExist(envErr):
		log.Warn("error loading .env file", "err", envErr)
	}

	mode, err := parseMode(flag.Args())
	if err != nil {
		log.Crit("invalid arguments", "err", err)
		return 2
	}

	log.Info("starting", "app", AppName, "version", Version, "mode", mode, "store", *store)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gameService, closeServices, err := initializeServices(ctx)
	if err != nil {
		log.Crit("failed to initialize services", "err", err)
		return 1
	}
	defer closeServices()

	if mode == "stdio-mcp" {
		err = runStdioMCPWithInternalServer(gameService)
	} else {
		err = runHTTPServer(ctx, gameService)
	}
	if err != nil {
		log.Crit("server failed", "mode", mode, "err", err)
		return 1
	}
	return 0
}

// mcpHandler serves JSON-RPC MCP messages over plain HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API server at the root and the MCP proxy at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

// ngrokSettings resolves tunnel settings from flags, then the environment.
// enabled is false when neither asks for a tunnel.
func ngrokSettings() (enabled bool, authToken, domain string) {
	enabled = *ngrokEnabled
	if env := os.Getenv("NGROK_ENABLED"); env == "true" || env == "1" {
		enabled = true
	}

	authToken = *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
	}
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}

	domain = *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}
	return enabled, authToken, domain
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, gameService service.GameService) error {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	apiServer := api.NewServer(gameService, hub)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var serveErr error
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info("HTTP server listening", "addr", addr,
			"api", fmt.Sprintf("http://%s/api", addr),
			"websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr = fmt.Errorf("HTTP server: %w", err)
			stop()
		}
	}()

	if enabled, authToken, domain := ngrokSettings(); enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter, authToken, domain)
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}

	wg.Wait()
	log.Info("server stopped")
	return serveErr
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx ends
func runNgrokTunnel(ctx context.Context, handler http.Handler, authToken, domain string) {
	tlog := logging.New("ngrok")
	if authToken == "" {
		tlog.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		tlog.Info("using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(authToken),
	)
	if err != nil {
		tlog.Error("failed to start ngrok tunnel", "err", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			tlog.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	url := tun.URL()
	tlog.Info("ngrok tunnel established", "url", url,
		"api", url+"/api", "websocket", url+"/ws?session=<session_id>", "mcp", url+"/mcp")

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		tlog.Error("ngrok server error", "err", err)
	}
	tlog.Info("ngrok tunnel closed")
}

// openPersistence builds the session storage backend named by -store.
// The returned closer releases database handles; it is never nil.
func openPersistence(ctx context.Context, configManager service.ConfigManager) (session.SessionPersistence, func(), error) {
	noop := func() {}
	switch strings.ToLower(*store) {
	case StoreFile, "":
		p, err := session.NewFilePersistence(*sessionsDir, configManager)
		return p, noop, err
	case StoreSQLite:
		p, err := session.NewSQLitePersistence(ctx, *sqlitePath, configManager)
		if err != nil {
			return nil, noop, err
		}
		return p, func() { p.Close() }, nil
	case StorePostgres:
		if *databaseURL == "" {
			return nil, noop, fmt.Errorf("postgres store needs -database-url or DATABASE_URL")
		}
		p, err := session.NewPostgresPersistence(ctx, *databaseURL, configManager)
		if err != nil {
			return nil, noop, err
		}
		return p, func() { p.Close() }, nil
	case StoreMemory:
		return nil, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown session store %q", *store)
	}
}

// initializeServices wires session/config managers and the game service.
// It also starts background routines that prune stale sessions until ctx ends.
func initializeServices(ctx context.Context) (service.GameService, func(), error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, closePersistence, err := openPersistence(ctx, configManager)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	var sessionManager *session.Manager
	if persistence != nil {
		sessionManager = session.NewManagerWithPersistence(persistence)
		if err := sessionManager.LoadPersistedSessions(); err != nil {
			log.Warn("failed to load persisted sessions", "err", err)
		}
	} else {
		sessionManager = session.NewManager()
	}

	gameService := service.NewGameService(sessionManager, configManager)

	go sessionCleanupRoutine(ctx, sessionManager, time.Hour, *sessionTTL)
	if persistence != nil {
		go persistenceSyncRoutine(ctx, sessionManager, 5*time.Second)
	}

	closeAll := func() {
		if err := sessionManager.SaveAllSessions(); err != nil {
			log.Warn("failed to save sessions on shutdown", "err", err)
		}
		closePersistence()
	}
	return gameService, closeAll, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Info("cleaned up expired sessions", "removed", removed, "remaining", manager.Count())
			}
		}
	}
}

// persistenceSyncRoutine periodically drops in-memory sessions whose stored
// copy was deleted out from under the server.
func persistenceSyncRoutine(ctx context.Context, manager *session.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := manager.PruneOrphans(); pruned > 0 {
				log.Info("storage sync pruned orphaned sessions", "pruned", pruned)
			}
		}
	}
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:<port>; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(gameService service.GameService) error {
	externalURL := fmt.Sprintf("http://localhost:%d", *port)
	baseURL := externalURL

	testClient := &http.Client{Timeout: 2 * time.Second}
	healthy := false
	if resp, err := testClient.Get(externalURL + "/api/health"); err == nil {
		resp.Body.Close()
		healthy = resp.StatusCode == http.StatusOK
	}
	if healthy {
		log.Info("external API server found, using it for MCP", "url", externalURL)
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("getting an available port: %w", err)
		}

		internalAddr := listener.Addr().String()
		log.Info("no external API server found, starting internal HTTP server", "addr", internalAddr)

		hub := websocket.NewHub()
		go hub.Run()

		httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Error("internal HTTP server error", "err", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready", "api", baseURL)

	// stdout carries the protocol; logs must stay on stderr
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}
