package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/jackc/pgx/v5"

	"github.com/wricardo/blockgrid/game/service"
	"github.com/wricardo/blockgrid/logging"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	config_id        TEXT NOT NULL,
	score            INTEGER NOT NULL,
	game_over        BOOLEAN NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	last_accessed_at TIMESTAMPTZ NOT NULL,
	data             BYTEA NOT NULL
);`

// PostgresPersistence stores sessions as compressed snapshot blobs in PostgreSQL.
// IDs are stored lower-cased so lookups match the manager's case-insensitive keys.
type PostgresPersistence struct {
	conn          *pgx.Conn
	mu            sync.Mutex // pgx.Conn is not safe for concurrent use
	configManager service.ConfigManager
	timeout       time.Duration
	log           log15.Logger
}

// NewPostgresPersistence connects to connStr and applies the schema.
// The caller is responsible for calling Close.
func NewPostgresPersistence(ctx context.Context, connStr string, configManager service.ConfigManager) (*PostgresPersistence, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	var username, database string
	if err := conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("unable to query database: %w", err)
	}

	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	p := &PostgresPersistence{
		conn:          conn,
		configManager: configManager,
		timeout:       5 * time.Second,
		log:           logging.New("session.postgres"),
	}
	p.log.Info("connected", "database", database, "user", username)
	return p, nil
}

// Close closes the connection
func (p *PostgresPersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.conn.Close(ctx)
}

func (p *PostgresPersistence) lock() (context.Context, func()) {
	p.mu.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	return ctx, func() {
		cancel()
		p.mu.Unlock()
	}
}

// Save upserts a session row
func (p *PostgresPersistence) Save(session *service.Session) error {
	data, err := persistedData(session, p.configManager)
	if err != nil {
		return err
	}
	blob, err := encodeBlob(data)
	if err != nil {
		return err
	}

	ctx, done := p.lock()
	defer done()

	q := `
	INSERT INTO sessions (id, config_id, score, game_over, created_at, last_accessed_at, data)
	VALUES (lower($1), $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET config_id = $2, score = $3, game_over = $4, last_accessed_at = $6, data = $7;
	`
	_, err = p.conn.Exec(ctx, q, data.ID, data.ConfigName, data.GameState.Score, data.GameState.GameOver,
		data.CreatedAt, data.LastAccessedAt, blob)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads and restores a session
func (p *PostgresPersistence) Load(id string) (*service.Session, error) {
	ctx, done := p.lock()
	var blob []byte
	err := p.conn.QueryRow(ctx, `SELECT data FROM sessions WHERE id = lower($1)`, id).Scan(&blob)
	done()

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	data, err := decodeBlob(blob)
	if err != nil {
		return nil, err
	}
	return restoreSession(data, p.configManager)
}

// Delete removes a session row
func (p *PostgresPersistence) Delete(id string) error {
	ctx, done := p.lock()
	defer done()

	tag, err := p.conn.Exec(ctx, `DELETE FROM sessions WHERE id = lower($1)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns every stored session ID, oldest first
func (p *PostgresPersistence) ListAll() ([]string, error) {
	ctx, done := p.lock()
	defer done()

	rows, err := p.conn.Query(ctx, "SELECT id FROM sessions ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists reports whether a session row exists
func (p *PostgresPersistence) Exists(id string) bool {
	ctx, done := p.lock()
	defer done()

	var one int
	err := p.conn.QueryRow(ctx, `SELECT 1 FROM sessions WHERE id = lower($1)`, id).Scan(&one)
	return err == nil
}
