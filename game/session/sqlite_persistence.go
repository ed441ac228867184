package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wricardo/blockgrid/game/service"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY COLLATE NOCASE,
	config_id        TEXT NOT NULL,
	score            INTEGER NOT NULL,
	game_over        INTEGER NOT NULL,
	created_at       INTEGER NOT NULL,
	last_accessed_at INTEGER NOT NULL,
	data             BLOB NOT NULL
);`

// SQLitePersistence stores sessions as compressed snapshot blobs in SQLite
type SQLitePersistence struct {
	db            *sql.DB
	configManager service.ConfigManager
	timeout       time.Duration
}

// NewSQLitePersistence opens (or creates) the database at path and applies the schema
func NewSQLitePersistence(ctx context.Context, path string, configManager service.ConfigManager) (*SQLitePersistence, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLitePersistence{
		db:            db,
		configManager: configManager,
		timeout:       5 * time.Second,
	}, nil
}

// Close closes the database
func (p *SQLitePersistence) Close() error {
	return p.db.Close()
}

func (p *SQLitePersistence) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), p.timeout)
}

// Save upserts a session row
func (p *SQLitePersistence) Save(session *service.Session) error {
	data, err := persistedData(session, p.configManager)
	if err != nil {
		return err
	}
	blob, err := encodeBlob(data)
	if err != nil {
		return err
	}

	ctx, cancel := p.ctx()
	defer cancel()

	q := `
	INSERT OR REPLACE INTO sessions (id, config_id, score, game_over, created_at, last_accessed_at, data)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`
	_, err = p.db.ExecContext(ctx, q, data.ID, data.ConfigName, data.GameState.Score, data.GameState.GameOver,
		data.CreatedAt.UnixMilli(), data.LastAccessedAt.UnixMilli(), blob)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads and restores a session
func (p *SQLitePersistence) Load(id string) (*service.Session, error) {
	ctx, cancel := p.ctx()
	defer cancel()

	var blob []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?;`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
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
func (p *SQLitePersistence) Delete(id string) error {
	ctx, cancel := p.ctx()
	defer cancel()

	res, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns every stored session ID, oldest first
func (p *SQLitePersistence) ListAll() ([]string, error) {
	ctx, cancel := p.ctx()
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY created_at;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
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
func (p *SQLitePersistence) Exists(id string) bool {
	ctx, cancel := p.ctx()
	defer cancel()

	var one int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?;`, id).Scan(&one)
	return err == nil
}
