package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore keeps sessions in a SQLite database. Records do not expire.
type SQLiteStore struct {
	conn   *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	s := &SQLiteStore{conn: conn, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			platform   TEXT NOT NULL,
			input      TEXT NOT NULL DEFAULT '{}',
			result     TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, r Record) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	input, err := json.Marshal(r.Input)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding input: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, platform, input, result, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Platform, string(input), r.Result, r.CreatedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: inserting session %s: %w", r.ID, err)
	}
	s.logger.Debug("session saved", "id", r.ID, "platform", r.Platform)
	return r.ID, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	var (
		r     Record
		input string
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, platform, input, result, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&r.ID, &r.Platform, &input, &r.Result, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading session %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(input), &r.Input); err != nil {
		return nil, fmt.Errorf("sqlite: decoding input of session %s: %w", id, err)
	}
	return &r, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
