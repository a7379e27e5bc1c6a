// Package session persists roast sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotFound is returned by Get for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Record is one saved roast.
type Record struct {
	CreatedAt time.Time      `json:"created_at"`
	Input     map[string]any `json:"input"`
	ID        string         `json:"id"`
	Platform  string         `json:"platform"`
	Result    string         `json:"result"`
}

// Store saves and loads session records.
type Store interface {
	// Save stores r and returns its ID. An empty r.ID is assigned one.
	Save(ctx context.Context, r Record) (string, error)
	Get(ctx context.Context, id string) (*Record, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend. For the memory backend path is an
// optional snapshot directory; for sqlite it is the database file.
func Open(ctx context.Context, backend, path string, ttl time.Duration, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(ctx, ttl, logger, path)
	case BackendSQLite:
		if path == "" {
			return nil, errors.New("sqlite session backend needs a path")
		}
		return NewSQLiteStore(ctx, path, logger)
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}
