package session

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter/v2"
)

const (
	maxSessions    = 100_000
	snapshotFile   = "sessions.gob"
	snapshotPeriod = 15 * time.Minute
)

func init() {
	// Record.Input holds interface values.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// MemoryStore keeps sessions in an expiring in-process cache, optionally
// snapshotting them to a directory so they survive restarts.
type MemoryStore struct {
	cache      *otter.Cache[string, Record]
	logger     *slog.Logger
	saveCancel context.CancelFunc
	dir        string
	saveWg     sync.WaitGroup
	ttl        time.Duration
	mu         sync.Mutex
}

// NewMemoryStore creates a memory store whose records expire ttl after being
// written. A non-empty dir enables loading and periodic saving of snapshots.
func NewMemoryStore(ctx context.Context, ttl time.Duration, logger *slog.Logger, dir string) (*MemoryStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &MemoryStore{
		cache: otter.Must(&otter.Options[string, Record]{
			MaximumSize:      maxSessions,
			InitialCapacity:  1_000,
			ExpiryCalculator: otter.ExpiryWriting[string, Record](ttl),
		}),
		logger: logger,
		dir:    dir,
		ttl:    ttl,
	}
	if dir == "" {
		return s, nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	if err := s.loadFromDisk(); err != nil {
		logger.Warn("failed to load session snapshot", "error", err)
	}
	logger.Info("session store initialized", "dir", dir, "entries_loaded", s.cache.EstimatedSize())
	s.startPeriodicSave(ctx)
	return s, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, r Record) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.cache.Set(r.ID, r)
	s.logger.Debug("session saved", "id", r.ID, "platform", r.Platform)
	return r.ID, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	r, ok := s.cache.GetIfPresent(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &r, nil
}

// Len returns the approximate number of live sessions.
func (s *MemoryStore) Len() int {
	return s.cache.EstimatedSize()
}

// Close stops periodic saving and writes a final snapshot.
func (s *MemoryStore) Close() error {
	if s.dir == "" {
		return nil
	}
	if s.saveCancel != nil {
		s.saveCancel()
	}
	s.saveWg.Wait()

	if err := s.saveToDisk(); err != nil {
		s.logger.Error("final session save failed", "error", err)
		return err
	}
	return nil
}

func (s *MemoryStore) loadFromDisk() error {
	path := filepath.Join(s.dir, snapshotFile)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Debug("failed to close snapshot", "error", err)
		}
	}()

	var records []Record
	if err := gob.NewDecoder(file).Decode(&records); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	cutoff := time.Now().Add(-s.ttl)
	loaded := 0
	for _, r := range records {
		if r.CreatedAt.After(cutoff) {
			s.cache.Set(r.ID, r)
			loaded++
		}
	}
	s.logger.Debug("loaded session snapshot", "path", path, "total", len(records), "loaded", loaded)
	return nil
}

func (s *MemoryStore) saveToDisk() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, snapshotFile)
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			s.logger.Debug("failed to remove temp snapshot", "error", err)
		}
	}()

	var records []Record
	for _, r := range s.cache.All() {
		records = append(records, r)
	}

	if err := gob.NewEncoder(file).Encode(records); err != nil {
		_ = file.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	s.logger.Debug("session snapshot saved", "entries", len(records), "path", path)
	return nil
}

func (s *MemoryStore) startPeriodicSave(ctx context.Context) {
	saveCtx, cancel := context.WithCancel(ctx)
	s.saveCancel = cancel

	s.saveWg.Add(1)
	go func() {
		defer s.saveWg.Done()

		ticker := time.NewTicker(snapshotPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-saveCtx.Done():
				return
			case <-ticker.C:
				if err := s.saveToDisk(); err != nil {
					s.logger.Error("periodic session save failed", "error", err)
				}
			}
		}
	}()
}
