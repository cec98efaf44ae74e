// Package filestore persists the current payload as a JSON document on disk.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

const lockRetryDelay = 50 * time.Millisecond

// Store writes payloads atomically: the document is written to a temporary
// file in the same directory and renamed over the target while an advisory
// file lock is held. Readers never observe a partial payload.
type Store struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// New creates a Store writing to path. The lock file is path + ".lock".
func New(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}
}

// Name identifies the publisher in logs and metrics.
func (s *Store) Name() string { return "file" }

// Path returns the payload location.
func (s *Store) Path() string { return s.path }

// Publish replaces the stored payload with p.
func (s *Store) Publish(ctx context.Context, p *domain.Payload) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create payload dir: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock payload file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock payload file: %s is held by another process", s.lock.Path())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("unlock payload file", "path", s.lock.Path(), "error", err)
		}
	}()

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp payload: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp payload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp payload: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace payload: %w", err)
	}

	s.logger.Debug("payload written", "path", s.path, "items", len(p.Items), "bytes", len(data))
	return nil
}

// Load reads a payload document from path.
func Load(path string) (*domain.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var p domain.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &p, nil
}
