package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"placematch/internal/logging"
)

// Snapshot is the persisted document.
type Snapshot[T any] struct {
	Version  int       `json:"version"`
	SavedAt  time.Time `json:"savedAt"`
	Entities []T       `json:"places"`
	ETag     string    `json:"eTag,omitempty"`
}

// Store reads and writes snapshots of T through a Blob. Calls on one Store
// are serialized.
type Store[T any] struct {
	blob   Blob
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// New returns a Store backed by blob.
func New[T any](blob Blob, logger *slog.Logger) *Store[T] {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store[T]{
		blob:   blob,
		logger: logging.NewComponentLogger(logger, "snapshot"),
		now:    time.Now,
	}
}

// Location describes where the snapshot lives.
func (s *Store[T]) Location() string {
	return s.blob.Location()
}

// Load returns the stored snapshot when it exists, decodes, and carries
// expectedVersion. A version mismatch removes the stored document.
func (s *Store[T]) Load(ctx context.Context, expectedVersion int) (*Snapshot[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			s.logger.Warn("snapshot unreadable; treating as miss",
				logging.String(logging.FieldEventType, "snapshot_load_failed"),
				logging.String("location", s.blob.Location()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the next save overwrites it"),
				logging.String(logging.FieldImpact, "resolver starts cold"))
		}
		return nil, false
	}

	if snap.Version != expectedVersion {
		s.logger.Info("snapshot version changed; discarding",
			logging.String(logging.FieldEventType, "snapshot_version_mismatch"),
			logging.Int("found", snap.Version),
			logging.Int("expected", expectedVersion))
		if err := s.blob.Remove(ctx); err != nil {
			s.logger.Warn("remove stale snapshot failed",
				logging.String(logging.FieldEventType, "snapshot_remove_failed"),
				logging.Error(err))
		}
		return nil, false
	}

	s.logger.Debug("snapshot loaded",
		logging.Int("entities", len(snap.Entities)),
		logging.String("location", s.blob.Location()))
	return snap, true
}

// Inspect returns the stored snapshot regardless of version.
func (s *Store[T]) Inspect(ctx context.Context) (*Snapshot[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

// Save writes entities under version. An empty slice removes the document.
func (s *Store[T]) Save(ctx context.Context, version int, entities []T, etag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entities) == 0 {
		if err := s.blob.Remove(ctx); err != nil {
			return fmt.Errorf("remove snapshot: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(Snapshot[T]{
		Version:  version,
		SavedAt:  s.now().UTC(),
		Entities: entities,
		ETag:     etag,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.blob.Write(ctx, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.Debug("snapshot saved",
		logging.Int("entities", len(entities)),
		logging.String("location", s.blob.Location()))
	return nil
}

// Clear removes the stored document.
func (s *Store[T]) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blob.Remove(ctx)
}

func (s *Store[T]) read(ctx context.Context) (*Snapshot[T], error) {
	data, err := s.blob.Read(ctx)
	if err != nil {
		return nil, err
	}
	var snap Snapshot[T]
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
