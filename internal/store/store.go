package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"placematch/internal/config"
)

// ErrNotFound is returned when no row has the requested id.
var ErrNotFound = errors.New("place not found")

// Store persists place records and their match outcomes in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// busyBackoff lists the waits between attempts when SQLite reports the
// database as locked. busy_timeout covers most contention; this covers
// commits that race a WAL checkpoint.
var busyBackoff = []time.Duration{
	10 * time.Millisecond,
	40 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
}

func isBusy(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// retryOnBusy runs op until it succeeds, fails with a non-busy error, or the
// backoff schedule is exhausted.
func retryOnBusy(ctx context.Context, op func() error) error {
	err := op()
	for _, wait := range busyBackoff {
		if !isBusy(err) {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = op()
	}
	return err
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}

// Open opens the database configured under [store].
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.Store.Path)
}

// OpenPath opens or creates the database at path in WAL mode.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	s := &Store{db: db, path: path, now: time.Now}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// dsn applies connection pragmas on every pooled connection.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(ON)")
	return "file:" + path + "?" + q.Encode()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
