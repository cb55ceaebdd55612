package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// FileBlob stores the document at a local path. Writers hold an exclusive
// lock on a sibling .lock file; readers hold a shared one.
type FileBlob struct {
	path string
	lock *flock.Flock
}

// NewFileBlob returns a FileBlob for path.
func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path, lock: flock.New(path + ".lock")}
}

// Location returns the file path.
func (b *FileBlob) Location() string { return b.path }

// Read returns the file contents.
func (b *FileBlob) Read(ctx context.Context) ([]byte, error) {
	if _, err := os.Stat(b.path); errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err := b.acquire(ctx, true); err != nil {
		return nil, err
	}
	defer b.lock.Unlock() //nolint:errcheck

	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	return data, nil
}

// Write replaces the file via a temp file and rename in the same directory.
func (b *FileBlob) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := b.acquire(ctx, false); err != nil {
		return err
	}
	defer b.lock.Unlock() //nolint:errcheck

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Remove deletes the file.
func (b *FileBlob) Remove(ctx context.Context) error {
	if _, err := os.Stat(b.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := b.acquire(ctx, false); err != nil {
		return err
	}
	defer b.lock.Unlock() //nolint:errcheck

	if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", b.path, err)
	}
	return nil
}

// Exists reports whether the file is present.
func (b *FileBlob) Exists(context.Context) (bool, error) {
	_, err := os.Stat(b.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", b.path, err)
	}
}

func (b *FileBlob) acquire(ctx context.Context, shared bool) error {
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = b.lock.TryRLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = b.lock.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", b.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("lock %s: not acquired", b.lock.Path())
	}
	return nil
}
