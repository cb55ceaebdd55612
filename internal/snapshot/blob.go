package snapshot

import (
	"context"
	"errors"
)

// ErrNotExist reports that a Blob holds no document.
var ErrNotExist = errors.New("snapshot does not exist")

// Blob is a single replaceable document.
type Blob interface {
	// Read returns the document or ErrNotExist.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the document atomically.
	Write(ctx context.Context, data []byte) error
	// Remove deletes the document; a missing document is not an error.
	Remove(ctx context.Context) error
	// Exists reports whether a document is stored.
	Exists(ctx context.Context) (bool, error)
	Location() string
}
