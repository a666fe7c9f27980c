package snapshotstore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore keeps the latest PNG preview of each published floor plan,
// addressed by a caller-chosen name.
type SnapshotStore interface {
	Put(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}
