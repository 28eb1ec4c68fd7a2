// Package storage holds the blob backends. The database owns the metadata,
// a Store only owns bytes keyed by room and stored name.
package storage

import (
	"context"
	"io"
)

// Store is implemented by the local disk backend and the S3 backend. Remove
// must treat a missing blob as already removed, and RemoveRoomDir must never
// destroy a non-empty room.
type Store interface {
	// Save writes the blob and returns the number of bytes written. A failed
	// write must not leave a partial blob behind.
	Save(ctx context.Context, roomID, name string, src io.Reader) (int64, error)

	// Open returns a reader over the blob.
	Open(ctx context.Context, roomID, name string) (io.ReadCloser, error)

	// Remove deletes the blob. Removing a blob that doesn't exist is a no-op.
	Remove(ctx context.Context, roomID, name string) error

	// List returns the stored names present under the room.
	List(ctx context.Context, roomID string) ([]string, error)

	// EnsureRoom makes sure the room's directory exists.
	EnsureRoom(ctx context.Context, roomID string) error

	// RoomEmpty reports whether the room holds no blobs. A room that was
	// never created counts as empty.
	RoomEmpty(ctx context.Context, roomID string) (bool, error)

	// RemoveRoomDir removes the room's directory only when it is empty.
	RemoveRoomDir(ctx context.Context, roomID string) error

	// ListRooms returns the room ids that currently have a directory.
	ListRooms(ctx context.Context) ([]string, error)
}
