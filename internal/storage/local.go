package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores blobs under <root>/rooms/<roomID>/<storedName>.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(root, "rooms"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root, %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) roomDir(roomID string) string {
	return filepath.Join(l.root, "rooms", roomID)
}

func (l *Local) Save(ctx context.Context, roomID, name string, src io.Reader) (int64, error) {
	if err := l.EnsureRoom(ctx, roomID); err != nil {
		return 0, err
	}

	p := filepath.Join(l.roomDir(roomID), name)

	f, err := os.Create(p)
	if err != nil {
		return 0, fmt.Errorf("failed to create blob, %w", err)
	}

	n, err := io.Copy(f, src)
	if err != nil {
		f.Close()
		os.Remove(p)
		return 0, fmt.Errorf("failed to write blob, %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(p)
		return 0, fmt.Errorf("failed to close blob, %w", err)
	}

	return n, nil
}

func (l *Local) Open(_ context.Context, roomID, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(l.roomDir(roomID), name))
	if err != nil {
		return nil, fmt.Errorf("failed to open blob, %w", err)
	}
	return f, nil
}

func (l *Local) Remove(_ context.Context, roomID, name string) error {
	err := os.Remove(filepath.Join(l.roomDir(roomID), name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove blob, %w", err)
	}
	return nil
}

func (l *Local) List(_ context.Context, roomID string) ([]string, error) {
	entries, err := os.ReadDir(l.roomDir(roomID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list room, %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (l *Local) EnsureRoom(_ context.Context, roomID string) error {
	if err := os.MkdirAll(l.roomDir(roomID), 0o755); err != nil {
		return fmt.Errorf("failed to create room directory, %w", err)
	}
	return nil
}

func (l *Local) RoomEmpty(ctx context.Context, roomID string) (bool, error) {
	names, err := l.List(ctx, roomID)
	if err != nil {
		return false, err
	}
	return len(names) == 0, nil
}

func (l *Local) RemoveRoomDir(ctx context.Context, roomID string) error {
	empty, err := l.RoomEmpty(ctx, roomID)
	if err != nil {
		return err
	}
	// Never force-remove. A non-empty directory may hold an upload that's
	// still in flight.
	if !empty {
		return fmt.Errorf("room directory %s is not empty", roomID)
	}

	err = os.Remove(l.roomDir(roomID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove room directory, %w", err)
	}
	return nil
}

func (l *Local) ListRooms(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, "rooms"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list rooms, %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}
