// Package service holds the background machinery: cascade deletion, the
// expiry scheduler and the reconciliation sweeps.
package service

import (
	"context"
	"time"

	"webshare/room-api/internal/registry"

	"go.uber.org/zap"
)

// Cleaner runs cascade deletion: all of a room's files, then the room record.
// The scheduler, the delete endpoint and the reconciliation sweep all funnel
// through it so a room is only ever torn down one way.
type Cleaner struct {
	rooms *registry.Rooms
	files *registry.Files
}

func NewCleaner(rooms *registry.Rooms, files *registry.Files) *Cleaner {
	return &Cleaner{rooms: rooms, files: files}
}

// DeleteRoom removes every file of the room and deactivates it. Both steps
// are idempotent, so concurrent invocations for the same id (timer fire plus
// a manual trigger) converge on the same deleted state.
func (c *Cleaner) DeleteRoom(ctx context.Context, roomID string) error {
	count, err := c.files.DeleteAllForRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if err := c.rooms.Deactivate(ctx, roomID); err != nil {
		return err
	}

	zap.L().Info("Room deleted",
		zap.String("room", roomID),
		zap.Int("files", count))

	return nil
}

// PurgeRoom runs the cascade and then hard-deletes the room row. Used by the
// explicit delete endpoint, where the id should become reusable immediately.
func (c *Cleaner) PurgeRoom(ctx context.Context, roomID string) (int, error) {
	count, err := c.files.DeleteAllForRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}

	if err := c.rooms.Remove(ctx, roomID); err != nil {
		return count, err
	}

	return count, nil
}

// ReconcileOrphans removes file rows (and their blobs) whose room is gone or
// inactive, then sweeps the blob store for blobs no row references. Together
// they cover both sides of the crash window between blob write, row write and
// the room size update. Returns the total number of rows and blobs removed.
func (c *Cleaner) ReconcileOrphans(ctx context.Context) (int, error) {
	orphans, err := c.files.Orphaned(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	dirs := make(map[string]struct{})

	for i := range orphans {
		ok, err := c.files.Delete(ctx, &orphans[i])
		if err != nil {
			zap.L().Error("Failed to remove orphaned file",
				zap.String("file", orphans[i].ID),
				zap.Error(err))
			continue
		}
		if ok {
			removed++
		}
		dirs[orphans[i].RoomID] = struct{}{}
	}

	for roomID := range dirs {
		c.files.CleanupRoomDir(ctx, roomID)
	}

	blobs, err := c.files.RemoveUnreferencedBlobs(ctx)
	if err != nil {
		zap.L().Error("Failed to sweep unreferenced blobs", zap.Error(err))
	}
	removed += blobs

	return removed, nil
}

// ReconcileSizes recomputes current_size from file rows for every active room
// and fixes any drift. Returns the number of rooms corrected.
func (c *Cleaner) ReconcileSizes(ctx context.Context) (int, error) {
	rooms, err := c.rooms.Active(ctx)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for i := range rooms {
		total, err := c.files.TotalSize(ctx, rooms[i].ID)
		if err != nil {
			zap.L().Error("Failed to recompute room size",
				zap.String("room", rooms[i].ID),
				zap.Error(err))
			continue
		}

		if total == rooms[i].CurrentSize {
			continue
		}

		if err := c.rooms.ResetSize(ctx, rooms[i].ID, total); err != nil {
			zap.L().Error("Failed to correct room size",
				zap.String("room", rooms[i].ID),
				zap.Error(err))
			continue
		}

		zap.L().Warn("Corrected drifted room size",
			zap.String("room", rooms[i].ID),
			zap.Int64("was", rooms[i].CurrentSize),
			zap.Int64("now", total))
		fixed++
	}

	return fixed, nil
}

// ReconcileLoop periodically runs the orphan and size sweeps until the
// program exits.
func ReconcileLoop(t time.Duration, c *Cleaner) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Reconciliation loop attached", zap.Duration("tick_every", t))

	go func() {
		for range ticker.C {
			n, err := c.ReconcileOrphans(context.Background())
			if err != nil {
				zap.L().Error("Orphan reconciliation failed", zap.Error(err))
			} else if n > 0 {
				zap.L().Info("Removed orphaned files", zap.Int("count", n))
			}

			if _, err := c.ReconcileSizes(context.Background()); err != nil {
				zap.L().Error("Size reconciliation failed", zap.Error(err))
			}
		}
	}()
}
