package service

import (
	"context"
	"strings"
	"testing"

	"webshare/room-api/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanerDeleteRoom(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.makeRoom(t, "r1", 10, 3)

	require.NoError(t, e.cleaner.DeleteRoom(ctx, "r1"))

	_, err := e.rooms.FindByID(ctx, "r1")
	assert.ErrorIs(t, err, registry.ErrNotFound)

	list, err := e.files.FindByRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, list)

	empty, err := e.store.RoomEmpty(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, empty)

	// Deleting a deleted (or never-existing) room converges quietly
	require.NoError(t, e.cleaner.DeleteRoom(ctx, "r1"))
	require.NoError(t, e.cleaner.DeleteRoom(ctx, "ghost"))
}

func TestCleanerPurgeRoom(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.makeRoom(t, "r1", 10, 2)

	count, err := e.cleaner.PurgeRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The row is gone outright, so the id is immediately reusable as a
	// fresh room rather than a reactivation
	fresh, err := e.rooms.Create(ctx, registry.CreateRoomOpts{CustomID: "r1", TTLMinutes: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), fresh.CurrentSize)
}

func TestCleanerReconcileOrphans(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.makeRoom(t, "live", 10, 1)
	e.makeRoom(t, "dead", 10, 2)
	require.NoError(t, e.rooms.Deactivate(ctx, "dead"))

	removed, err := e.cleaner.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	kept, err := e.files.FindByRoom(ctx, "live")
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	empty, err := e.store.RoomEmpty(ctx, "dead")
	require.NoError(t, err)
	assert.True(t, empty)

	removed, err = e.cleaner.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed, "second sweep finds nothing")
}

func TestCleanerReconcileOrphans_BlobWithoutRow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	// A crash after the blob write but before Files.Create leaves bytes on
	// disk that no row references
	_, err := e.store.Save(ctx, "crashed", "u1_data.bin", strings.NewReader("0123456789"))
	require.NoError(t, err)

	removed, err := e.cleaner.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	names, err := e.store.List(ctx, "crashed")
	require.NoError(t, err)
	assert.Empty(t, names)

	removed, err = e.cleaner.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCleanerReconcileSizes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.makeRoom(t, "r1", 10, 3)
	e.makeRoom(t, "r2", 10, 1)

	// Simulate drift from a crash between file row write and size update
	require.NoError(t, e.rooms.ResetSize(ctx, "r1", 999))

	fixed, err := e.cleaner.ReconcileSizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	room, err := e.rooms.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), room.CurrentSize)

	fixed, err = e.cleaner.ReconcileSizes(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}
