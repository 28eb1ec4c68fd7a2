package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"webshare/room-api/internal/model"
	"webshare/room-api/internal/registry"
	"webshare/room-api/internal/storage"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	clk     *clock.Mock
	store   storage.Store
	rooms   *registry.Rooms
	files   *registry.Files
	cleaner *Cleaner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.Room{}, model.File{}))

	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	clk := clock.NewMock()
	rooms := registry.NewRooms(db, clk)
	files := registry.NewFiles(db, store)

	return &testEnv{
		clk:     clk,
		store:   store,
		rooms:   rooms,
		files:   files,
		cleaner: NewCleaner(rooms, files),
	}
}

// makeRoom creates an active room with n stored files of 10 bytes each.
func (e *testEnv) makeRoom(t *testing.T, id string, ttl int, n int) *model.Room {
	t.Helper()
	ctx := context.Background()

	room, err := e.rooms.Create(ctx, registry.CreateRoomOpts{CustomID: id, TTLMinutes: ttl})
	require.NoError(t, err)

	for range n {
		fileID, stored := registry.NewStoredName("data.bin")
		_, err := e.store.Save(ctx, id, stored, strings.NewReader("0123456789"))
		require.NoError(t, err)
		_, err = e.files.Create(ctx, registry.CreateFileOpts{
			ID: fileID, RoomID: id, OriginalName: "data.bin", StoredName: stored, FileSize: 10,
		})
		require.NoError(t, err)
		room, err = e.rooms.UpdateSize(ctx, room, 10)
		require.NoError(t, err)
	}

	return room
}

// waitFor polls until cond holds. Timer callbacks and the poll loop run on
// their own goroutines, so assertions after clk.Add need a grace period.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition never held")
}
