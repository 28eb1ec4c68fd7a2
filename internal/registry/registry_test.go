package registry

import (
	"path/filepath"
	"testing"

	"webshare/room-api/internal/model"
	"webshare/room-api/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.Room{}, model.File{}))

	return db
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()

	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	return store
}
