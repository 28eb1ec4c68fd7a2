package api

import (
	"path/filepath"
	"testing"
	"time"

	"webshare/room-api/internal/model"
	"webshare/room-api/internal/registry"
	"webshare/room-api/internal/service"
	"webshare/room-api/internal/storage"
	"webshare/room-api/pkg/middleware"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestAPI wires the handlers against a throwaway database, a local blob
// store and a mock clock, with only the middleware the handlers depend on.
func newTestAPI(t *testing.T) (*API, *clock.Mock) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.Room{}, model.File{}))

	blobs, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	clk := clock.NewMock()

	a := &API{DB: db, Blobs: blobs}
	a.Rooms = registry.NewRooms(db, clk)
	a.Files = registry.NewFiles(db, blobs)
	a.Cleaner = service.NewCleaner(a.Rooms, a.Files)
	a.Scheduler = service.NewScheduler(a.Rooms, a.Cleaner, clk, time.Hour)

	router := gin.New()
	router.Use(middleware.NewRequestIDMiddleware())
	router.GET("/api/rooms/:roomId/status", a.RoomStatus)
	router.POST("/api/files/upload-folder/:roomId", a.FolderUpload)
	router.DELETE("/api/files/:roomId/:fileId", a.FileDelete)
	a.Router = router

	return a, clk
}
