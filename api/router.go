// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"webshare/room-api/db"
	"webshare/room-api/internal/registry"
	"webshare/room-api/internal/service"
	"webshare/room-api/internal/storage"
	"webshare/room-api/pkg/middleware"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/benbjohnson/clock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB        *gorm.DB
	Router    *gin.Engine
	Blobs     storage.Store
	Rooms     *registry.Rooms
	Files     *registry.Files
	Cleaner   *service.Cleaner
	Scheduler *service.Scheduler
}

func NewRouter() (*API, error) {
	a := &API{}

	gormDB, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = gormDB

	makeLogger()

	switch viper.GetString("storage.type") {
	case "s3":
		a.Blobs, err = storage.NewS3()
	default:
		a.Blobs, err = storage.NewLocal(viper.GetString("storage.root"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob storage, %w", err)
	}

	clk := clock.New()
	a.Rooms = registry.NewRooms(gormDB, clk)
	a.Files = registry.NewFiles(gormDB, a.Blobs)
	a.Cleaner = service.NewCleaner(a.Rooms, a.Files)
	a.Scheduler = service.NewScheduler(a.Rooms, a.Cleaner, clk, viper.GetDuration("room.poll_interval"))

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	admin := middleware.NewAdminMiddleware()
	maxUploadSize := viper.GetInt64("upload.max_size")
	mutateLimit := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             10,
	})

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)
	}

	rooms := main.Group("/rooms", middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/rooms 		-> Creates a new room and returns its access code
		rooms.POST("", mutateLimit, a.RoomCreate)

		// POST /api/rooms/join 	-> Validates a room id + code pair
		rooms.POST("/join", a.RoomJoin)

		// GET /api/rooms/:roomId 	-> Returns room info, code passed as query param
		rooms.GET("/:roomId", a.RoomInfo)

		// GET /api/rooms/:roomId/status -> Public liveness check for a room
		rooms.GET("/:roomId/status", cacheFor(3), a.RoomStatus)

		// DELETE /api/rooms/:roomId 	-> Deletes a room and everything in it
		rooms.DELETE("/:roomId", a.RoomDelete)
	}

	files := main.Group("/files")
	{
		// POST /api/files/upload/:roomId 	-> Uploads one or more files into a room
		files.POST("/upload/:roomId", middleware.BodySizeLimiter(maxUploadSize), a.FileUpload)

		// POST /api/files/upload-folder/:roomId -> Uploads a folder stored as one zip blob
		files.POST("/upload-folder/:roomId", middleware.BodySizeLimiter(maxUploadSize), a.FolderUpload)

		// GET /api/files/:roomId 		-> Lists the files in a room
		files.GET("/:roomId", a.FileList)

		// GET /api/files/download/:roomId/:fileId -> Streams a file back
		files.GET("/download/:roomId/:fileId", a.FileDownload)

		// DELETE /api/files/:roomId/:fileId 	-> Deletes a single file
		files.DELETE("/:roomId/:fileId", a.FileDelete)
	}

	adm := main.Group("/admin", admin)
	{
		// GET /api/admin/scheduler 	-> Scheduler status (running, poll interval, tracked rooms)
		adm.GET("/scheduler", a.AdminSchedulerStatus)

		// POST /api/admin/cleanup 	-> Deletes every expired room right now
		adm.POST("/cleanup", a.AdminCleanup)

		// POST /api/admin/reconcile 	-> Removes orphaned files and fixes size drift
		adm.POST("/reconcile", a.AdminReconcile)
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
