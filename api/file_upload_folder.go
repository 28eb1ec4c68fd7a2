package api

import (
	"archive/zip"
	"io"
	"net/http"

	"webshare/room-api/internal/model"
	"webshare/room-api/internal/registry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FolderUpload takes the parts of a folder and stores them as one zip
// archive blob. The row records how many entries went in (fileCount) while
// counting as a single file in the room.
func (a *API) FolderUpload(c *gin.Context) {
	roomID := c.Param("roomId")

	form, err := c.MultipartForm()
	if err != nil {
		abortInternal(c, "Failed to parse multipart form", err)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		abortBadRequest(c, "No files provided")
		return
	}

	folderName := c.PostForm("folderName")
	if folderName == "" {
		abortBadRequest(c, "Folder name is required")
		return
	}

	code := c.PostForm("code")
	room, err := a.Rooms.ValidateAccess(c.Request.Context(), roomID, code)
	if err != nil {
		abortRegistryError(c, err)
		return
	}

	var rawSize int64
	for _, fh := range files {
		rawSize += fh.Size
	}

	// The archive ends up at most this big, good enough for a precheck
	if room.CurrentSize+rawSize > room.MaxSize {
		abortRegistryError(c, registry.ErrQuotaExceeded)
		return
	}

	ctx := c.Request.Context()
	id, storedName := registry.NewStoredName(folderName + ".zip")

	// Zip straight into the blob store, nothing is buffered on disk
	pr, pw := io.Pipe()
	go func() {
		zw := zip.NewWriter(pw)
		for _, fh := range files {
			w, err := zw.Create(fh.Filename)
			if err != nil {
				pw.CloseWithError(err)
				return
			}

			src, err := fh.Open()
			if err != nil {
				pw.CloseWithError(err)
				return
			}

			if _, err := io.Copy(w, src); err != nil {
				src.Close()
				pw.CloseWithError(err)
				return
			}
			src.Close()
		}
		pw.CloseWithError(zw.Close())
	}()

	size, err := a.Blobs.Save(ctx, roomID, storedName, pr)
	if err != nil {
		// Unblock the zip goroutine if Save bailed without draining the pipe
		pr.CloseWithError(err)
		abortInternal(c, "Failed to store folder archive", err)
		return
	}

	folder, err := a.Files.Create(ctx, registry.CreateFileOpts{
		ID:           id,
		RoomID:       roomID,
		OriginalName: folderName,
		StoredName:   storedName,
		FileSize:     size,
		MimeType:     "application/zip",
		IsFolder:     true,
		FileCount:    len(files),
	})
	if err != nil {
		if rmErr := a.Blobs.Remove(ctx, roomID, storedName); rmErr != nil {
			zap.L().Error("Failed to cleanup blob after failed create", zap.Error(rmErr))
		}
		abortInternal(c, "Failed to save folder record", err)
		return
	}

	room, err = a.Rooms.UpdateSize(ctx, room, size)
	if err != nil {
		a.rollbackUploads(roomID, []*model.File{folder})
		abortRegistryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Folder uploaded",
		"data": gin.H{
			"folder":   fileJSON(folder),
			"roomSize": room.CurrentSize,
		},
	})
}
