package api

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"webshare/room-api/internal/model"
	"webshare/room-api/internal/registry"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileUpload accepts one or more multipart files for a room. The quota is
// checked before any bytes hit the blob store and enforced again atomically
// when the room counter is updated, so two concurrent uploads can't race
// past it together.
func (a *API) FileUpload(c *gin.Context) {
	roomID := c.Param("roomId")

	if !strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		abortBadRequest(c, "Invalid request")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		abortInternal(c, "Failed to parse multipart form", err)
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) == 0 {
		abortBadRequest(c, "No file provided")
		return
	}

	code := c.PostForm("code")
	room, err := a.Rooms.ValidateAccess(c.Request.Context(), roomID, code)
	if err != nil {
		abortRegistryError(c, err)
		return
	}

	var totalSize int64
	for _, fh := range files {
		totalSize += fh.Size
	}

	// Cheap precheck so obviously oversized uploads never touch the disk.
	// The authoritative check is the conditional UpdateSize below.
	if room.CurrentSize+totalSize > room.MaxSize {
		abortRegistryError(c, registry.ErrQuotaExceeded)
		return
	}

	ctx := c.Request.Context()
	uploaded := make([]*model.File, 0, len(files))

	for _, fh := range files {
		file, err := a.saveUpload(ctx, roomID, fh)
		if err != nil {
			a.rollbackUploads(roomID, uploaded)
			abortInternal(c, "Failed to store upload", err)
			return
		}
		uploaded = append(uploaded, file)
	}

	room, err = a.Rooms.UpdateSize(ctx, room, totalSize)
	if err != nil {
		// Lost the quota race against a concurrent upload
		a.rollbackUploads(roomID, uploaded)
		abortRegistryError(c, err)
		return
	}

	out := make([]gin.H, len(uploaded))
	for i, f := range uploaded {
		out[i] = fileJSON(f)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Upload complete",
		"data": gin.H{
			"files":    out,
			"roomSize": room.CurrentSize,
		},
	})
}

// saveUpload writes one multipart file to the blob store and creates its
// row. The blob is removed again if the row can't be written.
func (a *API) saveUpload(ctx context.Context, roomID string, fh *multipart.FileHeader) (*model.File, error) {
	id, storedName := registry.NewStoredName(fh.Filename)

	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		if f, err := fh.Open(); err == nil {
			if m, err := mimetype.DetectReader(f); err == nil {
				mime = m.String()
			}
			f.Close()
		}
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	size, err := a.Blobs.Save(ctx, roomID, storedName, src)
	if err != nil {
		return nil, err
	}

	file, err := a.Files.Create(ctx, registry.CreateFileOpts{
		ID:           id,
		RoomID:       roomID,
		OriginalName: fh.Filename,
		StoredName:   storedName,
		FileSize:     size,
		MimeType:     mime,
	})
	if err != nil {
		if rmErr := a.Blobs.Remove(ctx, roomID, storedName); rmErr != nil {
			zap.L().Error("Failed to cleanup blob after failed create", zap.Error(rmErr))
		}
		return nil, err
	}

	return file, nil
}

// rollbackUploads undoes the files created so far in a failed request.
func (a *API) rollbackUploads(roomID string, files []*model.File) {
	for _, f := range files {
		if _, err := a.Files.Delete(context.Background(), f); err != nil {
			zap.L().Error("Failed to cleanup after failed upload",
				zap.String("file", f.ID),
				zap.Error(err))
		}
	}
	a.Files.CleanupRoomDir(context.Background(), roomID)
}
