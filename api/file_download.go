package api

import (
	"net/http"
	"net/url"

	"webshare/room-api/internal/registry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) FileDownload(c *gin.Context) {
	roomID := c.Param("roomId")
	fileID := c.Param("fileId")

	code := c.Query("code")
	if code == "" {
		abortBadRequest(c, "Access code is required")
		return
	}

	if _, err := a.Rooms.ValidateAccess(c.Request.Context(), roomID, code); err != nil {
		abortRegistryError(c, err)
		return
	}

	file, err := a.Files.FindByID(c.Request.Context(), fileID)
	if err != nil {
		abortRegistryError(c, err)
		return
	}

	// Knowing another room's file id must not leak its content
	if file.RoomID != roomID {
		abortRegistryError(c, registry.ErrNotFound)
		return
	}

	src, err := a.Blobs.Open(c.Request.Context(), roomID, file.StoredName)
	if err != nil {
		// Row exists but the blob is gone; reconciliation will clean the
		// row up eventually, meanwhile this is a plain 404
		zap.L().Warn("File row without blob",
			zap.String("file", file.ID),
			zap.Error(err))
		abortRegistryError(c, registry.ErrNotFound)
		return
	}
	defer src.Close()

	name := file.OriginalName
	ctype := file.MimeType
	if file.IsFolder {
		name += ".zip"
		ctype = "application/zip"
	}
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, file.FileSize, ctype, src, map[string]string{
		"Content-Disposition": `attachment; filename="` + url.PathEscape(name) + `"`,
	})
}
