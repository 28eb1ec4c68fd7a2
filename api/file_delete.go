package api

import (
	"net/http"

	"webshare/room-api/internal/registry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fileDeleteRequest struct {
	Code string `json:"code" binding:"required"`
}

func (a *API) FileDelete(c *gin.Context) {
	roomID := c.Param("roomId")
	fileID := c.Param("fileId")

	var req fileDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Access code is required")
		return
	}

	room, err := a.Rooms.ValidateAccess(c.Request.Context(), roomID, req.Code)
	if err != nil {
		abortRegistryError(c, err)
		return
	}

	file, err := a.Files.FindByID(c.Request.Context(), fileID)
	if err != nil {
		abortRegistryError(c, err)
		return
	}

	if file.RoomID != roomID {
		abortRegistryError(c, registry.ErrNotFound)
		return
	}

	deleted, err := a.Files.Delete(c.Request.Context(), file)
	if err != nil {
		abortInternal(c, "Failed to delete file", err)
		return
	}

	roomSize := room.CurrentSize
	if deleted {
		updated, err := a.Rooms.UpdateSize(c.Request.Context(), room, -file.FileSize)
		if err != nil {
			// The file is gone either way, the size sweep will fix the
			// counter if this didn't. The room may also have expired under
			// us, in which case there is no counter left to fix.
			zap.L().Warn("Failed to decrement room size",
				zap.String("room", roomID),
				zap.Error(err))
			roomSize = max(roomSize-file.FileSize, 0)
		} else {
			roomSize = updated.CurrentSize
		}

		remaining, err := a.Files.FindByRoom(c.Request.Context(), roomID)
		if err == nil && len(remaining) == 0 {
			a.Files.CleanupRoomDir(c.Request.Context(), roomID)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File deleted",
		"data": gin.H{
			"fileId":   fileID,
			"roomSize": roomSize,
		},
	})
}
