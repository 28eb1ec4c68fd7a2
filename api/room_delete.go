package api

import (
	"errors"
	"net/http"

	"webshare/room-api/internal/registry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type roomDeleteRequest struct {
	Code string `json:"code" binding:"required"`
}

// RoomDelete tears a room down on request: cascade over the files, then the
// row itself is removed so the id frees up right away. The pending expiry
// timer is cancelled first so the scheduler can't race this; the cascade is
// idempotent even if it does.
func (a *API) RoomDelete(c *gin.Context) {
	roomID := c.Param("roomId")

	var req roomDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Access code is required")
		return
	}

	_, err := a.Rooms.ValidateAccess(c.Request.Context(), roomID, req.Code)
	if err != nil && !errors.Is(err, registry.ErrExpired) {
		// An expired-but-unswept room may still be deleted by whoever holds
		// the code
		abortRegistryError(c, err)
		return
	}

	a.Scheduler.CancelRoomTimer(roomID)

	count, err := a.Cleaner.PurgeRoom(c.Request.Context(), roomID)
	if err != nil {
		abortInternal(c, "Failed to delete room", err)
		return
	}

	zap.L().Info("Room deleted by request",
		zap.String("room", roomID),
		zap.Int("files", count))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Room deleted",
		"data": gin.H{
			"deletedFilesCount": count,
		},
	})
}
