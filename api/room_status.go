package api

import (
	"errors"
	"net/http"

	"webshare/room-api/internal/registry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoomStatus is the public poll endpoint clients use for their countdown
// display. No code needed, it only leaks whether the room is alive. A room
// found past its expiry is cleaned up immediately instead of waiting for the
// scheduler's timer.
func (a *API) RoomStatus(c *gin.Context) {
	roomID := c.Param("roomId")
	now := a.Rooms.Now()

	room, err := a.Rooms.FindByID(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"data": gin.H{
					"active":      false,
					"currentTime": now,
				},
			})
			return
		}

		abortRegistryError(c, err)
		return
	}

	active := room.ExpiresAt.After(now)

	if !active {
		if err := a.Scheduler.TriggerRoomDeletion(c.Request.Context(), roomID); err != nil {
			zap.L().Error("Failed to clean up expired room on status check",
				zap.String("room", roomID),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"active":      active,
			"expiresAt":   room.ExpiresAt,
			"currentTime": now,
		},
	})
}
