package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) RoomInfo(c *gin.Context) {
	roomID := c.Param("roomId")

	code := c.Query("code")
	if code == "" {
		abortBadRequest(c, "Access code is required")
		return
	}

	room, err := a.Rooms.ValidateAccess(c.Request.Context(), roomID, code)
	if err != nil {
		abortRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"room": room,
		},
	})
}
