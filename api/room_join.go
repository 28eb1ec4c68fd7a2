package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type roomJoinRequest struct {
	RoomID string `json:"roomId" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

func (a *API) RoomJoin(c *gin.Context) {
	var req roomJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Room id and code are required")
		return
	}

	room, err := a.Rooms.ValidateAccess(c.Request.Context(), req.RoomID, req.Code)
	if err != nil {
		abortRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Joined room",
		"data": gin.H{
			"room": room,
		},
	})
}
