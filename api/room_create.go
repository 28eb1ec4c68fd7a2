package api

import (
	"net/http"

	"webshare/room-api/internal/registry"
	"webshare/room-api/validators"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type roomCreateRequest struct {
	CustomID      string `json:"customId"`
	CodeStrength  string `json:"codeStrength"`
	ExpiryMinutes int    `json:"expiryMinutes"`
}

func (a *API) RoomCreate(c *gin.Context) {
	req := roomCreateRequest{
		CodeStrength:  "medium",
		ExpiryMinutes: 1440,
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request body")
		return
	}

	if err := validators.RoomCreateValidator(req.CustomID, req.CodeStrength, req.ExpiryMinutes); err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	room, err := a.Rooms.Create(c.Request.Context(), registry.CreateRoomOpts{
		CustomID:     req.CustomID,
		CodeStrength: req.CodeStrength,
		TTLMinutes:   req.ExpiryMinutes,
		MaxSize:      viper.GetInt64("room.default_max_size"),
	})
	if err != nil {
		abortRegistryError(c, err)
		return
	}

	zap.L().Info("Room created",
		zap.String("room", room.ID),
		zap.Time("expires_at", room.ExpiresAt))

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Room created",
		"data": gin.H{
			"room": room,
			// The code is only ever returned here
			"code": room.Code,
		},
	})
}
