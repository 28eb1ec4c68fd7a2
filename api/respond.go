package api

import (
	"errors"
	"net/http"

	"webshare/room-api/internal/model"
	"webshare/room-api/internal/registry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// abortRegistryError translates registry errors into the stable
// success/message response shape. Anything that isn't a known validation
// error is logged and hidden behind a generic message.
func abortRegistryError(c *gin.Context, err error) {
	requestID := c.MustGet("requestID").(string)

	var code int
	var msg string

	switch {
	case errors.Is(err, registry.ErrNotFound):
		code, msg = http.StatusNotFound, "Room or file not found"
	case errors.Is(err, registry.ErrForbidden):
		code, msg = http.StatusForbidden, "Invalid access code"
	case errors.Is(err, registry.ErrExpired):
		code, msg = http.StatusGone, "Room has expired"
	case errors.Is(err, registry.ErrConflict):
		code, msg = http.StatusConflict, "Room id or code already exists, retry"
	case errors.Is(err, registry.ErrQuotaExceeded):
		code, msg = http.StatusRequestEntityTooLarge, "Not enough storage space"
	default:
		code, msg = http.StatusInternalServerError, "Internal server error"
		zap.L().Error("Unexpected error", zap.Error(err), zap.String("requestID", requestID))
	}

	c.AbortWithStatusJSON(code, gin.H{
		"success":   false,
		"message":   msg,
		"requestID": requestID,
	})
}

func abortBadRequest(c *gin.Context, msg string) {
	requestID := c.MustGet("requestID").(string)

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success":   false,
		"message":   msg,
		"requestID": requestID,
	})
}

func abortInternal(c *gin.Context, logMsg string, err error) {
	requestID := c.MustGet("requestID").(string)

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success":   false,
		"message":   "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error(logMsg, zap.Error(err), zap.String("requestID", requestID))
}

// fileJSON mirrors what clients expect per file, download URL included.
func fileJSON(f *model.File) gin.H {
	return gin.H{
		"id":          f.ID,
		"name":        f.OriginalName,
		"size":        f.FileSize,
		"type":        f.MimeType,
		"uploadTime":  f.UploadTime,
		"downloadUrl": "/api/files/download/" + f.RoomID + "/" + f.ID,
		"roomId":      f.RoomID,
		"isFolder":    f.IsFolder,
		"fileCount":   f.FileCount,
	}
}
