package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) FileList(c *gin.Context) {
	roomID := c.Param("roomId")

	code := c.Query("code")
	if code == "" {
		abortBadRequest(c, "Access code is required")
		return
	}

	if _, err := a.Rooms.ValidateAccess(c.Request.Context(), roomID, code); err != nil {
		abortRegistryError(c, err)
		return
	}

	files, err := a.Files.FindByRoom(c.Request.Context(), roomID)
	if err != nil {
		abortInternal(c, "Failed to list files", err)
		return
	}

	out := make([]gin.H, len(files))
	for i := range files {
		out[i] = fileJSON(&files[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"files": out,
		},
	})
}
