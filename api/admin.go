package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) AdminSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    a.Scheduler.GetStatus(),
	})
}

// AdminCleanup deletes every active room already past its expiry. The
// scheduler would get to them anyway, this just forces the sweep now.
func (a *API) AdminCleanup(c *gin.Context) {
	rooms, err := a.Rooms.Active(c.Request.Context())
	if err != nil {
		abortInternal(c, "Failed to list active rooms", err)
		return
	}

	now := a.Rooms.Now()
	deleted := 0

	for i := range rooms {
		if rooms[i].ExpiresAt.After(now) {
			continue
		}
		if err := a.Scheduler.TriggerRoomDeletion(c.Request.Context(), rooms[i].ID); err != nil {
			abortInternal(c, "Failed to delete expired room", err)
			return
		}
		deleted++
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Expired rooms cleaned up",
		"data": gin.H{
			"deletedCount": deleted,
		},
	})
}

// AdminReconcile runs the orphan sweep and the size recomputation on demand.
func (a *API) AdminReconcile(c *gin.Context) {
	orphans, err := a.Cleaner.ReconcileOrphans(c.Request.Context())
	if err != nil {
		abortInternal(c, "Orphan reconciliation failed", err)
		return
	}

	fixed, err := a.Cleaner.ReconcileSizes(c.Request.Context())
	if err != nil {
		abortInternal(c, "Size reconciliation failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Reconciliation finished",
		"data": gin.H{
			"orphanedFilesRemoved": orphans,
			"roomSizesCorrected":   fixed,
		},
	})
}
