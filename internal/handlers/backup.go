package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/imyashkale/mcpcatalog/internal/syncer"
)

// BackupHandler handles backup listing requests
type BackupHandler struct {
	backup *syncer.BackupService
}

// NewBackupHandler creates a new backup handler. The service may be nil
// when no backup bucket is configured.
func NewBackupHandler(backup *syncer.BackupService) *BackupHandler {
	return &BackupHandler{
		backup: backup,
	}
}

// List handles enumerating stored backup objects
func (h *BackupHandler) List(c *gin.Context) {
	if h.backup == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":   "not_configured",
			"message": "Backup target is not configured",
		})
		return
	}

	objects, err := h.backup.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to list backups",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"backups": objects,
		"total":   len(objects),
	})
}
