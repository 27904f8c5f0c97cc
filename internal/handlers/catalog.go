package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/imyashkale/mcpcatalog/internal/queue"
	"github.com/imyashkale/mcpcatalog/internal/repository"
)

// defaultHistoryLimit bounds audit listings when no limit is given.
const defaultHistoryLimit = 20

// CatalogHandler handles discovery, sync and restore requests. Runs are
// queued and executed by the single background worker, one at a time.
type CatalogHandler struct {
	audit    repository.AuditRepository
	jobQueue *queue.JobQueue
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(audit repository.AuditRepository, jobQueue *queue.JobQueue) *CatalogHandler {
	return &CatalogHandler{
		audit:    audit,
		jobQueue: jobQueue,
	}
}

// TriggerScan enqueues a discovery run
func (h *CatalogHandler) TriggerScan(c *gin.Context) {
	h.enqueue(c, queue.JobScan)
}

// TriggerSync enqueues an outbound sync run
func (h *CatalogHandler) TriggerSync(c *gin.Context) {
	h.enqueue(c, queue.JobSync)
}

// TriggerRestore enqueues a restore from the latest backup snapshot
func (h *CatalogHandler) TriggerRestore(c *gin.Context) {
	h.enqueue(c, queue.JobRestore)
}

func (h *CatalogHandler) enqueue(c *gin.Context, kind queue.JobKind) {
	job := &queue.Job{
		ID:   uuid.New().String(),
		Kind: kind,
	}

	if err := h.jobQueue.Enqueue(job); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "queue_full",
				"message": "Too many queued runs, try again later",
			})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "queue_closed",
			"message": "Service is shutting down",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"kind":   string(kind),
		"status": "queued",
	})
}

// ScanHistory handles listing recent discovery audit entries
func (h *CatalogHandler) ScanHistory(c *gin.Context) {
	entries, err := h.audit.ListScanHistory(c.Request.Context(), limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to retrieve scan history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// SyncLogs handles listing recent sync audit entries
func (h *CatalogHandler) SyncLogs(c *gin.Context) {
	entries, err := h.audit.ListSyncLogs(c.Request.Context(), limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to retrieve sync logs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// Stats handles the catalog stats endpoint
func (h *CatalogHandler) Stats(c *gin.Context) {
	stats, err := h.audit.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to retrieve stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func limitParam(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return defaultHistoryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return defaultHistoryLimit
	}
	return limit
}
