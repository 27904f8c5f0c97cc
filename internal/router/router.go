package router

import (
	"github.com/gin-gonic/gin"
	"github.com/imyashkale/mcpcatalog/internal/handlers"
	"github.com/imyashkale/mcpcatalog/internal/middleware"
)

// Setup configures and returns the application router
func Setup(
	apiToken string,
	healthHandler *handlers.HealthHandler,
	serverHandler *handlers.ServerHandler,
	catalogHandler *handlers.CatalogHandler,
	backupHandler *handlers.BackupHandler,
) *gin.Engine {

	// Create a new Gin router
	router := gin.Default()

	// Apply CORS middleware globally
	router.Use(middleware.CORS())

	// API v1 routes
	v1 := router.Group("/api/v1")

	// Apply authentication middleware to all routes
	v1.Use(middleware.Authentication(apiToken))

	// Health check
	v1.GET("/health", healthHandler.Check)

	// Catalog browsing
	servers := v1.Group("/servers")
	{
		servers.GET("", serverHandler.List)
		servers.GET("/:name", serverHandler.Get)
		servers.DELETE("/:name", serverHandler.Delete)
	}

	// Discovery
	v1.POST("/scan", catalogHandler.TriggerScan)
	v1.GET("/scan/history", catalogHandler.ScanHistory)

	// Outbound sync
	v1.POST("/sync", catalogHandler.TriggerSync)
	v1.GET("/sync/logs", catalogHandler.SyncLogs)

	// Backups
	v1.GET("/backups", backupHandler.List)
	v1.POST("/backups/restore", catalogHandler.TriggerRestore)

	// Stats
	v1.GET("/stats", catalogHandler.Stats)

	return router
}
