package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/imyashkale/mcpcatalog/internal/config"
	"github.com/imyashkale/mcpcatalog/internal/database"
	"github.com/imyashkale/mcpcatalog/internal/handlers"
	"github.com/imyashkale/mcpcatalog/internal/logger"
	"github.com/imyashkale/mcpcatalog/internal/queue"
	"github.com/imyashkale/mcpcatalog/internal/repository"
	"github.com/imyashkale/mcpcatalog/internal/router"
	"github.com/imyashkale/mcpcatalog/internal/scanner"
	"github.com/imyashkale/mcpcatalog/internal/syncer"
)

func main() {

	ctx := context.Background()

	// Load application configuration
	cfg := config.New()
	logger.Init(cfg.LogLevel)
	logger.Info("Configuration loaded successfully")

	// Open the canonical store
	store, err := database.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open canonical store: %v", err)
	}
	defer store.Close()
	logger.WithField("path", cfg.DatabasePath).Info("Canonical store opened")

	// Initialize repositories
	serverRepo := repository.NewServerRepository(store)
	auditRepo := repository.NewAuditRepository(store)

	// Initialize source adapters in their fixed run order
	discovery := scanner.NewDiscoveryService(serverRepo, auditRepo,
		scanner.NewFilesystemScanner(cfg.ScanPaths, cfg.ScanDepth),
		scanner.NewNPMRegistryScanner(cfg.NPMRegistryURL),
		scanner.NewGitHubScanner(cfg.GitHubToken),
		scanner.NewInstalledScanner(cfg.NPMRegistryURL),
	)
	logger.Info("Discovery service initialized")

	// Initialize outbound sync adapters; either target may be absent
	var catalogSync *syncer.CatalogSync
	if cfg.CatalogSyncEnabled() {
		dynamoClient, err := syncer.NewDynamoDBClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize DynamoDB client: %v", err)
		}
		catalogSync = syncer.NewCatalogSync(dynamoClient, cfg.CatalogTableName, serverRepo)
		logger.WithField("table", cfg.CatalogTableName).Info("Catalog sync initialized")
	}

	var backupService *syncer.BackupService
	if cfg.BackupEnabled() {
		s3Client, err := syncer.NewS3Client(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3 client: %v", err)
		}
		backupService = syncer.NewBackupService(s3Client, cfg.BackupBucket,
			cfg.BackupKeyPrefix, store.Path(), serverRepo, auditRepo)
		logger.WithField("bucket", cfg.BackupBucket).Info("Backup service initialized")
	}

	syncService := syncer.NewSyncService(catalogSync, backupService, auditRepo)

	// Initialize job queue (with buffer size of 100)
	jobQueue := queue.NewJobQueue(100)

	// One worker serializes scan, sync and restore runs against the store
	workerPool := queue.NewWorkerPool(jobQueue, 1)
	workerPool.Start(func(job *queue.Job) error {
		switch job.Kind {
		case queue.JobScan:
			_, err := discovery.Run(ctx)
			return err
		case queue.JobSync:
			_, err := syncService.Run(ctx)
			return err
		case queue.JobRestore:
			if backupService == nil {
				return fmt.Errorf("backup target is not configured")
			}
			_, err := backupService.Restore(ctx)
			return err
		default:
			return fmt.Errorf("unknown job kind %q", job.Kind)
		}
	})
	logger.Info("Catalog worker started")

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	serverHandler := handlers.NewServerHandler(serverRepo)
	catalogHandler := handlers.NewCatalogHandler(auditRepo, jobQueue)
	backupHandler := handlers.NewBackupHandler(backupService)

	// Setup router
	r := router.Setup(cfg.APIToken, healthHandler, serverHandler, catalogHandler, backupHandler)

	// Setup graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutting down gracefully...")

		// Close job queue to stop accepting new jobs
		jobQueue.Close()

		// Wait for the worker to finish the current run
		workerPool.Wait()
		logger.Info("Worker stopped")

		store.Close()
		os.Exit(0)
	}()

	// Start server
	logger.Infof("Starting server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
