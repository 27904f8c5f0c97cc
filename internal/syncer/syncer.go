package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/imyashkale/mcpcatalog/internal/logger"
	"github.com/imyashkale/mcpcatalog/internal/models"
	"github.com/imyashkale/mcpcatalog/internal/repository"
)

// SyncService runs the configured outbound sync adapters in sequence and
// records one sync log entry per run. A nil adapter means that target is
// not configured; its sub-sync is skipped and contributes zero.
type SyncService struct {
	catalog *CatalogSync
	backup  *BackupService
	audit   repository.AuditRepository
}

// NewSyncService creates the sync orchestrator. Either adapter may be nil.
func NewSyncService(catalog *CatalogSync, backup *BackupService, audit repository.AuditRepository) *SyncService {
	return &SyncService{
		catalog: catalog,
		backup:  backup,
		audit:   audit,
	}
}

// Run executes one full outbound sync. The sync log entry is written
// in_progress before any adapter runs and terminally updated in place to
// completed or failed before the error (if any) is returned.
func (s *SyncService) Run(ctx context.Context) (*models.SyncSummary, error) {
	start := time.Now()

	logID, err := s.audit.AddSyncLog(ctx, &models.SyncLogEntry{
		SyncType: "full",
		Status:   models.AuditInProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sync log: %w", err)
	}

	summary := &models.SyncSummary{}

	if s.catalog != nil {
		count, err := s.catalog.Push(ctx)
		if err != nil {
			return nil, s.fail(ctx, logID, summary, err)
		}
		summary.CatalogSynced = count
	} else {
		logger.Debug("Catalog sync not configured, skipping")
	}

	if s.backup != nil {
		count, err := s.backup.Backup(ctx)
		if err != nil {
			return nil, s.fail(ctx, logID, summary, err)
		}
		summary.BackedUp = count
	} else {
		logger.Debug("Backup not configured, skipping")
	}

	summary.RecordsSynced = summary.CatalogSynced + summary.BackedUp
	summary.Duration = time.Since(start).Seconds()

	err = s.audit.UpdateSyncLog(ctx, logID, models.AuditCompleted,
		summary.RecordsSynced, "", models.Metadata{
			"catalog_synced": summary.CatalogSynced,
			"backed_up":      summary.BackedUp,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to close sync log: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"records_synced": summary.RecordsSynced,
		"duration":       summary.Duration,
	}).Info("Sync run completed")

	return summary, nil
}

// fail terminally marks the sync log entry failed, then returns the
// original error.
func (s *SyncService) fail(ctx context.Context, logID int64, summary *models.SyncSummary, cause error) error {
	details := models.Metadata{
		"catalog_synced": summary.CatalogSynced,
		"backed_up":      summary.BackedUp,
	}

	// The run context may already be cancelled; the audit update still
	// has to land.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	total := summary.CatalogSynced + summary.BackedUp
	if err := s.audit.UpdateSyncLog(writeCtx, logID, models.AuditFailed, total, cause.Error(), details); err != nil {
		logger.WithField("error", err.Error()).Error("Failed to record failed sync entry")
	}

	return cause
}
