package repository

import (
	"context"

	"github.com/imyashkale/mcpcatalog/internal/database"
	"github.com/imyashkale/mcpcatalog/internal/models"
)

// AuditRepository defines the interface for scan history and sync log operations
type AuditRepository interface {
	AddScanHistory(ctx context.Context, entry *models.ScanHistoryEntry) error
	ListScanHistory(ctx context.Context, limit int) ([]models.ScanHistoryEntry, error)
	AddSyncLog(ctx context.Context, entry *models.SyncLogEntry) (int64, error)
	UpdateSyncLog(ctx context.Context, id int64, status string, recordsSynced int, errorMessage string, details models.Metadata) error
	ListSyncLogs(ctx context.Context, limit int) ([]models.SyncLogEntry, error)
	GetStats(ctx context.Context) (*models.CatalogStats, error)
}

// sqliteAuditRepository implements AuditRepository over the SQLite store
type sqliteAuditRepository struct {
	store *database.Store
}

// NewAuditRepository creates a new SQLite-backed audit repository
func NewAuditRepository(store *database.Store) AuditRepository {
	return &sqliteAuditRepository{store: store}
}

// AddScanHistory appends one discovery audit entry
func (r *sqliteAuditRepository) AddScanHistory(ctx context.Context, entry *models.ScanHistoryEntry) error {
	return r.store.AddScanHistory(ctx, entry)
}

// ListScanHistory retrieves the most recent scan entries, newest first
func (r *sqliteAuditRepository) ListScanHistory(ctx context.Context, limit int) ([]models.ScanHistoryEntry, error) {
	return r.store.ListScanHistory(ctx, limit)
}

// AddSyncLog inserts a sync log entry and returns its generated id
func (r *sqliteAuditRepository) AddSyncLog(ctx context.Context, entry *models.SyncLogEntry) (int64, error) {
	return r.store.AddSyncLog(ctx, entry)
}

// UpdateSyncLog terminally updates a sync log entry in place
func (r *sqliteAuditRepository) UpdateSyncLog(ctx context.Context, id int64, status string, recordsSynced int, errorMessage string, details models.Metadata) error {
	return r.store.UpdateSyncLog(ctx, id, status, recordsSynced, errorMessage, details)
}

// ListSyncLogs retrieves the most recent sync log entries, newest first
func (r *sqliteAuditRepository) ListSyncLogs(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	return r.store.ListSyncLogs(ctx, limit)
}

// GetStats returns catalog totals plus the latest scan and sync entries
func (r *sqliteAuditRepository) GetStats(ctx context.Context) (*models.CatalogStats, error) {
	return r.store.GetStats(ctx)
}
