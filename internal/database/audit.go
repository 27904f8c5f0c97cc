package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/imyashkale/mcpcatalog/internal/models"
)

// AddScanHistory appends one discovery audit entry. Scan history is
// append-only; entries are never updated.
func (s *Store) AddScanHistory(ctx context.Context, entry *models.ScanHistoryEntry) error {
	details, err := marshalMetadata(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal scan details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scan_history (
			scan_type, servers_found, new_servers, updated_servers,
			scan_duration, status, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ScanType, entry.ServersFound, entry.NewServers,
		entry.UpdatedServers, entry.ScanDuration, entry.Status,
		details, time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan history: %w", err)
	}
	return nil
}

// ListScanHistory retrieves the most recent scan entries, newest first.
func (s *Store) ListScanHistory(ctx context.Context, limit int) ([]models.ScanHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scan_type, servers_found, new_servers, updated_servers,
		       scan_duration, status, details, created_at
		FROM scan_history ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan history: %w", err)
	}
	defer rows.Close()

	entries := make([]models.ScanHistoryEntry, 0)
	for rows.Next() {
		var (
			entry     models.ScanHistoryEntry
			details   sql.NullString
			createdAt int64
		)
		err := rows.Scan(&entry.ID, &entry.ScanType, &entry.ServersFound,
			&entry.NewServers, &entry.UpdatedServers, &entry.ScanDuration,
			&entry.Status, &details, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0).UTC()
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal scan details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AddSyncLog inserts a sync log entry and returns its generated id. Sync
// logs are created in in_progress state at run start and terminally
// updated via UpdateSyncLog.
func (s *Store) AddSyncLog(ctx context.Context, entry *models.SyncLogEntry) (int64, error) {
	details, err := marshalMetadata(entry.Details)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal sync details: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_logs (
			sync_type, status, records_synced, error_message, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.SyncType, entry.Status, entry.RecordsSynced,
		entry.ErrorMessage, details, time.Now().UTC().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sync log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read sync log id: %w", err)
	}
	return id, nil
}

// UpdateSyncLog terminally updates a sync log entry in place by id.
func (s *Store) UpdateSyncLog(ctx context.Context, id int64, status string, recordsSynced int, errorMessage string, details models.Metadata) error {
	rawDetails, err := marshalMetadata(details)
	if err != nil {
		return fmt.Errorf("failed to marshal sync details: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sync_logs
		SET status = ?, records_synced = ?, error_message = ?, details = ?, completed_at = ?
		WHERE id = ?`,
		status, recordsSynced, errorMessage, rawDetails,
		time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update sync log %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSyncLogs retrieves the most recent sync log entries, newest first.
func (s *Store) ListSyncLogs(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sync_type, status, records_synced, error_message,
		       details, created_at, completed_at
		FROM sync_logs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	defer rows.Close()

	entries := make([]models.SyncLogEntry, 0)
	for rows.Next() {
		var (
			entry       models.SyncLogEntry
			details     sql.NullString
			createdAt   int64
			completedAt sql.NullInt64
		)
		err := rows.Scan(&entry.ID, &entry.SyncType, &entry.Status,
			&entry.RecordsSynced, &entry.ErrorMessage, &details,
			&createdAt, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync log row: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0).UTC()
		if completedAt.Valid {
			entry.CompletedAt = time.Unix(completedAt.Int64, 0).UTC()
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal sync details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetStats returns total and installed server counts plus the most recent
// scan and sync entries.
func (s *Store) GetStats(ctx context.Context) (*models.CatalogStats, error) {
	stats := &models.CatalogStats{}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(installed), 0) FROM servers`)
	if err := row.Scan(&stats.TotalServers, &stats.InstalledServers); err != nil {
		return nil, fmt.Errorf("failed to count servers: %w", err)
	}

	scans, err := s.ListScanHistory(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(scans) > 0 {
		stats.LastScan = &scans[0]
	}

	syncs, err := s.ListSyncLogs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(syncs) > 0 {
		stats.LastSync = &syncs[0]
	}

	return stats, nil
}
