package models

import "time"

// SnapshotVersion identifies the snapshot schema for restore compatibility.
const SnapshotVersion = "1.0"

// CatalogSnapshot is a full-catalog export: every server record plus both
// audit logs and aggregate stats. One snapshot is written to the object
// store under a timestamp-qualified key on every outward sync.
type CatalogSnapshot struct {
	ExportDate  time.Time          `json:"export_date"`
	Version     string             `json:"version"`
	Stats       CatalogStats       `json:"stats"`
	Servers     []*ServerRecord    `json:"servers"`
	ScanHistory []ScanHistoryEntry `json:"scan_history"`
	SyncLogs    []SyncLogEntry     `json:"sync_logs"`
}

// Backup object kinds, derived from the object key extension.
const (
	BackupKindSnapshot = "snapshot"
	BackupKindDatabase = "database"
)

// BackupObject describes one stored backup object.
type BackupObject struct {
	Key          string    `json:"key"`
	Kind         string    `json:"kind"` // snapshot or database
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}
