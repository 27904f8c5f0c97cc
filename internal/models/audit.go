package models

import "time"

// Scan and sync audit status values
const (
	AuditCompleted  = "completed"
	AuditFailed     = "failed"
	AuditInProgress = "in_progress"
)

// ScanHistoryEntry is the append-only audit record of one discovery run.
type ScanHistoryEntry struct {
	ID             int64     `json:"id"`
	ScanType       string    `json:"scan_type"`
	ServersFound   int       `json:"servers_found"`
	NewServers     int       `json:"new_servers"`
	UpdatedServers int       `json:"updated_servers"`
	ScanDuration   float64   `json:"scan_duration"` // seconds
	Status         string    `json:"status"`        // completed or failed
	Details        Metadata  `json:"details,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SyncLogEntry is the audit record of one sync run. It is created in
// in_progress state at run start and terminally updated in place at run
// end; it is the only mutable audit record.
type SyncLogEntry struct {
	ID            int64     `json:"id"`
	SyncType      string    `json:"sync_type"`
	Status        string    `json:"status"` // in_progress, completed or failed
	RecordsSynced int       `json:"records_synced"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Details       Metadata  `json:"details,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
}

// ScanSummary is the structured result a discovery run returns to callers.
type ScanSummary struct {
	ServersFound   int                `json:"servers_found"`
	NewServers     int                `json:"new_servers"`
	UpdatedServers int                `json:"updated_servers"`
	Duration       float64            `json:"duration"` // seconds
	Sources        map[string]string  `json:"sources"`  // per-adapter outcome
	SourceCounts   map[string]int     `json:"source_counts"`
}

// SyncSummary is the structured result a sync run returns to callers.
type SyncSummary struct {
	RecordsSynced int     `json:"records_synced"`
	CatalogSynced int     `json:"catalog_synced"`
	BackedUp      int     `json:"backed_up"`
	Duration      float64 `json:"duration"` // seconds
}

// CatalogStats summarizes the canonical store for status endpoints and
// backup snapshots.
type CatalogStats struct {
	TotalServers     int               `json:"total_servers"`
	InstalledServers int               `json:"installed_servers"`
	LastScan         *ScanHistoryEntry `json:"last_scan,omitempty"`
	LastSync         *SyncLogEntry     `json:"last_sync,omitempty"`
}
