package models

import "time"

// Package manager values for a ServerRecord
const (
	PackageManagerNPM    = "npm"
	PackageManagerGit    = "git"
	PackageManagerConfig = "config"
)

// Lifecycle status values for a ServerRecord
const (
	StatusDiscovered = "discovered"
	StatusInstalled  = "installed"
	StatusError      = "error"
)

// Metadata is the open, source-specific mapping attached to each record.
// Adapters attach keys that only specific downstream consumers read; the
// reconciliation logic treats it as opaque except for "source" and "stars".
type Metadata map[string]interface{}

// Source returns the well-known "source" tag, if present.
func (m Metadata) Source() string {
	if m == nil {
		return ""
	}
	if s, ok := m["source"].(string); ok {
		return s
	}
	return ""
}

// Stars returns the well-known "stars" count and whether it is present.
// JSON round-trips store numbers as float64, so both forms are accepted.
func (m Metadata) Stars() (int, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m["stars"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// ServerRecord is the canonical catalog entry for one MCP server package.
// Records are keyed by Name; a write with an existing name replaces the row
// in full, preserving CreatedAt and stamping a fresh LastUpdated.
type ServerRecord struct {
	Name           string    `json:"name"`
	Version        string    `json:"version"`
	Description    string    `json:"description"`
	Author         string    `json:"author"`
	RepositoryURL  string    `json:"repository_url"`
	PackageManager string    `json:"package_manager"` // npm, git or config
	InstallCommand string    `json:"install_command"`
	ConfigPath     string    `json:"config_path"`
	Status         string    `json:"status"` // discovered, installed or error
	Installed      bool      `json:"installed"`
	Metadata       Metadata  `json:"metadata,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
	CreatedAt      time.Time `json:"created_at"`
}

// DescriptiveFieldsEqual reports whether the fields that drive discovery
// change detection (version, description, repository URL) match. Installed
// and Status are deliberately excluded; they may be overwritten without
// counting as an update.
func (s *ServerRecord) DescriptiveFieldsEqual(other *ServerRecord) bool {
	return s.Version == other.Version &&
		s.Description == other.Description &&
		s.RepositoryURL == other.RepositoryURL
}
