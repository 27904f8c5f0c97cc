package models

import "time"

// ServerResponse represents the API response structure for a single server
type ServerResponse struct {
	Name           string    `json:"name"`
	Version        string    `json:"version"`
	Description    string    `json:"description"`
	Author         string    `json:"author"`
	RepositoryURL  string    `json:"repository_url"`
	PackageManager string    `json:"package_manager"`
	InstallCommand string    `json:"install_command"`
	ConfigPath     string    `json:"config_path,omitempty"`
	Status         string    `json:"status"`
	Installed      bool      `json:"installed"`
	Metadata       Metadata  `json:"metadata,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
	CreatedAt      time.Time `json:"created_at"`
}

// ServerListResponse represents the API response for listing servers
type ServerListResponse struct {
	Servers []ServerResponse `json:"servers"`
	Total   int              `json:"total"`
}

// ToResponse converts a canonical ServerRecord to a ServerResponse DTO
func (s *ServerRecord) ToResponse() ServerResponse {
	return ServerResponse{
		Name:           s.Name,
		Version:        s.Version,
		Description:    s.Description,
		Author:         s.Author,
		RepositoryURL:  s.RepositoryURL,
		PackageManager: s.PackageManager,
		InstallCommand: s.InstallCommand,
		ConfigPath:     s.ConfigPath,
		Status:         s.Status,
		Installed:      s.Installed,
		Metadata:       s.Metadata,
		LastUpdated:    s.LastUpdated,
		CreatedAt:      s.CreatedAt,
	}
}
