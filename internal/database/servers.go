package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/imyashkale/mcpcatalog/internal/logger"
	"github.com/imyashkale/mcpcatalog/internal/models"
)

// AddOrReplaceServer inserts a server record or replaces the existing row
// with the same name in full. created_at is only set on first insert;
// every write stamps a fresh last_updated. Both timestamps are
// server-assigned here, whatever the candidate carries.
func (s *Store) AddOrReplaceServer(ctx context.Context, server *models.ServerRecord) error {
	metadata, err := marshalMetadata(server.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata for %s: %w", server.Name, err)
	}

	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO servers (
			name, version, description, author, repository_url,
			package_manager, install_command, config_path, status,
			installed, metadata, last_updated, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version         = excluded.version,
			description     = excluded.description,
			author          = excluded.author,
			repository_url  = excluded.repository_url,
			package_manager = excluded.package_manager,
			install_command = excluded.install_command,
			config_path     = excluded.config_path,
			status          = excluded.status,
			installed       = excluded.installed,
			metadata        = excluded.metadata,
			last_updated    = excluded.last_updated`,
		server.Name, server.Version, server.Description, server.Author,
		server.RepositoryURL, server.PackageManager, server.InstallCommand,
		server.ConfigPath, server.Status, boolToInt(server.Installed),
		metadata, now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert server %s: %w", server.Name, err)
	}

	logger.WithField("name", server.Name).Debug("Server record written")
	return nil
}

// GetServer retrieves a server record by name.
func (s *Store) GetServer(ctx context.Context, name string) (*models.ServerRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, version, description, author, repository_url,
		       package_manager, install_command, config_path, status,
		       installed, metadata, last_updated, created_at
		FROM servers WHERE name = ?`, name)

	server, err := scanServer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get server %s: %w", name, err)
	}
	return server, nil
}

// ListServers retrieves all server records ordered by name.
func (s *Store) ListServers(ctx context.Context) ([]*models.ServerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, version, description, author, repository_url,
		       package_manager, install_command, config_path, status,
		       installed, metadata, last_updated, created_at
		FROM servers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	servers := make([]*models.ServerRecord, 0)
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan server row: %w", err)
		}
		servers = append(servers, server)
	}
	return servers, rows.Err()
}

// UpdateServerStatus updates only the lifecycle fields of a record,
// stamping a fresh last_updated.
func (s *Store) UpdateServerStatus(ctx context.Context, name, status string, installed bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE servers SET status = ?, installed = ?, last_updated = ?
		WHERE name = ?`,
		status, boolToInt(installed), time.Now().UTC().Unix(), name)
	if err != nil {
		return fmt.Errorf("failed to update status for %s: %w", name, err)
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

// DeleteServer removes a server record by name.
func (s *Store) DeleteServer(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete server %s: %w", name, err)
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

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanServer(row scannable) (*models.ServerRecord, error) {
	var (
		server      models.ServerRecord
		installed   int
		metadata    sql.NullString
		lastUpdated int64
		createdAt   int64
	)

	err := row.Scan(
		&server.Name, &server.Version, &server.Description, &server.Author,
		&server.RepositoryURL, &server.PackageManager, &server.InstallCommand,
		&server.ConfigPath, &server.Status, &installed, &metadata,
		&lastUpdated, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	server.Installed = installed != 0
	server.LastUpdated = time.Unix(lastUpdated, 0).UTC()
	server.CreatedAt = time.Unix(createdAt, 0).UTC()

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &server.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &server, nil
}

func marshalMetadata(m models.Metadata) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
