package repository

import (
	"context"

	"github.com/imyashkale/mcpcatalog/internal/database"
	"github.com/imyashkale/mcpcatalog/internal/models"
)

// Re-export errors from database package so callers need not import it
var (
	ErrNotFound = database.ErrNotFound
)

// ServerRepository defines the interface for canonical server record operations
type ServerRepository interface {
	AddOrReplace(ctx context.Context, server *models.ServerRecord) error
	Get(ctx context.Context, name string) (*models.ServerRecord, error)
	GetAll(ctx context.Context) ([]*models.ServerRecord, error)
	UpdateStatus(ctx context.Context, name, status string, installed bool) error
	Delete(ctx context.Context, name string) error
}

// sqliteServerRepository implements ServerRepository over the SQLite store
type sqliteServerRepository struct {
	store *database.Store
}

// NewServerRepository creates a new SQLite-backed server repository
func NewServerRepository(store *database.Store) ServerRepository {
	return &sqliteServerRepository{store: store}
}

// AddOrReplace inserts or fully replaces a server record by name
func (r *sqliteServerRepository) AddOrReplace(ctx context.Context, server *models.ServerRecord) error {
	return r.store.AddOrReplaceServer(ctx, server)
}

// Get retrieves a server record by name
func (r *sqliteServerRepository) Get(ctx context.Context, name string) (*models.ServerRecord, error) {
	return r.store.GetServer(ctx, name)
}

// GetAll retrieves all server records
func (r *sqliteServerRepository) GetAll(ctx context.Context) ([]*models.ServerRecord, error) {
	return r.store.ListServers(ctx)
}

// UpdateStatus updates only the lifecycle fields of a record
func (r *sqliteServerRepository) UpdateStatus(ctx context.Context, name, status string, installed bool) error {
	return r.store.UpdateServerStatus(ctx, name, status, installed)
}

// Delete removes a server record by name
func (r *sqliteServerRepository) Delete(ctx context.Context, name string) error {
	return r.store.DeleteServer(ctx, name)
}
