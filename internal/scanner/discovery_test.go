package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/imyashkale/mcpcatalog/internal/models"
	"github.com/imyashkale/mcpcatalog/internal/repository"
)

// fakeServerRepo is an in-memory ServerRepository for orchestrator tests
type fakeServerRepo struct {
	records  map[string]*models.ServerRecord
	failFor  map[string]bool
	writes   int
	statuses int
}

func newFakeServerRepo() *fakeServerRepo {
	return &fakeServerRepo{
		records: make(map[string]*models.ServerRecord),
		failFor: make(map[string]bool),
	}
}

func (r *fakeServerRepo) AddOrReplace(ctx context.Context, server *models.ServerRecord) error {
	if r.failFor[server.Name] {
		return fmt.Errorf("write failed for %s", server.Name)
	}
	stored := *server
	now := time.Now().UTC()
	if existing, ok := r.records[server.Name]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.LastUpdated = now
	r.records[server.Name] = &stored
	r.writes++
	return nil
}

func (r *fakeServerRepo) Get(ctx context.Context, name string) (*models.ServerRecord, error) {
	server, ok := r.records[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *server
	return &copied, nil
}

func (r *fakeServerRepo) GetAll(ctx context.Context) ([]*models.ServerRecord, error) {
	all := make([]*models.ServerRecord, 0, len(r.records))
	for _, server := range r.records {
		copied := *server
		all = append(all, &copied)
	}
	return all, nil
}

func (r *fakeServerRepo) UpdateStatus(ctx context.Context, name, status string, installed bool) error {
	server, ok := r.records[name]
	if !ok {
		return repository.ErrNotFound
	}
	server.Status = status
	server.Installed = installed
	r.statuses++
	return nil
}

func (r *fakeServerRepo) Delete(ctx context.Context, name string) error {
	if _, ok := r.records[name]; !ok {
		return repository.ErrNotFound
	}
	delete(r.records, name)
	return nil
}

// fakeAuditRepo is an in-memory AuditRepository for orchestrator tests
type fakeAuditRepo struct {
	scans    []models.ScanHistoryEntry
	syncs    []models.SyncLogEntry
	nextSync int64
}

func (r *fakeAuditRepo) AddScanHistory(ctx context.Context, entry *models.ScanHistoryEntry) error {
	r.scans = append(r.scans, *entry)
	return nil
}

func (r *fakeAuditRepo) ListScanHistory(ctx context.Context, limit int) ([]models.ScanHistoryEntry, error) {
	return r.scans, nil
}

func (r *fakeAuditRepo) AddSyncLog(ctx context.Context, entry *models.SyncLogEntry) (int64, error) {
	r.nextSync++
	stored := *entry
	stored.ID = r.nextSync
	r.syncs = append(r.syncs, stored)
	return stored.ID, nil
}

func (r *fakeAuditRepo) UpdateSyncLog(ctx context.Context, id int64, status string, recordsSynced int, errorMessage string, details models.Metadata) error {
	for i := range r.syncs {
		if r.syncs[i].ID == id {
			r.syncs[i].Status = status
			r.syncs[i].RecordsSynced = recordsSynced
			r.syncs[i].ErrorMessage = errorMessage
			r.syncs[i].Details = details
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeAuditRepo) ListSyncLogs(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	return r.syncs, nil
}

func (r *fakeAuditRepo) GetStats(ctx context.Context) (*models.CatalogStats, error) {
	return &models.CatalogStats{}, nil
}

// stubScanner yields fixed candidates or a fixed error
type stubScanner struct {
	name       string
	candidates []*models.ServerRecord
	err        error
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(ctx context.Context) ([]*models.ServerRecord, error) {
	return s.candidates, s.err
}

func candidate(name, version string) *models.ServerRecord {
	return &models.ServerRecord{
		Name:           name,
		Version:        version,
		Description:    "Test server",
		PackageManager: models.PackageManagerNPM,
		Status:         models.StatusDiscovered,
	}
}

// TestDiscoveryInsertsNewRecords tests that unknown candidates are inserted
func TestDiscoveryInsertsNewRecords(t *testing.T) {
	servers := newFakeServerRepo()
	audit := &fakeAuditRepo{}
	d := NewDiscoveryService(servers, audit,
		&stubScanner{name: "one", candidates: []*models.ServerRecord{
			candidate("demo-mcp", "1.0.0"),
			candidate("other-mcp", "2.0.0"),
		}},
	)

	summary, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.NewServers != 2 || summary.UpdatedServers != 0 || summary.ServersFound != 2 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if len(servers.records) != 2 {
		t.Errorf("Expected 2 stored records, got %d", len(servers.records))
	}
	if len(audit.scans) != 1 || audit.scans[0].Status != models.AuditCompleted {
		t.Errorf("Expected one completed scan entry, got %+v", audit.scans)
	}
}

// TestDiscoveryIdempotence tests that a second identical run changes nothing
func TestDiscoveryIdempotence(t *testing.T) {
	servers := newFakeServerRepo()
	audit := &fakeAuditRepo{}
	sc := &stubScanner{name: "one", candidates: []*models.ServerRecord{
		candidate("demo-mcp", "1.0.0"),
	}}
	d := NewDiscoveryService(servers, audit, sc)

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("First Run() error = %v", err)
	}
	writesAfterFirst := servers.writes

	summary, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Second Run() error = %v", err)
	}

	if summary.NewServers != 0 || summary.UpdatedServers != 0 {
		t.Errorf("Second run should find nothing new or updated, got %+v", summary)
	}
	if summary.ServersFound != 1 {
		t.Errorf("Unchanged records still count toward found, got %d", summary.ServersFound)
	}
	if servers.writes != writesAfterFirst {
		t.Errorf("Second run should not write, writes went %d -> %d", writesAfterFirst, servers.writes)
	}
}

// TestDiscoveryChangeDetection tests which field differences count as updated
func TestDiscoveryChangeDetection(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*models.ServerRecord)
		wantUpdated int
		wantStatus  int
	}{
		{
			name:        "Version change counts as updated",
			mutate:      func(c *models.ServerRecord) { c.Version = "1.1.0" },
			wantUpdated: 1,
		},
		{
			name:        "Description change counts as updated",
			mutate:      func(c *models.ServerRecord) { c.Description = "Changed" },
			wantUpdated: 1,
		},
		{
			name:        "Repository URL change counts as updated",
			mutate:      func(c *models.ServerRecord) { c.RepositoryURL = "https://example.com/x" },
			wantUpdated: 1,
		},
		{
			name: "Installed and status change is written but not counted",
			mutate: func(c *models.ServerRecord) {
				c.Installed = true
				c.Status = models.StatusInstalled
			},
			wantUpdated: 0,
			wantStatus:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			servers := newFakeServerRepo()
			audit := &fakeAuditRepo{}

			first := NewDiscoveryService(servers, audit,
				&stubScanner{name: "one", candidates: []*models.ServerRecord{candidate("demo-mcp", "1.0.0")}})
			if _, err := first.Run(context.Background()); err != nil {
				t.Fatalf("Seed Run() error = %v", err)
			}

			changed := candidate("demo-mcp", "1.0.0")
			tt.mutate(changed)
			second := NewDiscoveryService(servers, audit,
				&stubScanner{name: "one", candidates: []*models.ServerRecord{changed}})

			summary, err := second.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if summary.UpdatedServers != tt.wantUpdated {
				t.Errorf("UpdatedServers = %d, want %d", summary.UpdatedServers, tt.wantUpdated)
			}
			if servers.statuses != tt.wantStatus {
				t.Errorf("Status writes = %d, want %d", servers.statuses, tt.wantStatus)
			}

			if tt.wantStatus > 0 {
				stored, _ := servers.Get(context.Background(), "demo-mcp")
				if !stored.Installed || stored.Status != models.StatusInstalled {
					t.Errorf("Install state should be overwritten, got %+v", stored)
				}
			}
		})
	}
}

// TestDiscoveryAdapterFailureIsolation tests that a failing adapter does
// not abort its siblings
func TestDiscoveryAdapterFailureIsolation(t *testing.T) {
	servers := newFakeServerRepo()
	audit := &fakeAuditRepo{}
	d := NewDiscoveryService(servers, audit,
		&stubScanner{name: "bad", err: errors.New("source unreachable")},
		&stubScanner{name: "good", candidates: []*models.ServerRecord{candidate("demo-mcp", "1.0.0")}},
	)

	summary, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.NewServers != 1 {
		t.Errorf("Expected sibling adapter to contribute, got %+v", summary)
	}
	if summary.Sources["bad"] == "completed" {
		t.Error("Failed adapter should not be marked completed")
	}
	if summary.Sources["good"] != "completed" {
		t.Errorf("Good adapter should be marked completed, got %q", summary.Sources["good"])
	}
}

// TestDiscoveryItemFailureIsolation tests that one failing candidate does
// not stop the rest of the batch
func TestDiscoveryItemFailureIsolation(t *testing.T) {
	servers := newFakeServerRepo()
	servers.failFor["poison-mcp"] = true
	audit := &fakeAuditRepo{}
	d := NewDiscoveryService(servers, audit,
		&stubScanner{name: "one", candidates: []*models.ServerRecord{
			candidate("demo-mcp", "1.0.0"),
			candidate("poison-mcp", "1.0.0"),
			candidate("other-mcp", "1.0.0"),
		}},
	)

	summary, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.NewServers != 2 {
		t.Errorf("Expected 2 new servers despite one failure, got %d", summary.NewServers)
	}
	if _, ok := servers.records["other-mcp"]; !ok {
		t.Error("Candidates after the failing one should still be processed")
	}
}

// TestDiscoveryScanHistoryDetails tests the per-adapter breakdown in the
// audit entry
func TestDiscoveryScanHistoryDetails(t *testing.T) {
	servers := newFakeServerRepo()
	audit := &fakeAuditRepo{}
	d := NewDiscoveryService(servers, audit,
		&stubScanner{name: "one", candidates: []*models.ServerRecord{candidate("demo-mcp", "1.0.0")}},
		&stubScanner{name: "two", err: errors.New("boom")},
	)

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(audit.scans) != 1 {
		t.Fatalf("Expected one scan entry, got %d", len(audit.scans))
	}
	entry := audit.scans[0]
	if entry.ServersFound != 1 || entry.NewServers != 1 {
		t.Errorf("Unexpected scan entry counts: %+v", entry)
	}
	if entry.Details == nil {
		t.Fatal("Expected details payload")
	}
	sources, ok := entry.Details["sources"].(map[string]string)
	if !ok {
		t.Fatalf("Expected sources breakdown in details, got %T", entry.Details["sources"])
	}
	if sources["one"] != "completed" {
		t.Errorf("Adapter one should be completed, got %q", sources["one"])
	}
}
