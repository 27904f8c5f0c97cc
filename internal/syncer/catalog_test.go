package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imyashkale/mcpcatalog/internal/models"
	"github.com/imyashkale/mcpcatalog/internal/repository"
)

// memServerRepo is an in-memory ServerRepository shared by the sync tests
type memServerRepo struct {
	records map[string]*models.ServerRecord
	listErr error
	writes  []string
}

func newMemServerRepo(servers ...*models.ServerRecord) *memServerRepo {
	r := &memServerRepo{records: make(map[string]*models.ServerRecord)}
	for _, server := range servers {
		copied := *server
		r.records[server.Name] = &copied
	}
	return r
}

func (r *memServerRepo) AddOrReplace(ctx context.Context, server *models.ServerRecord) error {
	copied := *server
	r.records[server.Name] = &copied
	r.writes = append(r.writes, server.Name)
	return nil
}

func (r *memServerRepo) Get(ctx context.Context, name string) (*models.ServerRecord, error) {
	server, ok := r.records[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *server
	return &copied, nil
}

func (r *memServerRepo) GetAll(ctx context.Context) ([]*models.ServerRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	all := make([]*models.ServerRecord, 0, len(r.records))
	for _, server := range r.records {
		copied := *server
		all = append(all, &copied)
	}
	return all, nil
}

func (r *memServerRepo) UpdateStatus(ctx context.Context, name, status string, installed bool) error {
	server, ok := r.records[name]
	if !ok {
		return repository.ErrNotFound
	}
	server.Status = status
	server.Installed = installed
	return nil
}

func (r *memServerRepo) Delete(ctx context.Context, name string) error {
	if _, ok := r.records[name]; !ok {
		return repository.ErrNotFound
	}
	delete(r.records, name)
	return nil
}

// memAuditRepo is an in-memory AuditRepository shared by the sync tests
type memAuditRepo struct {
	scans    []models.ScanHistoryEntry
	syncs    []models.SyncLogEntry
	nextSync int64
}

func (r *memAuditRepo) AddScanHistory(ctx context.Context, entry *models.ScanHistoryEntry) error {
	r.scans = append(r.scans, *entry)
	return nil
}

func (r *memAuditRepo) ListScanHistory(ctx context.Context, limit int) ([]models.ScanHistoryEntry, error) {
	return r.scans, nil
}

func (r *memAuditRepo) AddSyncLog(ctx context.Context, entry *models.SyncLogEntry) (int64, error) {
	r.nextSync++
	stored := *entry
	stored.ID = r.nextSync
	r.syncs = append(r.syncs, stored)
	return stored.ID, nil
}

func (r *memAuditRepo) UpdateSyncLog(ctx context.Context, id int64, status string, recordsSynced int, errorMessage string, details models.Metadata) error {
	for i := range r.syncs {
		if r.syncs[i].ID == id {
			r.syncs[i].Status = status
			r.syncs[i].RecordsSynced = recordsSynced
			r.syncs[i].ErrorMessage = errorMessage
			r.syncs[i].Details = details
			r.syncs[i].CompletedAt = time.Now().UTC()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memAuditRepo) ListSyncLogs(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	return r.syncs, nil
}

func (r *memAuditRepo) GetStats(ctx context.Context) (*models.CatalogStats, error) {
	return &models.CatalogStats{TotalServers: 0}, nil
}

// mockDynamoDBClient records calls and answers from canned data. When
// scanPages is set, Scan serves those pages in order instead of the
// idsByName lookup.
type mockDynamoDBClient struct {
	idsByName    map[string]string
	scanPages    []*dynamodb.ScanOutput
	scanCalls    int
	scanErr      error
	putErr       map[string]error
	describeErr  error
	putCalls     []*dynamodb.PutItemInput
	updateCalls  []*dynamodb.UpdateItemInput
	describeKeys []types.KeySchemaElement
}

func (m *mockDynamoDBClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.scanCalls++
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	if m.scanPages != nil {
		if m.scanCalls > len(m.scanPages) {
			return nil, fmt.Errorf("scan past the last canned page")
		}
		return m.scanPages[m.scanCalls-1], nil
	}
	nameAttr, ok := params.ExpressionAttributeValues[":name"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("scan without :name value")
	}
	id, ok := m.idsByName[nameAttr.Value]
	if !ok {
		return &dynamodb.ScanOutput{}, nil
	}
	return &dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{
			{"Id": &types.AttributeValueMemberS{Value: id}},
		},
	}, nil
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if name, ok := params.Item["Name"].(*types.AttributeValueMemberS); ok {
		if err := m.putErr[name.Value]; err != nil {
			return nil, err
		}
	}
	m.putCalls = append(m.putCalls, params)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoDBClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateCalls = append(m.updateCalls, params)
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamoDBClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if m.describeErr != nil {
		return nil, m.describeErr
	}
	keys := m.describeKeys
	if keys == nil {
		keys = []types.KeySchemaElement{
			{AttributeName: aws.String("Id"), KeyType: types.KeyTypeHash},
		}
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{KeySchema: keys},
	}, nil
}

func catalogRecord(name string) *models.ServerRecord {
	return &models.ServerRecord{
		Name:           name,
		Version:        "1.0.0",
		Description:    "Test server",
		Author:         "Jane Doe",
		PackageManager: models.PackageManagerNPM,
		InstallCommand: "npm install -g " + name,
		Status:         models.StatusDiscovered,
		Metadata:       models.Metadata{"source": "npm-registry", "stars": 42},
		LastUpdated:    time.Now().UTC(),
	}
}

// TestPushCreatesUnmatchedRecords tests that records with no external
// document by the same name are created
func TestPushCreatesUnmatchedRecords(t *testing.T) {
	client := &mockDynamoDBClient{idsByName: map[string]string{}}
	sync := NewCatalogSync(client, "catalog", newMemServerRepo(catalogRecord("demo-mcp")))

	count, err := sync.Push(context.Background())
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Push() = %d, want 1", count)
	}
	if len(client.putCalls) != 1 || len(client.updateCalls) != 0 {
		t.Fatalf("Expected 1 create and 0 updates, got %d/%d",
			len(client.putCalls), len(client.updateCalls))
	}

	item := client.putCalls[0].Item
	if _, ok := item["Id"].(*types.AttributeValueMemberS); !ok {
		t.Error("Created document must carry a generated string Id")
	}
	if name, ok := item["Name"].(*types.AttributeValueMemberS); !ok || name.Value != "demo-mcp" {
		t.Errorf("Unexpected Name attribute: %v", item["Name"])
	}
	if _, ok := item["Stars"]; !ok {
		t.Error("Stars metadata should be included when present")
	}
}

// TestPushUpdatesMatchedRecords tests that a name match results in an
// in-place update, never a duplicate document
func TestPushUpdatesMatchedRecords(t *testing.T) {
	client := &mockDynamoDBClient{idsByName: map[string]string{"demo-mcp": "ext-123"}}
	sync := NewCatalogSync(client, "catalog", newMemServerRepo(catalogRecord("demo-mcp")))

	count, err := sync.Push(context.Background())
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Push() = %d, want 1", count)
	}
	if len(client.putCalls) != 0 || len(client.updateCalls) != 1 {
		t.Fatalf("Expected 0 creates and 1 update, got %d/%d",
			len(client.putCalls), len(client.updateCalls))
	}

	update := client.updateCalls[0]
	key, ok := update.Key["Id"].(*types.AttributeValueMemberS)
	if !ok || key.Value != "ext-123" {
		t.Errorf("Update must target the matched external id, got %v", update.Key["Id"])
	}
	expr := aws.ToString(update.UpdateExpression)
	for _, forbidden := range []string{"Author", "PackageManager", "InstallCommand", "CreatedAt", "Source"} {
		for name, attr := range update.ExpressionAttributeNames {
			if attr == forbidden {
				t.Errorf("Update touches creation-only field %s via %s", forbidden, name)
			}
		}
		if containsWord(expr, forbidden) {
			t.Errorf("Update expression touches creation-only field %s: %s", forbidden, expr)
		}
	}
}

func containsWord(expr, word string) bool {
	for i := 0; i+len(word) <= len(expr); i++ {
		if expr[i:i+len(word)] != word {
			continue
		}
		beforeOK := i == 0 || !isIdentChar(expr[i-1])
		after := i + len(word)
		afterOK := after == len(expr) || !isIdentChar(expr[after])
		if beforeOK && afterOK {
			return true
		}
	}
	return false
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// TestPushFindsMatchAcrossPages tests that an empty filtered page with
// more pages behind it does not produce a duplicate create
func TestPushFindsMatchAcrossPages(t *testing.T) {
	client := &mockDynamoDBClient{
		scanPages: []*dynamodb.ScanOutput{
			{
				// Filter matched nothing on this page, but the table has more.
				LastEvaluatedKey: map[string]types.AttributeValue{
					"Id": &types.AttributeValueMemberS{Value: "page-boundary"},
				},
			},
			{
				Items: []map[string]types.AttributeValue{
					{"Id": &types.AttributeValueMemberS{Value: "ext-456"}},
				},
			},
		},
	}
	sync := NewCatalogSync(client, "catalog", newMemServerRepo(catalogRecord("demo-mcp")))

	count, err := sync.Push(context.Background())
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Push() = %d, want 1", count)
	}
	if client.scanCalls != 2 {
		t.Errorf("Expected the scan to follow LastEvaluatedKey, got %d calls", client.scanCalls)
	}
	if len(client.putCalls) != 0 || len(client.updateCalls) != 1 {
		t.Fatalf("Match on a later page must update, not create; got %d/%d",
			len(client.putCalls), len(client.updateCalls))
	}
	key, ok := client.updateCalls[0].Key["Id"].(*types.AttributeValueMemberS)
	if !ok || key.Value != "ext-456" {
		t.Errorf("Update must target the id from the later page, got %v", client.updateCalls[0].Key["Id"])
	}
}

// TestPushSkipsFailedRecords tests per-record failure isolation
func TestPushSkipsFailedRecords(t *testing.T) {
	client := &mockDynamoDBClient{
		idsByName: map[string]string{},
		putErr:    map[string]error{"poison-mcp": errors.New("throttled")},
	}
	sync := NewCatalogSync(client, "catalog", newMemServerRepo(
		catalogRecord("demo-mcp"),
		catalogRecord("poison-mcp"),
		catalogRecord("other-mcp"),
	))

	count, err := sync.Push(context.Background())
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Push() = %d, want 2 after skipping the failed record", count)
	}
}

// TestPushSchemaCheckIsBestEffort tests that an unreadable table schema
// does not block the push
func TestPushSchemaCheckIsBestEffort(t *testing.T) {
	client := &mockDynamoDBClient{
		idsByName:   map[string]string{},
		describeErr: errors.New("access denied"),
	}
	sync := NewCatalogSync(client, "catalog", newMemServerRepo(catalogRecord("demo-mcp")))

	count, err := sync.Push(context.Background())
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Push() = %d, want 1", count)
	}
}

// TestPushEmptyCatalog tests that an empty catalog syncs zero records
func TestPushEmptyCatalog(t *testing.T) {
	client := &mockDynamoDBClient{idsByName: map[string]string{}}
	sync := NewCatalogSync(client, "catalog", newMemServerRepo())

	count, err := sync.Push(context.Background())
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if count != 0 || len(client.putCalls) != 0 {
		t.Errorf("Expected no writes for empty catalog, got count=%d puts=%d",
			count, len(client.putCalls))
	}
}
