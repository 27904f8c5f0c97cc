package syncer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/imyashkale/mcpcatalog/internal/logger"
	"github.com/imyashkale/mcpcatalog/internal/models"
	"github.com/imyashkale/mcpcatalog/internal/repository"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the catalog
// sync, extracted for testing.
type DynamoDBAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// CatalogSync pushes the canonical catalog into an external DynamoDB
// document table. The table has its own Id key with no foreign-key
// relationship to the local store, so each record is matched by
// Name equality before deciding between create and update.
type CatalogSync struct {
	client    DynamoDBAPI
	tableName string
	servers   repository.ServerRepository
}

// NewCatalogSync creates a catalog sync adapter against the given table.
func NewCatalogSync(client DynamoDBAPI, tableName string, servers repository.ServerRepository) *CatalogSync {
	return &CatalogSync{
		client:    client,
		tableName: tableName,
		servers:   servers,
	}
}

// Push reconciles every canonical record against the external table via
// create-or-update. Per-record failures are logged and skipped; the
// returned count covers only the records that were successfully pushed.
func (c *CatalogSync) Push(ctx context.Context) (int, error) {
	c.verifySchema(ctx)

	servers, err := c.servers.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load catalog: %w", err)
	}

	synced := 0
	for _, server := range servers {
		if err := c.pushRecord(ctx, server); err != nil {
			if ctx.Err() != nil {
				return synced, ctx.Err()
			}
			logger.WithFields(map[string]interface{}{
				"name":  server.Name,
				"error": err.Error(),
			}).Error("Failed to sync record to catalog table, skipping")
			continue
		}
		synced++
	}

	logger.WithFields(map[string]interface{}{
		"table":  c.tableName,
		"synced": synced,
		"total":  len(servers),
	}).Info("Catalog sync completed")

	return synced, nil
}

// verifySchema checks, best effort, that the external table is keyed the
// way we expect. A mismatch is logged as a warning only; this system does
// not migrate external schema.
func (c *CatalogSync) verifySchema(ctx context.Context) {
	out, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.tableName),
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"table": c.tableName,
			"error": err.Error(),
		}).Warn("Could not verify catalog table schema")
		return
	}

	for _, key := range out.Table.KeySchema {
		if key.KeyType == types.KeyTypeHash {
			if aws.ToString(key.AttributeName) != "Id" {
				logger.WithFields(map[string]interface{}{
					"table":    c.tableName,
					"hash_key": aws.ToString(key.AttributeName),
				}).Warn("Catalog table hash key is not 'Id'; sync may misbehave")
			}
			return
		}
	}
}

// pushRecord creates or updates the external document for one record.
func (c *CatalogSync) pushRecord(ctx context.Context, server *models.ServerRecord) error {
	externalID, err := c.findByName(ctx, server.Name)
	if err != nil {
		return err
	}

	if externalID == "" {
		return c.createDocument(ctx, server)
	}
	return c.updateDocument(ctx, externalID, server)
}

// findByName looks up the external document id whose Name attribute
// equals the record's name. Returns "" when no document matches. The
// filter is applied after pagination server-side, so a page can come back
// empty while a match sits on a later one; every page is walked.
func (c *CatalogSync) findByName(ctx context.Context, name string) (string, error) {
	var startKey map[string]types.AttributeValue

	for {
		out, err := c.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(c.tableName),
			FilterExpression: aws.String("#n = :name"),
			ExpressionAttributeNames: map[string]string{
				"#n": "Name",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":name": &types.AttributeValueMemberS{Value: name},
			},
			ProjectionExpression: aws.String("Id"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return "", fmt.Errorf("failed to query catalog table by name: %w", err)
		}

		if len(out.Items) > 0 {
			id, ok := out.Items[0]["Id"].(*types.AttributeValueMemberS)
			if !ok {
				return "", fmt.Errorf("catalog document for %s has no string Id", name)
			}
			return id.Value, nil
		}

		if len(out.LastEvaluatedKey) == 0 {
			return "", nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// createDocument inserts a new external document with the full field set.
func (c *CatalogSync) createDocument(ctx context.Context, server *models.ServerRecord) error {
	fields := map[string]interface{}{
		"Id":             uuid.New().String(),
		"Name":           server.Name,
		"Version":        server.Version,
		"Description":    server.Description,
		"Author":         server.Author,
		"PackageManager": server.PackageManager,
		"InstallCommand": server.InstallCommand,
		"Status":         server.Status,
		"Installed":      server.Installed,
		"Source":         server.Metadata.Source(),
		"LastUpdated":    server.LastUpdated.Unix(),
		"CreatedAt":      time.Now().UTC().Unix(),
	}
	if server.RepositoryURL != "" {
		fields["RepositoryURL"] = server.RepositoryURL
	}
	if stars, ok := server.Metadata.Stars(); ok {
		fields["Stars"] = stars
	}

	item, err := attributevalue.MarshalMap(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog document: %w", err)
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to create catalog document: %w", err)
	}
	return nil
}

// updateDocument updates the fixed field set on an existing external
// document. Creation-only fields (Author, PackageManager, InstallCommand,
// Source, CreatedAt) are never touched.
func (c *CatalogSync) updateDocument(ctx context.Context, externalID string, server *models.ServerRecord) error {
	updateExpr := "SET #v = :version, #d = :desc, #s = :status, Installed = :installed, LastUpdated = :updated"
	names := map[string]string{
		"#v": "Version",
		"#d": "Description",
		"#s": "Status",
	}
	values := map[string]types.AttributeValue{
		":version":   &types.AttributeValueMemberS{Value: server.Version},
		":desc":      &types.AttributeValueMemberS{Value: server.Description},
		":status":    &types.AttributeValueMemberS{Value: server.Status},
		":installed": &types.AttributeValueMemberBOOL{Value: server.Installed},
		":updated":   &types.AttributeValueMemberN{Value: strconv.FormatInt(server.LastUpdated.Unix(), 10)},
	}

	if server.RepositoryURL != "" {
		updateExpr += ", RepositoryURL = :repo"
		values[":repo"] = &types.AttributeValueMemberS{Value: server.RepositoryURL}
	}
	if stars, ok := server.Metadata.Stars(); ok {
		updateExpr += ", Stars = :stars"
		values[":stars"] = &types.AttributeValueMemberN{Value: strconv.Itoa(stars)}
	}

	_, err := c.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"Id": &types.AttributeValueMemberS{Value: externalID},
		},
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("failed to update catalog document: %w", err)
	}
	return nil
}
