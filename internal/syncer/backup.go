package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/imyashkale/mcpcatalog/internal/logger"
	"github.com/imyashkale/mcpcatalog/internal/models"
	"github.com/imyashkale/mcpcatalog/internal/repository"
)

// auditExportLimit bounds how much audit history a snapshot carries.
const auditExportLimit = 100

// backupListLimit bounds how many objects a backup listing returns.
const backupListLimit = 100

// S3API is the subset of the S3 client used by the backup service,
// extracted for testing.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// BackupService writes full-catalog snapshots to an object store and
// restores the catalog from the most recent one.
type BackupService struct {
	client    S3API
	bucket    string
	keyPrefix string
	storePath string
	servers   repository.ServerRepository
	audit     repository.AuditRepository
}

// NewBackupService creates a backup service over the given bucket.
// storePath is the location of the raw store file uploaded alongside each
// structured snapshot.
func NewBackupService(client S3API, bucket, keyPrefix, storePath string, servers repository.ServerRepository, audit repository.AuditRepository) *BackupService {
	return &BackupService{
		client:    client,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		storePath: storePath,
		servers:   servers,
		audit:     audit,
	}
}

// Backup serializes the entire catalog (records, both audit logs, stats)
// to a timestamp-named object and uploads a raw copy of the store file
// next to it. Returns the number of records included in the snapshot.
func (b *BackupService) Backup(ctx context.Context) (int, error) {
	servers, err := b.servers.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load catalog: %w", err)
	}
	scans, err := b.audit.ListScanHistory(ctx, auditExportLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to load scan history: %w", err)
	}
	syncs, err := b.audit.ListSyncLogs(ctx, auditExportLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to load sync logs: %w", err)
	}
	stats, err := b.audit.GetStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load stats: %w", err)
	}

	snapshot := models.CatalogSnapshot{
		ExportDate:  time.Now().UTC(),
		Version:     models.SnapshotVersion,
		Stats:       *stats,
		Servers:     servers,
		ScanHistory: scans,
		SyncLogs:    syncs,
	}

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Object keys cannot carry colons on every S3-compatible store, so
	// the ISO timestamp is sanitized.
	stamp := strings.ReplaceAll(snapshot.ExportDate.Format(time.RFC3339), ":", "-")

	snapshotKey := fmt.Sprintf("%s/%s.json", b.keyPrefix, stamp)
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(snapshotKey),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload snapshot: %w", err)
	}

	rawStore, err := os.ReadFile(b.storePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read store file: %w", err)
	}
	databaseKey := fmt.Sprintf("%s/database/%s.db", b.keyPrefix, stamp)
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(databaseKey),
		Body:        bytes.NewReader(rawStore),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload store file: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"snapshot_key": snapshotKey,
		"database_key": databaseKey,
		"servers":      len(servers),
	}).Info("Backup uploaded")

	return len(servers), nil
}

// List enumerates backup objects under the key prefix, annotating each as
// a structured snapshot or a raw store copy by file extension.
func (b *BackupService) List(ctx context.Context) ([]models.BackupObject, error) {
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(b.keyPrefix + "/"),
		MaxKeys: aws.Int32(backupListLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	objects := make([]models.BackupObject, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		kind := models.BackupKindDatabase
		if strings.HasSuffix(key, ".json") {
			kind = models.BackupKindSnapshot
		}
		objects = append(objects, models.BackupObject{
			Key:          key,
			Kind:         kind,
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}
	return objects, nil
}

// Restore downloads the most recent structured snapshot and imports every
// contained record through the same upsert path as live discovery, so a
// restore is idempotent rather than a raw table overwrite. Returns the
// number of records successfully imported.
func (b *BackupService) Restore(ctx context.Context) (int, error) {
	objects, err := b.List(ctx)
	if err != nil {
		return 0, err
	}

	latest := latestSnapshot(objects)
	if latest == nil {
		return 0, fmt.Errorf("no snapshot found under %s/", b.keyPrefix)
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(latest.Key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download snapshot %s: %w", latest.Key, err)
	}
	defer out.Body.Close()

	var snapshot models.CatalogSnapshot
	if err := json.NewDecoder(out.Body).Decode(&snapshot); err != nil {
		return 0, fmt.Errorf("failed to parse snapshot %s: %w", latest.Key, err)
	}

	imported := 0
	for _, server := range snapshot.Servers {
		if err := b.servers.AddOrReplace(ctx, server); err != nil {
			if ctx.Err() != nil {
				return imported, ctx.Err()
			}
			logger.WithFields(map[string]interface{}{
				"name":  server.Name,
				"error": err.Error(),
			}).Error("Failed to import record from snapshot, skipping")
			continue
		}
		imported++
	}

	logger.WithFields(map[string]interface{}{
		"snapshot_key": latest.Key,
		"imported":     imported,
		"total":        len(snapshot.Servers),
	}).Info("Restore completed")

	return imported, nil
}

// latestSnapshot selects the structured snapshot with the most recent
// modification time. Equal timestamps are broken by key comparison so the
// choice stays deterministic.
func latestSnapshot(objects []models.BackupObject) *models.BackupObject {
	var latest *models.BackupObject
	for i := range objects {
		obj := &objects[i]
		if obj.Kind != models.BackupKindSnapshot {
			continue
		}
		if latest == nil ||
			obj.LastModified.After(latest.LastModified) ||
			(obj.LastModified.Equal(latest.LastModified) && obj.Key > latest.Key) {
			latest = obj
		}
	}
	return latest
}
