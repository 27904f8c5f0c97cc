package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imyashkale/mcpcatalog/internal/logger"
	"github.com/imyashkale/mcpcatalog/internal/models"
	"github.com/imyashkale/mcpcatalog/internal/repository"
)

// DiscoveryService runs every source adapter in sequence and reconciles
// their candidates against the canonical store. One run produces one
// scan history entry.
type DiscoveryService struct {
	servers  repository.ServerRepository
	audit    repository.AuditRepository
	scanners []Scanner
}

// NewDiscoveryService creates the discovery orchestrator over the given
// adapters, which run in the order provided.
func NewDiscoveryService(servers repository.ServerRepository, audit repository.AuditRepository, scanners ...Scanner) *DiscoveryService {
	return &DiscoveryService{
		servers:  servers,
		audit:    audit,
		scanners: scanners,
	}
}

// Run executes one full discovery pass. Adapter failures are logged and
// contribute zero candidates without stopping the other adapters; only a
// cancelled context or an audit write failure aborts the run, and an
// aborted run is still recorded as a failed scan entry.
func (d *DiscoveryService) Run(ctx context.Context) (*models.ScanSummary, error) {
	start := time.Now()
	summary := &models.ScanSummary{
		Sources:      make(map[string]string),
		SourceCounts: make(map[string]int),
	}

	logger.WithField("adapters", len(d.scanners)).Info("Starting discovery run")

	for _, sc := range d.scanners {
		candidates, err := sc.Scan(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, d.recordFailure(ctx, summary, start, ctx.Err())
			}
			logger.WithFields(map[string]interface{}{
				"adapter": sc.Name(),
				"error":   err.Error(),
			}).Error("Source adapter failed")
			summary.Sources[sc.Name()] = "failed: " + err.Error()
			continue
		}

		summary.Sources[sc.Name()] = "completed"
		summary.SourceCounts[sc.Name()] = len(candidates)

		for _, candidate := range candidates {
			if err := d.reconcile(ctx, candidate, summary); err != nil {
				if ctx.Err() != nil {
					return nil, d.recordFailure(ctx, summary, start, ctx.Err())
				}
				logger.WithFields(map[string]interface{}{
					"adapter": sc.Name(),
					"name":    candidate.Name,
					"error":   err.Error(),
				}).Error("Failed to reconcile candidate, skipping")
			}
		}
	}

	summary.Duration = time.Since(start).Seconds()

	entry := &models.ScanHistoryEntry{
		ScanType:       "full",
		ServersFound:   summary.ServersFound,
		NewServers:     summary.NewServers,
		UpdatedServers: summary.UpdatedServers,
		ScanDuration:   summary.Duration,
		Status:         models.AuditCompleted,
		Details:        scanDetails(summary),
	}
	if err := d.audit.AddScanHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record scan history: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"found":   summary.ServersFound,
		"new":     summary.NewServers,
		"updated": summary.UpdatedServers,
	}).Info("Discovery run completed")

	return summary, nil
}

// reconcile classifies one candidate as new, updated or unchanged against
// the canonical store and applies the corresponding write.
func (d *DiscoveryService) reconcile(ctx context.Context, candidate *models.ServerRecord, summary *models.ScanSummary) error {
	existing, err := d.servers.Get(ctx, candidate.Name)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := d.servers.AddOrReplace(ctx, candidate); err != nil {
			return err
		}
		summary.NewServers++
		summary.ServersFound++
		return nil
	}

	if !existing.DescriptiveFieldsEqual(candidate) {
		// Full-row replace; the store preserves created_at.
		if err := d.servers.AddOrReplace(ctx, candidate); err != nil {
			return err
		}
		summary.UpdatedServers++
		summary.ServersFound++
		return nil
	}

	// Install state and status may be overwritten without counting the
	// record as updated. The installed adapter relies on this to assert
	// install state unconditionally.
	if existing.Installed != candidate.Installed || existing.Status != candidate.Status {
		if err := d.servers.UpdateStatus(ctx, candidate.Name, candidate.Status, candidate.Installed); err != nil {
			return err
		}
	}

	summary.ServersFound++
	return nil
}

// recordFailure writes a failed scan entry with the duration measured up
// to the failure point, then returns the original error.
func (d *DiscoveryService) recordFailure(ctx context.Context, summary *models.ScanSummary, start time.Time, cause error) error {
	summary.Duration = time.Since(start).Seconds()

	details := scanDetails(summary)
	details["error"] = cause.Error()

	entry := &models.ScanHistoryEntry{
		ScanType:       "full",
		ServersFound:   summary.ServersFound,
		NewServers:     summary.NewServers,
		UpdatedServers: summary.UpdatedServers,
		ScanDuration:   summary.Duration,
		Status:         models.AuditFailed,
		Details:        details,
	}

	// The run context may already be cancelled; the audit write still has
	// to land.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.audit.AddScanHistory(writeCtx, entry); err != nil {
		logger.WithField("error", err.Error()).Error("Failed to record failed scan entry")
	}

	return cause
}

func scanDetails(summary *models.ScanSummary) models.Metadata {
	return models.Metadata{
		"sources":       summary.Sources,
		"source_counts": summary.SourceCounts,
	}
}
