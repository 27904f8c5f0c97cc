package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/imyashkale/mcpcatalog/internal/logger"
	"github.com/imyashkale/mcpcatalog/internal/models"
)

// npmListTimeout bounds the wait on the local package manager invocation.
const npmListTimeout = 30 * time.Second

// InstalledScanner enumerates globally installed npm packages and emits
// the ones that look like MCP servers. Its candidates always assert
// installed state, even when the existing catalog record disagrees.
type InstalledScanner struct {
	registryURL string
	client      *http.Client
}

// NewInstalledScanner creates a scanner over the local npm global installs.
func NewInstalledScanner(registryURL string) *InstalledScanner {
	return &InstalledScanner{
		registryURL: registryURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies this source in logs and audit details
func (s *InstalledScanner) Name() string {
	return "installed"
}

// npmListOutput mirrors `npm ls -g --json` output.
type npmListOutput struct {
	Dependencies map[string]struct {
		Version string `json:"version"`
	} `json:"dependencies"`
}

// Scan lists global packages, filters by name pattern, and re-parses each
// candidate's registry manifest for descriptive fields. A package whose
// manifest cannot be fetched still qualifies with what the local listing
// provides.
func (s *InstalledScanner) Scan(ctx context.Context) ([]*models.ServerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, npmListTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "npm", "ls", "-g", "--json", "--depth=0").Output()
	// npm exits non-zero on peer dependency problems while still printing
	// a usable listing; only a missing payload is fatal.
	if len(out) == 0 {
		if err != nil {
			return nil, fmt.Errorf("npm ls failed: %w", err)
		}
		return nil, fmt.Errorf("npm ls produced no output")
	}

	var listing npmListOutput
	if err := json.Unmarshal(out, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse npm ls output: %w", err)
	}

	candidates := make([]*models.ServerRecord, 0)
	for name, info := range listing.Dependencies {
		if !matchesInstalledPattern(name) {
			continue
		}

		record := &models.ServerRecord{
			Name:           name,
			Version:        info.Version,
			PackageManager: models.PackageManagerNPM,
			InstallCommand: fmt.Sprintf("npm install -g %s", name),
			Status:         models.StatusInstalled,
			Installed:      true,
			Metadata: models.Metadata{
				"source": "npm-global",
			},
		}

		manifest, err := s.fetchRegistryManifest(ctx, name)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"package": name,
				"error":   err.Error(),
			}).Warn("Could not fetch registry manifest for installed package")
		} else {
			record.Description = manifest.Description
			record.Author = manifest.Author.Name
			record.RepositoryURL = manifest.Repository.URL
			if len(manifest.Keywords) > 0 {
				record.Metadata["keywords"] = manifest.Keywords
			}
		}

		candidates = append(candidates, record)
	}

	return candidates, nil
}

// matchesInstalledPattern is the name filter applied to global packages.
func matchesInstalledPattern(name string) bool {
	return strings.Contains(strings.ToLower(name), marker) ||
		strings.HasPrefix(name, mcpDependencyPrefix)
}

// fetchRegistryManifest retrieves the latest published manifest for a
// package from the registry.
func (s *InstalledScanner) fetchRegistryManifest(ctx context.Context, name string) (*models.PackageManifest, error) {
	manifestURL := fmt.Sprintf("%s/%s/latest", s.registryURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("manifest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var manifest models.PackageManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}
