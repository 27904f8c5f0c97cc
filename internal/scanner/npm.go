package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/imyashkale/mcpcatalog/internal/logger"
	"github.com/imyashkale/mcpcatalog/internal/models"
)

// Fixed search terms issued against the registry search interface.
var npmSearchTerms = []string{
	"mcp-server",
	"model-context-protocol",
	"mcp",
}

// npmSearchLimit bounds the result count per search term.
const npmSearchLimit = 50

// NPMRegistryScanner discovers MCP server packages through the npm
// registry search interface.
type NPMRegistryScanner struct {
	registryURL string
	client      *http.Client
}

// NewNPMRegistryScanner creates an npm registry scanner against the given
// registry base URL.
func NewNPMRegistryScanner(registryURL string) *NPMRegistryScanner {
	return &NPMRegistryScanner{
		registryURL: registryURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies this source in logs and audit details
func (s *NPMRegistryScanner) Name() string {
	return "npm-registry"
}

// npmSearchResult mirrors the registry's /-/v1/search response shape.
type npmSearchResult struct {
	Objects []struct {
		Package npmSearchPackage `json:"package"`
	} `json:"objects"`
}

type npmSearchPackage struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Author      struct {
		Name string `json:"name"`
	} `json:"author"`
	Publisher struct {
		Username string `json:"username"`
	} `json:"publisher"`
	Links struct {
		Repository string `json:"repository"`
		Homepage   string `json:"homepage"`
	} `json:"links"`
}

// Scan issues each fixed search term and classifies every hit. A failing
// term is logged and skipped; the remaining terms still run.
func (s *NPMRegistryScanner) Scan(ctx context.Context) ([]*models.ServerRecord, error) {
	candidates := make([]*models.ServerRecord, 0)
	seen := make(map[string]struct{})

	for _, term := range npmSearchTerms {
		hits, err := s.search(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.WithFields(map[string]interface{}{
				"term":  term,
				"error": err.Error(),
			}).Warn("npm registry search failed, skipping term")
			continue
		}

		for _, hit := range hits {
			if _, dup := seen[hit.Name]; dup {
				continue
			}
			seen[hit.Name] = struct{}{}

			manifest := models.PackageManifest{
				Name:        hit.Name,
				Version:     hit.Version,
				Description: hit.Description,
				Keywords:    hit.Keywords,
			}
			if !IsMCPServer(&manifest) {
				continue
			}

			candidates = append(candidates, s.toRecord(&hit))
		}
	}

	return candidates, nil
}

// search queries the registry search endpoint for one term.
func (s *NPMRegistryScanner) search(ctx context.Context, term string) ([]npmSearchPackage, error) {
	searchURL := fmt.Sprintf("%s/-/v1/search?text=%s&size=%d",
		s.registryURL, url.QueryEscape(term), npmSearchLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var result npmSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	packages := make([]npmSearchPackage, 0, len(result.Objects))
	for _, obj := range result.Objects {
		packages = append(packages, obj.Package)
	}
	return packages, nil
}

func (s *NPMRegistryScanner) toRecord(hit *npmSearchPackage) *models.ServerRecord {
	author := hit.Author.Name
	if author == "" {
		author = hit.Publisher.Username
	}

	metadata := models.Metadata{
		"source": "npm-registry",
	}
	if len(hit.Keywords) > 0 {
		metadata["keywords"] = hit.Keywords
	}
	if hit.Links.Homepage != "" {
		metadata["homepage"] = hit.Links.Homepage
	}

	return &models.ServerRecord{
		Name:           hit.Name,
		Version:        hit.Version,
		Description:    hit.Description,
		Author:         author,
		RepositoryURL:  hit.Links.Repository,
		PackageManager: models.PackageManagerNPM,
		InstallCommand: fmt.Sprintf("npm install -g %s", hit.Name),
		Status:         models.StatusDiscovered,
		Installed:      false,
		Metadata:       metadata,
	}
}
