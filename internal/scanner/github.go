package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imyashkale/mcpcatalog/internal/logger"
	"github.com/imyashkale/mcpcatalog/internal/models"
)

// Fixed search queries issued against the GitHub repository search API.
var githubSearchQueries = []string{
	"mcp-server in:name",
	"model-context-protocol in:name,description,topics",
	"\"mcp server\" in:description",
}

const (
	// githubSearchPerPage bounds results per query.
	githubSearchPerPage = 30

	// githubQueryDelay is the fixed inter-query pause that keeps us
	// clear of GitHub's secondary rate limits.
	githubQueryDelay = 1 * time.Second

	githubAPIBaseURL = "https://api.github.com"
	githubRawBaseURL = "https://raw.githubusercontent.com"
)

// GitHubScanner discovers MCP server repositories through the GitHub
// search API. A bearer token is optional but raises the rate limits.
type GitHubScanner struct {
	token      string
	client     *http.Client
	delay      time.Duration
	apiBaseURL string
	rawBaseURL string
}

// NewGitHubScanner creates a GitHub repository scanner against the public
// GitHub hosts.
func NewGitHubScanner(token string) *GitHubScanner {
	return &GitHubScanner{
		token:      token,
		client:     &http.Client{Timeout: 10 * time.Second},
		delay:      githubQueryDelay,
		apiBaseURL: githubAPIBaseURL,
		rawBaseURL: githubRawBaseURL,
	}
}

// Name identifies this source in logs and audit details
func (s *GitHubScanner) Name() string {
	return "github"
}

// githubRepo mirrors the fields we consume from the search API.
type githubRepo struct {
	FullName    string `json:"full_name"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Stars       int    `json:"stargazers_count"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
	License struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
}

// errRateLimited signals a 403/429-class response from GitHub.
var errRateLimited = fmt.Errorf("github rate limit hit")

// Scan issues each fixed query in order with the configured delay between
// them. When GitHub signals rate-limiting, the remaining queries are
// abandoned and whatever was collected so far is returned; the scan is
// not treated as failed.
func (s *GitHubScanner) Scan(ctx context.Context) ([]*models.ServerRecord, error) {
	candidates := make([]*models.ServerRecord, 0)
	seen := make(map[string]struct{})

	for i, query := range githubSearchQueries {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		repos, err := s.search(ctx, query)
		if err == errRateLimited {
			logger.WithField("query", query).Warn("GitHub rate limit hit, aborting remaining queries")
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.WithFields(map[string]interface{}{
				"query": query,
				"error": err.Error(),
			}).Warn("GitHub search failed, skipping query")
			continue
		}

		for _, repo := range repos {
			if _, dup := seen[repo.FullName]; dup {
				continue
			}
			seen[repo.FullName] = struct{}{}

			record := s.classifyRepo(ctx, &repo)
			if record != nil {
				candidates = append(candidates, record)
			}
		}
	}

	return candidates, nil
}

// search queries the repository search endpoint for one query.
func (s *GitHubScanner) search(ctx context.Context, query string) ([]githubRepo, error) {
	searchURL := fmt.Sprintf("%s/search/repositories?q=%s&per_page=%d&sort=stars",
		s.apiBaseURL, url.QueryEscape(query), githubSearchPerPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github returned status %d", resp.StatusCode)
	}

	var result struct {
		Items []githubRepo `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return result.Items, nil
}

// classifyRepo decides whether a repository is an MCP server, preferring
// its package.json when we can fetch one and falling back to a
// name/description heuristic when we cannot.
func (s *GitHubScanner) classifyRepo(ctx context.Context, repo *githubRepo) *models.ServerRecord {
	manifest, err := s.fetchManifest(ctx, repo.FullName)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  repo.FullName,
			"error": err.Error(),
		}).Debug("Could not fetch repository manifest, using heuristic")

		// Heuristic fallback: name or description carries the marker.
		if !strings.Contains(strings.ToLower(repo.Name), marker) &&
			!strings.Contains(strings.ToLower(repo.Description), marker) {
			return nil
		}
		manifest = &models.PackageManifest{
			Name:        repo.Name,
			Description: repo.Description,
		}
	} else if !IsMCPServer(manifest) {
		return nil
	}

	description := manifest.Description
	if description == "" {
		description = repo.Description
	}

	metadata := models.Metadata{
		"source":    "github",
		"stars":     repo.Stars,
		"full_name": repo.FullName,
	}
	if repo.License.SPDXID != "" && repo.License.SPDXID != "NOASSERTION" {
		metadata["license"] = repo.License.SPDXID
	}

	return &models.ServerRecord{
		Name:           repo.Name,
		Version:        manifest.Version,
		Description:    description,
		Author:         repo.Owner.Login,
		RepositoryURL:  repo.HTMLURL,
		PackageManager: models.PackageManagerGit,
		InstallCommand: fmt.Sprintf("git clone %s", repo.HTMLURL),
		Status:         models.StatusDiscovered,
		Installed:      false,
		Metadata:       metadata,
	}
}

// fetchManifest downloads a repository's package.json from the raw
// content host.
func (s *GitHubScanner) fetchManifest(ctx context.Context, fullName string) (*models.PackageManifest, error) {
	rawURL := fmt.Sprintf("%s/%s/HEAD/package.json", s.rawBaseURL, fullName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("manifest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest fetch returned status %d", resp.StatusCode)
	}

	var manifest models.PackageManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}
