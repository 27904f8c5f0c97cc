package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/imyashkale/mcpcatalog/internal/logger"
	"github.com/imyashkale/mcpcatalog/internal/models"
	"gopkg.in/yaml.v2"
)

// Directories never descended into during a filesystem scan.
var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	"vendor":       {},
	".cache":       {},
	"dist":         {},
}

// mcpConfigFiles are the dedicated MCP manifest file names, mapped to
// their serialization format.
var mcpConfigFiles = map[string]string{
	"mcp.json":        "json",
	".mcp.json":       "json",
	"mcp-config.json": "json",
	"mcp.yaml":        "yaml",
	"mcp.yml":         "yaml",
}

// FilesystemScanner discovers MCP server packages from local manifest
// files under a configured set of root paths.
type FilesystemScanner struct {
	roots    []string
	maxDepth int
}

// NewFilesystemScanner creates a filesystem scanner over the given roots.
// Roots may use the ~ home-directory shorthand.
func NewFilesystemScanner(roots []string, maxDepth int) *FilesystemScanner {
	return &FilesystemScanner{
		roots:    roots,
		maxDepth: maxDepth,
	}
}

// Name identifies this source in logs and audit details
func (s *FilesystemScanner) Name() string {
	return "filesystem"
}

// Scan walks each configured root up to the depth bound, parsing every
// package descriptor and MCP config file it finds. A file that fails to
// parse is logged and skipped; it never aborts the scan.
func (s *FilesystemScanner) Scan(ctx context.Context) ([]*models.ServerRecord, error) {
	candidates := make([]*models.ServerRecord, 0)

	for _, root := range s.roots {
		expanded, err := expandHome(root)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"root":  root,
				"error": err.Error(),
			}).Warn("Skipping scan root: cannot expand path")
			continue
		}

		if _, err := os.Stat(expanded); err != nil {
			logger.WithField("root", expanded).Debug("Skipping scan root: not accessible")
			continue
		}

		found, err := s.scanRoot(ctx, expanded)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}

	return candidates, nil
}

// scanRoot walks one root directory. Only context cancellation is
// returned as an error; everything else is item-level.
func (s *FilesystemScanner) scanRoot(ctx context.Context, root string) ([]*models.ServerRecord, error) {
	candidates := make([]*models.ServerRecord, 0)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.WithField("path", path).Debug("Skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			if depthOf(root, path) >= s.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		record := s.parseManifestFile(path, d.Name())
		if record != nil {
			candidates = append(candidates, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan of %s aborted: %w", root, err)
	}

	return candidates, nil
}

// parseManifestFile parses one manifest file and returns a candidate
// record, or nil when the file is not a manifest, fails to parse, or does
// not classify as an MCP server.
func (s *FilesystemScanner) parseManifestFile(path, name string) *models.ServerRecord {
	var (
		format        string
		isMCPConfig   bool
		isPackageJSON = name == "package.json"
	)

	if isPackageJSON {
		format = "json"
	} else if f, ok := mcpConfigFiles[name]; ok {
		format = f
		isMCPConfig = true
	} else {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		}).Warn("Failed to read manifest file, skipping")
		return nil
	}

	var manifest models.PackageManifest
	if format == "yaml" {
		err = yaml.Unmarshal(raw, &manifest)
	} else {
		err = json.Unmarshal(raw, &manifest)
	}
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		}).Warn("Failed to parse manifest file, skipping")
		return nil
	}

	// Dedicated MCP config files qualify by presence; package.json goes
	// through the classification predicate.
	if !isMCPConfig && !IsMCPServer(&manifest) {
		return nil
	}

	if manifest.Name == "" {
		// Fall back to the containing directory name for anonymous configs
		manifest.Name = filepath.Base(filepath.Dir(path))
	}

	packageManager := models.PackageManagerNPM
	installCommand := fmt.Sprintf("npm install -g %s", manifest.Name)
	if isMCPConfig {
		packageManager = models.PackageManagerConfig
		installCommand = ""
	}

	metadata := models.Metadata{
		"source":        "filesystem",
		"manifest_path": path,
	}
	if len(manifest.Keywords) > 0 {
		metadata["keywords"] = manifest.Keywords
	}
	if manifest.License != "" {
		metadata["license"] = manifest.License
	}
	if manifest.Homepage != "" {
		metadata["homepage"] = manifest.Homepage
	}

	return &models.ServerRecord{
		Name:           manifest.Name,
		Version:        manifest.Version,
		Description:    manifest.Description,
		Author:         manifest.Author.Name,
		RepositoryURL:  manifest.Repository.URL,
		PackageManager: packageManager,
		InstallCommand: installCommand,
		ConfigPath:     path,
		Status:         models.StatusDiscovered,
		Installed:      false,
		Metadata:       metadata,
	}
}

// depthOf returns how many levels below root a path sits.
func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// expandHome resolves the leading ~ shorthand against the current user's
// home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
