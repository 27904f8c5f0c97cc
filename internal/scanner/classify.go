package scanner

import (
	"strings"

	"github.com/imyashkale/mcpcatalog/internal/models"
)

// marker is the substring that tags MCP server packages in names and
// descriptions.
const marker = "mcp"

// mcpDependencyPrefix matches the official MCP SDK packages.
const mcpDependencyPrefix = "@modelcontextprotocol/"

// mcpKeywords is the fixed keyword set checked against a manifest's
// keyword list.
var mcpKeywords = map[string]struct{}{
	"mcp":                    {},
	"mcp-server":             {},
	"model-context-protocol": {},
	"modelcontextprotocol":   {},
	"claude-mcp":             {},
	"anthropic":              {},
}

// IsMCPServer reports whether a parsed manifest qualifies as an MCP server
// package. The predicate is a deliberately broad OR: false positives are
// absorbed by downstream dedup, but a false negative loses the package
// until the next re-scan.
func IsMCPServer(m *models.PackageManifest) bool {
	if m == nil {
		return false
	}

	if strings.Contains(strings.ToLower(m.Name), marker) {
		return true
	}

	for _, keyword := range m.Keywords {
		if _, ok := mcpKeywords[strings.ToLower(keyword)]; ok {
			return true
		}
	}

	if strings.Contains(strings.ToLower(m.Description), marker) {
		return true
	}

	for _, dep := range m.AllDependencyNames() {
		if dep == marker || strings.HasPrefix(dep, mcpDependencyPrefix) {
			return true
		}
	}

	return false
}
