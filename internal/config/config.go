package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Logging configuration
	LogLevel string

	// Canonical store configuration
	DatabasePath string

	// Filesystem scan configuration
	ScanPaths []string
	ScanDepth int

	// npm configuration
	NPMRegistryURL string

	// GitHub search configuration (token optional; unauthenticated
	// requests hit lower rate limits)
	GitHubToken string

	// AWS configuration
	AWSRegion string

	// DynamoDB catalog sync configuration (empty disables catalog sync)
	CatalogTableName string

	// S3 backup configuration (empty bucket disables backups)
	BackupBucket    string
	BackupKeyPrefix string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string

	// API authentication (optional; empty disables auth)
	APIToken string
}

// New creates a new Config instance by loading environment variables
// from .env file (if present) and OS environment.
// OS environment variables take precedence over .env file values.
// Panics if required configuration values are missing or invalid.
func New() *Config {
	// Load .env file from project root (silently ignore if not found)
	envPath := filepath.Join(".", ".env")
	_ = godotenv.Load(envPath)

	cfg := &Config{
		Port:     getEnvOrDefault("PORT", "3001"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),

		DatabasePath: getEnvOrDefault("DATABASE_PATH", "mcp_catalog.db"),

		ScanPaths: splitPaths(getEnvOrDefault("SCAN_PATHS", "~/projects,~/.config/mcp")),
		ScanDepth: getEnvIntOrDefault("SCAN_DEPTH", 3),

		NPMRegistryURL: getEnvOrDefault("NPM_REGISTRY_URL", "https://registry.npmjs.org"),
		GitHubToken:    os.Getenv("GITHUB_TOKEN"),

		AWSRegion:        getEnvOrDefault("AWS_REGION", "us-east-1"),
		CatalogTableName: os.Getenv("CATALOG_TABLE_NAME"),

		BackupBucket:    os.Getenv("BACKUP_BUCKET"),
		BackupKeyPrefix: getEnvOrDefault("BACKUP_KEY_PREFIX", "mcp-backups"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),

		APIToken: os.Getenv("API_TOKEN"),
	}

	cfg.validate()

	return cfg
}

// CatalogSyncEnabled reports whether the DynamoDB catalog sync target is configured.
func (c *Config) CatalogSyncEnabled() bool {
	return c.CatalogTableName != ""
}

// BackupEnabled reports whether the S3 backup target is configured.
func (c *Config) BackupEnabled() bool {
	return c.BackupBucket != ""
}

// validate checks that all required configuration values are present and valid
func (c *Config) validate() {
	if c.DatabasePath == "" {
		panic("DATABASE_PATH must not be empty")
	}
	if len(c.ScanPaths) == 0 {
		panic("SCAN_PATHS must contain at least one path")
	}
	if c.ScanDepth < 1 {
		panic(fmt.Sprintf("SCAN_DEPTH must be at least 1 (got %d)", c.ScanDepth))
	}
	// S3 static credentials come as a pair when a custom endpoint is used
	if c.S3Endpoint != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		panic("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set")
	}
}

// splitPaths parses a comma-separated path list, dropping empty entries
func splitPaths(raw string) []string {
	parts := strings.Split(raw, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	return paths
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns an integer environment variable or a default value
func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
