package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Backend names a store implementation.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

type Config struct {
	DatabaseURL  string // FLOWBOARD_DATABASE_URL (postgres; selects the postgres backend when set)
	SQLitePath   string // FLOWBOARD_SQLITE_PATH (used when no database URL is set; empty = ~/.flowboard/flowboard.db)
	GRPCAddr     string // FLOWBOARD_GRPC_ADDR (default ":9090"; empty disables gRPC)
	HTTPAddr     string // FLOWBOARD_HTTP_ADDR (default ":8080")
	NATSURL      string // FLOWBOARD_NATS_URL (optional, empty = no events)
	AuthToken    string // FLOWBOARD_AUTH_TOKEN (optional, empty = auth disabled)
	SettingsFile string // FLOWBOARD_SETTINGS_FILE (optional TOML overlay on stored settings)

	// Sync settings
	SyncInterval   time.Duration // FLOWBOARD_SYNC_INTERVAL (default 0 = disabled)
	SyncS3Bucket   string        // FLOWBOARD_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // FLOWBOARD_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // FLOWBOARD_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // FLOWBOARD_SYNC_S3_KEY (default "flowboard/snapshot.jsonl")
	SyncGitRepo    string        // FLOWBOARD_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // FLOWBOARD_SYNC_GIT_FILE (default "flowboard.jsonl")
	SyncGitBranch  string        // FLOWBOARD_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("FLOWBOARD_DATABASE_URL"),
		SQLitePath:     os.Getenv("FLOWBOARD_SQLITE_PATH"),
		GRPCAddr:       envOrDefault("FLOWBOARD_GRPC_ADDR", ":9090"),
		HTTPAddr:       envOrDefault("FLOWBOARD_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("FLOWBOARD_NATS_URL"),
		AuthToken:      os.Getenv("FLOWBOARD_AUTH_TOKEN"),
		SettingsFile:   os.Getenv("FLOWBOARD_SETTINGS_FILE"),
		SyncS3Bucket:   os.Getenv("FLOWBOARD_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("FLOWBOARD_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("FLOWBOARD_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("FLOWBOARD_SYNC_S3_KEY", "flowboard/snapshot.jsonl"),
		SyncGitRepo:    os.Getenv("FLOWBOARD_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("FLOWBOARD_SYNC_GIT_FILE", "flowboard.jsonl"),
		SyncGitBranch:  envOrDefault("FLOWBOARD_SYNC_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL != "" && !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return nil, fmt.Errorf("FLOWBOARD_DATABASE_URL: unsupported scheme in %q", c.DatabaseURL)
	}

	if intervalStr := os.Getenv("FLOWBOARD_SYNC_INTERVAL"); intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("FLOWBOARD_SYNC_INTERVAL: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("FLOWBOARD_SYNC_INTERVAL: negative interval %s", d)
		}
		c.SyncInterval = d
	}

	return c, nil
}

// Backend reports which store implementation the configuration selects.
func (c *Config) Backend() Backend {
	if c.DatabaseURL != "" {
		return BackendPostgres
	}
	return BackendSQLite
}

// SyncEnabled reports whether a snapshot scheduler should run.
func (c *Config) SyncEnabled() bool {
	return c.SyncInterval > 0 && (c.SyncS3Bucket != "" || c.SyncGitRepo != "")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
