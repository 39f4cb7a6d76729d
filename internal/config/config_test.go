package config

import (
	"testing"
	"time"
)

// envVars lists every variable Load reads; cleared between tests.
var envVars = []string{
	"FLOWBOARD_DATABASE_URL", "FLOWBOARD_SQLITE_PATH", "FLOWBOARD_GRPC_ADDR",
	"FLOWBOARD_HTTP_ADDR", "FLOWBOARD_NATS_URL", "FLOWBOARD_AUTH_TOKEN",
	"FLOWBOARD_SETTINGS_FILE", "FLOWBOARD_SYNC_INTERVAL", "FLOWBOARD_SYNC_S3_BUCKET",
	"FLOWBOARD_SYNC_S3_ENDPOINT", "FLOWBOARD_SYNC_S3_REGION", "FLOWBOARD_SYNC_S3_KEY",
	"FLOWBOARD_SYNC_GIT_REPO", "FLOWBOARD_SYNC_GIT_FILE", "FLOWBOARD_SYNC_GIT_BRANCH",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      bool
		wantBackend  Backend
		wantGRPCAddr string
		wantHTTPAddr string
		wantNATSURL  string
	}{
		{
			name:         "DefaultsToSQLite",
			env:          map[string]string{},
			wantBackend:  BackendSQLite,
			wantGRPCAddr: ":9090",
			wantHTTPAddr: ":8080",
		},
		{
			name: "Postgres",
			env: map[string]string{
				"FLOWBOARD_DATABASE_URL": "postgres://db:5432/flowboard",
				"FLOWBOARD_GRPC_ADDR":    ":5050",
				"FLOWBOARD_HTTP_ADDR":    ":3000",
				"FLOWBOARD_NATS_URL":     "nats://localhost:4222",
			},
			wantBackend:  BackendPostgres,
			wantGRPCAddr: ":5050",
			wantHTTPAddr: ":3000",
			wantNATSURL:  "nats://localhost:4222",
		},
		{
			name:    "UnsupportedScheme",
			env:     map[string]string{"FLOWBOARD_DATABASE_URL": "mysql://localhost/flowboard"},
			wantErr: true,
		},
		{
			name:    "BadInterval",
			env:     map[string]string{"FLOWBOARD_SYNC_INTERVAL": "soon"},
			wantErr: true,
		},
		{
			name:    "NegativeInterval",
			env:     map[string]string{"FLOWBOARD_SYNC_INTERVAL": "-1m"},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Backend() != tc.wantBackend {
				t.Errorf("Backend() = %q, want %q", cfg.Backend(), tc.wantBackend)
			}
			if cfg.GRPCAddr != tc.wantGRPCAddr {
				t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, tc.wantGRPCAddr)
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
		})
	}
}

func TestLoadSyncDefaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 0 || cfg.SyncEnabled() {
		t.Errorf("sync should be disabled by default, interval = %v", cfg.SyncInterval)
	}
	if cfg.SyncS3Region != "us-east-1" {
		t.Errorf("SyncS3Region = %q", cfg.SyncS3Region)
	}
	if cfg.SyncS3Key != "flowboard/snapshot.jsonl" {
		t.Errorf("SyncS3Key = %q", cfg.SyncS3Key)
	}
	if cfg.SyncGitFile != "flowboard.jsonl" {
		t.Errorf("SyncGitFile = %q", cfg.SyncGitFile)
	}
	if cfg.SyncGitBranch != "main" {
		t.Errorf("SyncGitBranch = %q", cfg.SyncGitBranch)
	}
}

func TestLoadSyncCustom(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("FLOWBOARD_SYNC_INTERVAL", "10m")
	t.Setenv("FLOWBOARD_SYNC_S3_BUCKET", "snapshots")
	t.Setenv("FLOWBOARD_SYNC_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("FLOWBOARD_SYNC_S3_REGION", "eu-west-1")
	t.Setenv("FLOWBOARD_SYNC_S3_KEY", "custom/key.jsonl")
	t.Setenv("FLOWBOARD_SYNC_GIT_REPO", "/tmp/repo")
	t.Setenv("FLOWBOARD_SYNC_GIT_FILE", "custom.jsonl")
	t.Setenv("FLOWBOARD_SYNC_GIT_BRANCH", "backup")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 10*time.Minute || !cfg.SyncEnabled() {
		t.Errorf("SyncInterval = %v, enabled = %v", cfg.SyncInterval, cfg.SyncEnabled())
	}
	for _, tc := range []struct{ got, want string }{
		{cfg.SyncS3Bucket, "snapshots"},
		{cfg.SyncS3Endpoint, "http://minio:9000"},
		{cfg.SyncS3Region, "eu-west-1"},
		{cfg.SyncS3Key, "custom/key.jsonl"},
		{cfg.SyncGitRepo, "/tmp/repo"},
		{cfg.SyncGitFile, "custom.jsonl"},
		{cfg.SyncGitBranch, "backup"},
	} {
		if tc.got != tc.want {
			t.Errorf("got %q, want %q", tc.got, tc.want)
		}
	}
}

func TestSyncEnabled_RequiresDestination(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("FLOWBOARD_SYNC_INTERVAL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncEnabled() {
		t.Error("sync without a destination should be disabled")
	}
}
