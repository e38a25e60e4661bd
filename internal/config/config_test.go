package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_ADDR", "BLOB_ENDPOINT", "R2_ACCOUNT_ID", "PINTOPICS_ADMIN_IDS", "REDIS_URL", "DATABASE_URL", "PINTOPICS_POST_EXPIRE_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Fatalf("Addr = %q, want :8787", cfg.Addr)
	}
	if cfg.PostExpiry != 60*time.Second {
		t.Fatalf("PostExpiry = %v, want 60s", cfg.PostExpiry)
	}
	if cfg.BlobEndpoint != "" {
		t.Fatalf("BlobEndpoint = %q, want empty", cfg.BlobEndpoint)
	}
	if len(cfg.AdminIDs) != 0 {
		t.Fatalf("AdminIDs = %v, want none", cfg.AdminIDs)
	}
	if cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Fatalf("optional backends should be disabled by default")
	}
}

func TestLoadR2AccountEndpoint(t *testing.T) {
	t.Setenv("BLOB_ENDPOINT", "")
	t.Setenv("R2_ACCOUNT_ID", "abc123")

	cfg := Load()
	if cfg.BlobEndpoint != "abc123.r2.cloudflarestorage.com" {
		t.Fatalf("BlobEndpoint = %q", cfg.BlobEndpoint)
	}

	t.Setenv("BLOB_ENDPOINT", "localhost:9000")
	if got := Load().BlobEndpoint; got != "localhost:9000" {
		t.Fatalf("explicit endpoint should win, got %q", got)
	}
}

func TestGetenvHelpers(t *testing.T) {
	t.Setenv("PINTOPICS_ADMIN_IDS", " alice, ,bob ")
	t.Setenv("BLOB_USE_SSL", "not-a-bool")
	t.Setenv("PINTOPICS_PROBE_TIMEOUT_SECONDS", "x")

	if got := getenvList("PINTOPICS_ADMIN_IDS"); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("getenvList = %v", got)
	}
	if !getenvBool("BLOB_USE_SSL", true) {
		t.Fatalf("invalid bool should fall back")
	}
	if got := getenvDuration("PINTOPICS_PROBE_TIMEOUT_SECONDS", 3); got != 3*time.Second {
		t.Fatalf("invalid int should fall back, got %v", got)
	}
}
