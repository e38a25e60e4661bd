package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	GatewayToken    string
	AdminIDs        []string
	ContentEndpoint string
	DefaultEmblem   string
	PostExpiry      time.Duration
	ProbeTimeout    time.Duration
	StorageTimeout  time.Duration
	// Blob storage (Cloudflare R2 or any S3-compatible endpoint)
	BlobBackend   string
	BlobEndpoint  string
	BlobAccessKey string
	BlobSecretKey string
	BlobBucket    string
	BlobRegion    string
	BlobUseSSL    bool
	// Chat gateway
	PostURL string
	// Redis probe cache, disabled when empty
	RedisURL      string
	ProbeCacheTTL time.Duration
	// Postgres audit log, disabled when empty
	DatabaseURL string
}

func Load() Config {
	// A missing .env is the normal case in production.
	_ = godotenv.Load()

	return Config{
		Addr:            getenv("API_ADDR", ":8787"),
		GatewayToken:    getenv("PINTOPICS_GATEWAY_TOKEN", "pintopics-gateway-token"),
		AdminIDs:        getenvList("PINTOPICS_ADMIN_IDS"),
		ContentEndpoint: strings.TrimRight(getenv("PINTOPICS_CONTENT_ENDPOINT", "https://r2-api.seemsgood.org/content"), "/"),
		DefaultEmblem:   getenv("PINTOPICS_DEFAULT_EMBLEM", "🐾"),
		PostExpiry:      getenvDuration("PINTOPICS_POST_EXPIRE_SECONDS", 60),
		ProbeTimeout:    getenvDuration("PINTOPICS_PROBE_TIMEOUT_SECONDS", 3),
		StorageTimeout:  getenvDuration("PINTOPICS_STORAGE_TIMEOUT_SECONDS", 15),
		BlobBackend:     strings.ToLower(getenv("BLOB_BACKEND", "s3")),
		BlobEndpoint:    blobEndpoint(getenv("BLOB_ENDPOINT", ""), getenv("R2_ACCOUNT_ID", "")),
		BlobAccessKey:   getenv("R2_ACCESS_KEY", ""),
		BlobSecretKey:   getenv("R2_SECRET_KEY", ""),
		BlobBucket:      getenv("R2_BUCKET", "r2-pintopics"),
		BlobRegion:      getenv("BLOB_REGION", "auto"),
		BlobUseSSL:      getenvBool("BLOB_USE_SSL", true),
		PostURL:         getenv("CHAT_POST_URL", ""),
		RedisURL:        getenv("REDIS_URL", ""),
		ProbeCacheTTL:   getenvDuration("PINTOPICS_PROBE_CACHE_TTL_SECONDS", 3600),
		DatabaseURL:     getenv("DATABASE_URL", ""),
	}
}

func blobEndpoint(explicit, accountID string) string {
	if explicit != "" {
		return explicit
	}
	if accountID == "" {
		return ""
	}
	return accountID + ".r2.cloudflarestorage.com"
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getenvInt(key, fallbackSeconds)) * time.Second
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getenvList splits a comma separated value, dropping blanks.
func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
