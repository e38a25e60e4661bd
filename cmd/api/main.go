package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pintopics/api/internal/app"
	"pintopics/api/internal/blob"
	"pintopics/api/internal/cache"
	"pintopics/api/internal/chat"
	"pintopics/api/internal/config"
	"pintopics/api/internal/metrics"
	"pintopics/api/internal/probe"
	"pintopics/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	blobStore, err := openBlobStore(cfg)
	if err != nil {
		log.Fatalf("blob storage setup failed: %v", err)
	}

	deps := app.Deps{
		Blob:    blobStore,
		Prober:  probe.New(cfg.ProbeTimeout),
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}

	if strings.TrimSpace(cfg.PostURL) != "" {
		log.Printf("Posting replies through %s", cfg.PostURL)
		deps.Poster = chat.NewWebhookPoster(cfg.PostURL, cfg.GatewayToken, 10*time.Second)
	} else {
		log.Printf("CHAT_POST_URL not set, replies are only logged")
		deps.Poster = chat.LogPoster{}
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis probe cache")
		probeCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.ProbeCacheTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer probeCache.Close()
		deps.Cache = probeCache
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		log.Printf("Using PostgreSQL audit log")
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()
		if err := store.ApplyMigrations(ctx, db, store.Migrations); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
		deps.Events = store.NewEventStore(db)
	}

	service := app.New(cfg, deps)
	if err := service.Bootstrap(ctx); err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	if len(cfg.AdminIDs) == 0 {
		log.Printf("WARNING: PINTOPICS_ADMIN_IDS is empty, admin operations are disabled")
	}

	httpServer := app.NewHTTPServer(service, cfg.GatewayToken, promhttp.Handler())
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Pintopics API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func openBlobStore(cfg config.Config) (blob.Store, error) {
	if cfg.BlobBackend == "memory" {
		log.Printf("Using in-memory blob storage; state is lost on restart")
		return blob.NewMemory(), nil
	}
	return blob.NewMinioStore(blob.MinioConfig{
		Endpoint:  cfg.BlobEndpoint,
		AccessKey: cfg.BlobAccessKey,
		SecretKey: cfg.BlobSecretKey,
		Bucket:    cfg.BlobBucket,
		Region:    cfg.BlobRegion,
		UseSSL:    cfg.BlobUseSSL,
		Timeout:   cfg.StorageTimeout,
	})
}
