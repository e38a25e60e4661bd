package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	c, err := NewRedisCache("redis://"+s.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("failed to create redis cache: %v", err)
	}
	return c, s
}

func TestNewRedisCache(t *testing.T) {
	c, s := setupTestRedis(t)
	defer s.Close()
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache("not a url", time.Minute); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestStoreAndLookup(t *testing.T) {
	c, s := setupTestRedis(t)
	defer s.Close()
	defer c.Close()

	ctx := context.Background()
	url := "https://cdn.example.test/content/pinto-0007.gif"

	if err := c.Store(ctx, "pinto", 7, url); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, ok, err := c.Lookup(ctx, "pinto", 7)
	if err != nil || !ok {
		t.Fatalf("Lookup = %q, %v, %v", got, ok, err)
	}
	if got != url {
		t.Errorf("expected %s, got %s", url, got)
	}

	if !s.Exists("probe:pinto:0007") {
		t.Errorf("expected key probe:pinto:0007, keys=%v", s.Keys())
	}
}

func TestLookupMiss(t *testing.T) {
	c, s := setupTestRedis(t)
	defer s.Close()
	defer c.Close()

	_, ok, err := c.Lookup(context.Background(), "ellie", 1)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if ok {
		t.Error("expected a miss")
	}
}

func TestEntriesExpire(t *testing.T) {
	c, s := setupTestRedis(t)
	defer s.Close()
	defer c.Close()

	ctx := context.Background()
	if err := c.Store(ctx, "murph", 2, "https://cdn.example.test/content/murph-0002.jpg"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	s.FastForward(2 * time.Minute)

	if _, ok, _ := c.Lookup(ctx, "murph", 2); ok {
		t.Error("expected entry to expire")
	}
}

func TestLookupWhenRedisDown(t *testing.T) {
	c, s := setupTestRedis(t)
	defer c.Close()

	s.Close()

	if _, _, err := c.Lookup(context.Background(), "pinto", 1); err == nil {
		t.Error("expected error when redis is unavailable")
	}
}
