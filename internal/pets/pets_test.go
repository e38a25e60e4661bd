package pets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pintopics/api/internal/blob"
)

// flakyStore wraps a Memory store and fails selected operations.
type flakyStore struct {
	*blob.Memory
	failList bool
	failGet  bool
	failPut  bool
	puts     []string
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Memory: blob.NewMemory()}
}

func (f *flakyStore) List(ctx context.Context, prefix string) ([]blob.Object, error) {
	if f.failList {
		return nil, errors.New("connection reset")
	}
	return f.Memory.List(ctx, prefix)
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("connection reset")
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.failPut {
		return errors.New("connection reset")
	}
	f.puts = append(f.puts, key)
	return f.Memory.Put(ctx, key, data, contentType)
}

// fakeProber reports existence from a fixed set and records every probe.
type fakeProber struct {
	mu       sync.Mutex
	existing map[string]bool
	probed   []string
	delay    time.Duration
}

func (p *fakeProber) Exists(ctx context.Context, url string) bool {
	p.mu.Lock()
	p.probed = append(p.probed, url)
	ok := p.existing[url]
	delay := p.delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}
	}
	return ok
}

func (p *fakeProber) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probed...)
}

// fakeCache is an in-memory ProbeCache.
type fakeCache struct {
	urls map[string]string
	err  error
}

func (c *fakeCache) key(keyword string, index int) string {
	return ObjectKey(keyword, index, "")
}

func (c *fakeCache) Lookup(_ context.Context, keyword string, index int) (string, bool, error) {
	if c.err != nil {
		return "", false, c.err
	}
	url, ok := c.urls[c.key(keyword, index)]
	return url, ok, nil
}

func (c *fakeCache) Store(_ context.Context, keyword string, index int, url string) error {
	if c.err != nil {
		return c.err
	}
	c.urls[c.key(keyword, index)] = url
	return nil
}

const testEndpoint = "https://cdn.example.test/content"

func seedObjects(t *testing.T, store blob.Store, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if err := store.Put(context.Background(), key, []byte("x"), "image/png"); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
}

func loadedRegistry(t *testing.T, store blob.Store) *Registry {
	t.Helper()
	registry := NewRegistry(store, "🐾", BuiltinDefaults)
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return registry
}
