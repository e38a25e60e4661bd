package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestExists(t *testing.T) {
	var mu sync.Mutex
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
		switch r.URL.Path {
		case "/content/pinto-0001.jpg":
			w.WriteHeader(http.StatusOK)
		case "/content/pinto-0002.jpg":
			w.WriteHeader(http.StatusNoContent)
		case "/content/slow-0001.jpg":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	prober := NewWithClient(server.Client())
	ctx := context.Background()

	if !prober.Exists(ctx, server.URL+"/content/pinto-0001.jpg") {
		t.Fatalf("expected 200 to exist")
	}
	if prober.Exists(ctx, server.URL+"/content/pinto-0002.jpg") {
		t.Fatalf("only 200 counts as existing")
	}
	if prober.Exists(ctx, server.URL+"/content/pinto-0003.jpg") {
		t.Fatalf("404 should not exist")
	}
	mu.Lock()
	for _, m := range methods {
		if m != http.MethodHead {
			t.Fatalf("expected HEAD requests, got %s", m)
		}
	}
	mu.Unlock()

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if prober.Exists(short, server.URL+"/content/slow-0001.jpg") {
		t.Fatalf("timed out probe should count as absent")
	}
}

func TestExistsUnreachableAndInvalidURL(t *testing.T) {
	prober := New(time.Second)
	if prober.Exists(context.Background(), "http://127.0.0.1:1/content/x.jpg") {
		t.Fatalf("unreachable host should not exist")
	}
	if prober.Exists(context.Background(), "://bad") {
		t.Fatalf("invalid url should not exist")
	}
}
