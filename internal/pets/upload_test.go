package pets

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pintopics/api/internal/blob"
)

func newTestUploader(t *testing.T) (*Uploader, *Registry, *flakyStore) {
	t.Helper()
	store := newFlakyStore()
	registry := loadedRegistry(t, store)
	return NewUploader(store, registry, NewReconciler(store, registry)), registry, store
}

func TestUploadAssignsNextIndexAndReconciles(t *testing.T) {
	uploader, registry, store := newTestUploader(t)
	seedObjects(t, store, "content/pinto-0001.jpg", "content/pinto-0002.gif")

	key, err := uploader.Upload(context.Background(), UploadInput{
		Keyword:     "Pinto",
		Filename:    "Beach.PNG",
		ContentType: "image/png",
		Data:        []byte("png"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if key != "content/pinto-0003.png" {
		t.Fatalf("key = %q, want content/pinto-0003.png", key)
	}
	if ct, _ := store.ContentType(key); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if entry, _ := registry.Get("pinto"); entry.ItemCount != 3 {
		t.Fatalf("item count = %d, want 3", entry.ItemCount)
	}
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	uploader, registry, store := newTestUploader(t)
	writes := len(store.puts)

	_, err := uploader.Upload(context.Background(), UploadInput{
		Keyword:     "rex",
		Filename:    "notes.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF"),
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(store.puts) != writes {
		t.Fatalf("rejected upload wrote %v", store.puts[writes:])
	}
	if _, ok := registry.Get("rex"); ok {
		t.Fatalf("rejected upload should not register the keyword")
	}
}

func TestUploadRegistersNewKeyword(t *testing.T) {
	uploader, registry, store := newTestUploader(t)

	key, err := uploader.Upload(context.Background(), UploadInput{
		Keyword:  "Noodle",
		Filename: "clip.mov",
		Data:     []byte("mov"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if key != "content/noodle-0001.mov" {
		t.Fatalf("key = %q", key)
	}
	if ct, _ := store.ContentType(key); ct != fallbackContentType {
		t.Fatalf("content type = %q, want fallback", ct)
	}
	entry, ok := registry.Get("noodle")
	if !ok || entry.Emblem != "🐾" || entry.ItemCount != 1 {
		t.Fatalf("unexpected entry %+v, %v", entry, ok)
	}
}

func TestUploadStorageFailure(t *testing.T) {
	uploader, _, store := newTestUploader(t)
	store.failList = true

	_, err := uploader.Upload(context.Background(), UploadInput{Keyword: "pinto", Filename: "a.jpg", ContentType: "image/jpeg"})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}

	store.failList = false
	store.failPut = true
	_, err = uploader.Upload(context.Background(), UploadInput{Keyword: "pinto", Filename: "a.jpg", ContentType: "image/jpeg"})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestConcurrentUploadsClaimDistinctSlots(t *testing.T) {
	store := blob.NewMemory()
	registry := loadedRegistry(t, store)
	uploader := NewUploader(store, registry, NewReconciler(store, registry))

	const n = 8
	keys := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := uploader.Upload(context.Background(), UploadInput{Keyword: "ellie", Filename: "x.gif", ContentType: "image/gif"})
			if err != nil {
				t.Errorf("Upload: %v", err)
				return
			}
			keys <- key
		}()
	}
	wg.Wait()
	close(keys)

	seen := make(map[string]bool)
	for key := range keys {
		if seen[key] {
			t.Fatalf("slot %s claimed twice", key)
		}
		seen[key] = true
	}
	if entry, _ := registry.Get("ellie"); entry.ItemCount != n {
		t.Fatalf("item count = %d, want %d", entry.ItemCount, n)
	}
}
