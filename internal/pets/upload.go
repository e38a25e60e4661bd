package pets

import (
	"context"
	"fmt"
	"log"
	"sync"

	"pintopics/api/internal/blob"
)

const fallbackContentType = "application/octet-stream"

// UploadInput is one media file submitted for a keyword.
type UploadInput struct {
	Keyword     string
	Filename    string
	ContentType string
	Data        []byte
}

// Uploader stores new media under the next free index of a keyword.
type Uploader struct {
	store      blob.Store
	registry   *Registry
	reconciler *Reconciler

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewUploader(store blob.Store, registry *Registry, reconciler *Reconciler) *Uploader {
	return &Uploader{
		store:      store,
		registry:   registry,
		reconciler: reconciler,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Upload validates, writes and rescans. It returns the stored object key.
func (u *Uploader) Upload(ctx context.Context, input UploadInput) (string, error) {
	keyword := Normalize(input.Keyword)
	if keyword == "" {
		return "", &ValidationError{Message: "keyword is required"}
	}

	ext := uploadExtension(input.Filename)
	if !acceptableMedia(input.ContentType, ext) {
		return "", &ValidationError{Message: "Invalid file type. Allowed: jpg, png, gif, mp4, mov"}
	}

	if _, err := u.registry.Upsert(ctx, keyword, ""); err != nil {
		return "", err
	}

	// Index selection and write are serialized per keyword so two uploads
	// never claim the same slot.
	lock := u.keywordLock(keyword)
	lock.Lock()
	index, err := u.reconciler.NextFreeIndex(ctx, keyword)
	if err != nil {
		lock.Unlock()
		return "", err
	}
	key := ObjectKey(keyword, index, ext)

	contentType := input.ContentType
	if contentType == "" {
		contentType = fallbackContentType
	}
	err = u.store.Put(ctx, key, input.Data, contentType)
	lock.Unlock()
	if err != nil {
		return "", fmt.Errorf("put %s: %w: %w", key, ErrStorageUnavailable, err)
	}
	log.Printf("pets: stored %s (%d bytes, %s)", key, len(input.Data), contentType)

	if _, err := u.reconciler.ReconcileAll(ctx); err != nil {
		return key, err
	}
	return key, nil
}

func (u *Uploader) keywordLock(keyword string) *sync.Mutex {
	u.lockMu.Lock()
	defer u.lockMu.Unlock()
	lock, ok := u.locks[keyword]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	u.locks[keyword] = lock
	return lock
}
