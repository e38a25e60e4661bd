// Package blob provides the object storage backends for uploaded media and
// the small JSON state documents.
package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no object exists at the key.
var ErrNotFound = errors.New("blob: object not found")

// Object describes one entry of a prefix listing.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is a key-value blob store with prefix listing.
type Store interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Ping(ctx context.Context) error
}
