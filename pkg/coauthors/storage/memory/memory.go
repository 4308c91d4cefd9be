package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tendant/coauthors/pkg/coauthors"
)

// ErrObjectNotFound is returned for keys that were never stored.
var ErrObjectNotFound = errors.New("object not found")

// Backend is an in-memory implementation of the coauthors.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ coauthors.BlobStore = (*Backend)(nil)

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
	}
}

// Put stores an avatar image under objectKey.
func (b *Backend) Put(objectKey string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[objectKey] = append([]byte(nil), data...)
}

// Get returns the stored bytes for objectKey.
func (b *Backend) Get(objectKey string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[objectKey]
	return data, ok
}

// GetDownloadURL returns a memory:// URL for a stored key
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string) (string, error) {
	if _, ok := b.Get(objectKey); !ok {
		return "", &coauthors.StorageError{Backend: "memory", Key: objectKey, Op: "download_url", Err: ErrObjectNotFound}
	}
	return fmt.Sprintf("memory://%s", objectKey), nil
}
