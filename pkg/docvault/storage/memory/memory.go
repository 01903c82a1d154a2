package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/freeplm/docvault/pkg/docvault"
)

// Backend is an in-memory implementation of the docvault.BlobStore interface
type Backend struct {
	mu       sync.RWMutex
	contents map[string][]byte
	stored   map[string]time.Time
}

// New creates a new in-memory storage backend
func New() docvault.BlobStore {
	return &Backend{
		contents: make(map[string][]byte),
		stored:   make(map[string]time.Time),
	}
}

// Upload stores content under the given key
func (b *Backend) Upload(ctx context.Context, contentKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.contents[contentKey] = data
	b.stored[contentKey] = time.Now().UTC()
	return nil
}

// Download retrieves content directly
func (b *Backend) Download(ctx context.Context, contentKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.contents[contentKey]
	if !exists {
		return nil, errors.New("content not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes content
func (b *Backend) Delete(ctx context.Context, contentKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.contents[contentKey]; !exists {
		return errors.New("content not found")
	}
	delete(b.contents, contentKey)
	delete(b.stored, contentKey)
	return nil
}

// GetContentMeta retrieves metadata for stored content
func (b *Backend) GetContentMeta(ctx context.Context, contentKey string) (*docvault.ContentMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.contents[contentKey]
	if !exists {
		return nil, errors.New("content not found")
	}

	return &docvault.ContentMeta{
		Key:         contentKey,
		Size:        int64(len(data)),
		ContentType: http.DetectContentType(data),
		UpdatedAt:   b.stored[contentKey],
	}, nil
}

// GetDownloadURL returns a URL for downloading content.
// The in-memory backend doesn't use URLs.
func (b *Backend) GetDownloadURL(ctx context.Context, contentKey string, downloadFilename string) (string, error) {
	return "", errors.New("direct download required for memory backend")
}
