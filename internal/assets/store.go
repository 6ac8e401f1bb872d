// Package assets provides blob storage access and signed URL publishing for
// figures, page renders and processing markers.
package assets

import (
	"context"
	"time"
)

// BlobStore abstracts the blob backend so the pipeline can run against Azure
// in production and an in-memory store in tests.
type BlobStore interface {
	Upload(ctx context.Context, container, name string, data []byte) error
	Download(ctx context.Context, container, name string) ([]byte, error)
	Exists(ctx context.Context, container, name string) (bool, error)
	List(ctx context.Context, container, prefix string) ([]string, error)
	SignedURL(container, name string, ttl time.Duration) (string, error)
}
