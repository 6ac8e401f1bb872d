package assets

import (
	"context"
	"time"

	"github.com/manualbridge/manualbridge/internal/observability"
)

// Publisher uploads processed artifacts to one container and hands back
// read-only signed URLs. Publishing failures are fatal to the document run,
// a half-published document must not reach the vector store.
type Publisher struct {
	store     BlobStore
	container string
	ttl       time.Duration
	logger    *observability.Logger
}

// NewPublisher creates a publisher for the processed-files container.
func NewPublisher(store BlobStore, container string, ttlDays int, logger *observability.Logger) *Publisher {
	if ttlDays < 1 {
		ttlDays = 7
	}
	return &Publisher{
		store:     store,
		container: container,
		ttl:       time.Duration(ttlDays) * 24 * time.Hour,
		logger:    logger,
	}
}

// Publish uploads data under path and returns its signed URL.
func (p *Publisher) Publish(ctx context.Context, path string, data []byte) (string, error) {
	if err := p.store.Upload(ctx, p.container, path, data); err != nil {
		return "", err
	}

	url, err := p.store.SignedURL(p.container, path, p.ttl)
	if err != nil {
		return "", err
	}

	p.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Published asset")
	return url, nil
}

// Exists reports whether path already exists in the processed container.
func (p *Publisher) Exists(ctx context.Context, path string) (bool, error) {
	return p.store.Exists(ctx, p.container, path)
}

// Upload writes data without signing, used for the status marker.
func (p *Publisher) Upload(ctx context.Context, path string, data []byte) error {
	return p.store.Upload(ctx, p.container, path, data)
}

// TTL returns the signing lifetime.
func (p *Publisher) TTL() time.Duration {
	return p.ttl
}
