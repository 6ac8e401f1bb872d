package assets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/manualbridge/manualbridge/internal/domain"
)

// MemoryStore is an in-memory BlobStore for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) key(container, name string) string {
	return container + "/" + name
}

// Upload stores a copy of data.
func (s *MemoryStore) Upload(ctx context.Context, container, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[s.key(container, name)] = buf
	return nil
}

// Download returns the stored content.
func (s *MemoryStore) Download(ctx context.Context, container, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[s.key(container, name)]
	if !ok {
		return nil, domain.NotFoundError(fmt.Sprintf("Blob %s not found", name), nil)
	}
	return data, nil
}

// Exists reports whether the blob exists.
func (s *MemoryStore) Exists(ctx context.Context, container, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blobs[s.key(container, name)]
	return ok, nil
}

// List returns blob names under the prefix, sorted.
func (s *MemoryStore) List(ctx context.Context, container, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	full := s.key(container, prefix)
	var names []string
	for k := range s.blobs {
		if strings.HasPrefix(k, full) {
			names = append(names, strings.TrimPrefix(k, container+"/"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// SignedURL returns a deterministic fake URL so tests can assert on it.
func (s *MemoryStore) SignedURL(container, name string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://stub.blob.local/%s/%s?sig=test&se=%ds",
		container, name, int(ttl.Seconds())), nil
}

// UploadCount returns the number of stored blobs.
func (s *MemoryStore) UploadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

var _ BlobStore = (*MemoryStore)(nil)
