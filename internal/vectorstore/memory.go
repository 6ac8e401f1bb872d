package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/manualbridge/manualbridge/internal/domain"
)

// Memory is an in-memory Store for tests. Cosine similarity, brute force.
type Memory struct {
	mu     sync.RWMutex
	points []memoryPoint
}

type memoryPoint struct {
	payload domain.DocumentPayload
	vector  []float32
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// EnsureCollection is a no-op for the in-memory store.
func (m *Memory) EnsureCollection(ctx context.Context, dimension int) error {
	return nil
}

// Upsert replaces any point with the same file name.
func (m *Memory) Upsert(ctx context.Context, payload domain.DocumentPayload, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.points[:0]
	for _, p := range m.points {
		if p.payload.FileName != payload.FileName {
			kept = append(kept, p)
		}
	}
	m.points = append(kept, memoryPoint{payload: payload, vector: vector})
	return nil
}

// Search returns the topK points by cosine similarity.
func (m *Memory) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if topK <= 0 {
		topK = 1
	}

	hits := make([]domain.RetrievalHit, 0, len(m.points))
	for _, p := range m.points {
		hits = append(hits, domain.RetrievalHit{
			Payload: p.payload,
			Score:   cosineSimilarity(vector, p.vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DeleteByFile removes points matching the file name.
func (m *Memory) DeleteByFile(ctx context.Context, fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.points[:0]
	for _, p := range m.points {
		if p.payload.FileName != fileName {
			kept = append(kept, p)
		}
	}
	m.points = kept
	return nil
}

// Count returns the number of stored points.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Store = (*Memory)(nil)
