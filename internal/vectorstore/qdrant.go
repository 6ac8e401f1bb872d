// Package vectorstore persists processed documents as vectors with payloads.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/manualbridge/manualbridge/internal/domain"
)

// Store is the vector persistence interface used by ingestion and retrieval.
type Store interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, payload domain.DocumentPayload, vector []float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalHit, error)
	DeleteByFile(ctx context.Context, fileName string) error
}

// Qdrant is a minimal REST client to Qdrant. It assumes cosine distance and
// creates the collection if missing.
type Qdrant struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// Config holds Qdrant connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewQdrant creates a Qdrant client.
func NewQdrant(cfg Config) *Qdrant {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Qdrant{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection when missing. Qdrant returns 200 on
// a PUT for an existing collection with the same schema.
func (q *Qdrant) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return domain.ValidationError("invalid embedding dimension", nil)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return q.putJSON(ctx, fmt.Sprintf("%s/collections/%s", q.url, q.collection), body)
}

// Upsert stores one document point. Any prior point for the same file name is
// removed first so re-ingestion never accumulates stale copies.
func (q *Qdrant) Upsert(ctx context.Context, payload domain.DocumentPayload, vector []float32) error {
	if err := q.DeleteByFile(ctx, payload.FileName); err != nil {
		return err
	}

	point := map[string]any{
		"id":      uuid.New().String(),
		"vector":  vector,
		"payload": payload,
	}
	body := map[string]any{"points": []any{point}}
	return q.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, q.collection), body)
}

// Search returns the nearest documents with their payloads.
func (q *Qdrant) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalHit, error) {
	if topK <= 0 {
		topK = 1
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	if err := q.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", q.url, q.collection), req, &resp); err != nil {
		return nil, err
	}

	hits := make([]domain.RetrievalHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		var payload domain.DocumentPayload
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, domain.ParseError("Failed to decode search payload", err)
		}
		hits = append(hits, domain.RetrievalHit{Payload: payload, Score: r.Score})
	}
	return hits, nil
}

// DeleteByFile removes every point whose payload matches the file name.
func (q *Qdrant) DeleteByFile(ctx context.Context, fileName string) error {
	if fileName == "" {
		return nil
	}
	body := map[string]any{
		"filter": map[string]any{
			"must": []any{
				map[string]any{
					"key":   "file_name",
					"match": map[string]any{"value": fileName},
				},
			},
		},
	}
	return q.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/delete?wait=true", q.url, q.collection), body, nil)
}

func (q *Qdrant) putJSON(ctx context.Context, url string, body any) error {
	return q.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (q *Qdrant) postJSON(ctx context.Context, url string, body any, out any) error {
	return q.doJSON(ctx, http.MethodPost, url, body, out)
}

func (q *Qdrant) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return domain.ValidationError("Failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return domain.TransportError("Failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return domain.TransportError(fmt.Sprintf("qdrant %s %s failed", method, url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.TransportError(fmt.Sprintf("qdrant %s %s returned %s", method, url, resp.Status), nil)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ Store = (*Qdrant)(nil)
