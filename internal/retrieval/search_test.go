package retrieval

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualbridge/manualbridge/internal/domain"
	"github.com/manualbridge/manualbridge/internal/embedding"
	"github.com/manualbridge/manualbridge/internal/observability"
	"github.com/manualbridge/manualbridge/internal/vectorstore"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Output:      io.Discard,
		ServiceName: "test",
	})
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding backend down")
}

func (failingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

func (failingEmbedder) Model() string  { return "failing" }
func (failingEmbedder) Dimension() int { return 0 }

type failingStore struct{ *vectorstore.Memory }

func (failingStore) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalHit, error) {
	return nil, errors.New("qdrant unreachable")
}

func seedStore(t *testing.T, embedder embedding.Embedder, payloads ...domain.DocumentPayload) *vectorstore.Memory {
	t.Helper()
	store := vectorstore.NewMemory()
	for _, p := range payloads {
		vector, err := embedder.EmbedSingle(context.Background(), p.Text)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(context.Background(), p, vector))
	}
	return store
}

func TestSearch_FullDocForSmallDocuments(t *testing.T) {
	embedder := embedding.NewMockClient(64)
	store := seedStore(t, embedder, domain.DocumentPayload{
		FileName:    "small.pdf",
		TotalPages:  10,
		Text:        "stripped text",
		LLMMarkdown: "full markdown with links",
	})

	svc := NewService(testLogger(), embedder, store, Config{FullDocMaxPages: 10})
	result := svc.Search(context.Background(), "stripped text")

	assert.Equal(t, domain.ModeFullDoc, result.Mode)
	require.NotNil(t, result.Hit)
	assert.Equal(t, "small.pdf", result.Hit.Payload.FileName)
	assert.Equal(t, "full markdown with links", result.Context)
}

func TestSearch_ChunkForLargeDocuments(t *testing.T) {
	embedder := embedding.NewMockClient(64)
	store := seedStore(t, embedder, domain.DocumentPayload{
		FileName:    "large.pdf",
		TotalPages:  11,
		Text:        "stripped text",
		LLMMarkdown: "full markdown with links",
	})

	svc := NewService(testLogger(), embedder, store, Config{FullDocMaxPages: 10})
	result := svc.Search(context.Background(), "stripped text")

	assert.Equal(t, domain.ModeChunk, result.Mode)
	assert.Equal(t, "stripped text", result.Context)
}

func TestSearch_ChunkWhenFileNameMissing(t *testing.T) {
	embedder := embedding.NewMockClient(64)
	store := seedStore(t, embedder, domain.DocumentPayload{
		TotalPages:  3,
		Text:        "orphan chunk",
		LLMMarkdown: "orphan markdown",
	})

	svc := NewService(testLogger(), embedder, store, Config{})
	result := svc.Search(context.Background(), "orphan chunk")

	assert.Equal(t, domain.ModeChunk, result.Mode)
	assert.Equal(t, "orphan chunk", result.Context)
}

func TestSearch_EmptyStore(t *testing.T) {
	svc := NewService(testLogger(), embedding.NewMockClient(64), vectorstore.NewMemory(), Config{})
	result := svc.Search(context.Background(), "anything")

	assert.Equal(t, domain.ModeNone, result.Mode)
	assert.Nil(t, result.Hit)
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	svc := NewService(testLogger(), failingEmbedder{}, vectorstore.NewMemory(), Config{})
	result := svc.Search(context.Background(), "anything")

	assert.Equal(t, domain.ModeError, result.Mode)
	assert.Contains(t, result.ErrorMsg, "embedding failed")
}

func TestSearch_StoreFailure(t *testing.T) {
	svc := NewService(testLogger(), embedding.NewMockClient(64), failingStore{vectorstore.NewMemory()}, Config{})
	result := svc.Search(context.Background(), "anything")

	assert.Equal(t, domain.ModeError, result.Mode)
	assert.Contains(t, result.ErrorMsg, "vector search failed")
}

func TestSearch_ReturnsNearestDocument(t *testing.T) {
	embedder := embedding.NewMockClient(64)
	store := seedStore(t, embedder,
		domain.DocumentPayload{FileName: "washer.pdf", TotalPages: 2, Text: "washing machine drum cleaning"},
		domain.DocumentPayload{FileName: "router.pdf", TotalPages: 2, Text: "wifi router firmware update"},
	)

	svc := NewService(testLogger(), embedder, store, Config{})
	result := svc.Search(context.Background(), "washing machine drum cleaning")

	assert.Equal(t, domain.ModeFullDoc, result.Mode)
	require.NotNil(t, result.Hit)
	assert.Equal(t, "washer.pdf", result.Hit.Payload.FileName)
}
