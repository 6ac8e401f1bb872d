package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualbridge/manualbridge/internal/domain"
)

func TestMemory_UpsertReplacesSameFile(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, domain.DocumentPayload{FileName: "a.pdf", Text: "v1"}, []float32{1, 0}))
	require.NoError(t, m.Upsert(ctx, domain.DocumentPayload{FileName: "a.pdf", Text: "v2"}, []float32{1, 0}))
	assert.Equal(t, 1, m.Count())

	hits, err := m.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v2", hits[0].Payload.Text)
}

func TestMemory_SearchOrdersBysimilarity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, domain.DocumentPayload{FileName: "x.pdf"}, []float32{1, 0}))
	require.NoError(t, m.Upsert(ctx, domain.DocumentPayload{FileName: "y.pdf"}, []float32{0, 1}))
	require.NoError(t, m.Upsert(ctx, domain.DocumentPayload{FileName: "z.pdf"}, []float32{1, 1}))

	hits, err := m.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "x.pdf", hits[0].Payload.FileName)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "z.pdf", hits[1].Payload.FileName)
	assert.Equal(t, "y.pdf", hits[2].Payload.FileName)
}

func TestMemory_SearchHonorsTopK(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, domain.DocumentPayload{FileName: "x.pdf"}, []float32{1, 0}))
	require.NoError(t, m.Upsert(ctx, domain.DocumentPayload{FileName: "y.pdf"}, []float32{0, 1}))

	hits, err := m.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestMemory_DeleteByFile(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, domain.DocumentPayload{FileName: "x.pdf"}, []float32{1, 0}))
	require.NoError(t, m.Upsert(ctx, domain.DocumentPayload{FileName: "y.pdf"}, []float32{0, 1}))

	require.NoError(t, m.DeleteByFile(ctx, "x.pdf"))
	assert.Equal(t, 1, m.Count())

	require.NoError(t, m.DeleteByFile(ctx, "absent.pdf"))
	assert.Equal(t, 1, m.Count())
}

func TestMemory_SearchEmpty(t *testing.T) {
	hits, err := NewMemory().Search(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
