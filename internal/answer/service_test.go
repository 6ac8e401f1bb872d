package answer

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualbridge/manualbridge/internal/cache"
	"github.com/manualbridge/manualbridge/internal/domain"
	"github.com/manualbridge/manualbridge/internal/embedding"
	"github.com/manualbridge/manualbridge/internal/llm"
	"github.com/manualbridge/manualbridge/internal/observability"
	"github.com/manualbridge/manualbridge/internal/retrieval"
	"github.com/manualbridge/manualbridge/internal/vectorstore"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Output:      io.Discard,
		ServiceName: "test",
	})
}

func seededSearch(t *testing.T, payload domain.DocumentPayload) *retrieval.Service {
	t.Helper()

	embedder := embedding.NewMockClient(64)
	store := vectorstore.NewMemory()

	vector, err := embedder.EmbedSingle(context.Background(), payload.Text)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), payload, vector))

	return retrieval.NewService(testLogger(), embedder, store, retrieval.Config{FullDocMaxPages: 10})
}

func manualPayload() domain.DocumentPayload {
	full := "https://acct.blob.core.windows.net/processed/m/images/fig_1_page_1.png?sig=abc"
	return domain.DocumentPayload{
		FileName:    "washer-manual.pdf",
		TotalPages:  4,
		Text:        "# washer-manual.pdf\n\n### Step 1: Open\n\nLift the lid.\n\nStep 1 Visual",
		LLMMarkdown: "# washer-manual.pdf\n\n### Step 1: Open\n\nLift the lid.\n\n![Step 1 Visual](" + full + ")",
		SignedURLs:  []string{full},
	}
}

func TestAnswer_Success(t *testing.T) {
	payload := manualPayload()
	completer := &llm.MockCompleter{
		Response: "Lift the lid as shown: ![Step 1 Visual](https://acct.blob.core.windows.net/processed/m/images/fig_1_page_1.png)",
	}

	svc := NewService(testLogger(), seededSearch(t, payload), completer, nil, Config{})
	ans := svc.Answer(context.Background(), "How do I open the washer?")

	require.True(t, ans.Success)
	assert.Equal(t, "washer-manual.pdf", ans.SourceFile)
	assert.Greater(t, ans.Confidence, 0.0)
	// The stripped link target got its signature back.
	assert.Contains(t, ans.Markdown, "?sig=abc)")

	// One completion call with a system message and a multimodal user message.
	require.Len(t, completer.Calls, 1)
	messages := completer.Calls[0]
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)

	lastPart := messages[1].Content[len(messages[1].Content)-1]
	assert.Contains(t, lastPart.Text, "Question: How do I open the washer?")

	// Image parts go up at low detail to cap image-token spend.
	var imageParts int
	for _, part := range messages[1].Content {
		if part.Type == "image_url" {
			imageParts++
			require.NotNil(t, part.ImageURL)
			assert.Equal(t, "low", part.ImageURL.Detail)
		}
	}
	require.Equal(t, 1, imageParts)
}

func TestAnswer_NoMatchingDocument(t *testing.T) {
	embedder := embedding.NewMockClient(64)
	search := retrieval.NewService(testLogger(), embedder, vectorstore.NewMemory(), retrieval.Config{})
	completer := &llm.MockCompleter{Response: "unused"}

	svc := NewService(testLogger(), search, completer, nil, Config{})
	ans := svc.Answer(context.Background(), "anything")

	assert.False(t, ans.Success)
	assert.Equal(t, "no matching document found for this question", ans.ErrorMessage)
	assert.Empty(t, completer.Calls)
}

func TestAnswer_CompletionFailure(t *testing.T) {
	completer := &llm.MockCompleter{Err: domain.TransportError("boom", nil)}

	svc := NewService(testLogger(), seededSearch(t, manualPayload()), completer, nil, Config{})
	ans := svc.Answer(context.Background(), "How do I open the washer?")

	assert.False(t, ans.Success)
	assert.Contains(t, ans.ErrorMessage, "completion failed")
	assert.Empty(t, ans.Markdown)
}

func TestAnswer_CacheHitSkipsCompletion(t *testing.T) {
	completer := &llm.MockCompleter{Response: "Lift the lid."}
	memCache := cache.NewMemoryClient(100)

	svc := NewService(testLogger(), seededSearch(t, manualPayload()), completer, memCache, Config{CacheTTL: time.Minute})

	first := svc.Answer(context.Background(), "How do I open the washer?")
	require.True(t, first.Success)
	require.Len(t, completer.Calls, 1)

	// Same question modulo case and whitespace hits the cache.
	second := svc.Answer(context.Background(), "  how do I open the washer?  ")
	require.True(t, second.Success)
	assert.Equal(t, first.Markdown, second.Markdown)
	assert.Len(t, completer.Calls, 1)
}

func TestAnswer_FailuresNotCached(t *testing.T) {
	completer := &llm.MockCompleter{Err: domain.TransportError("boom", nil)}
	memCache := cache.NewMemoryClient(100)

	svc := NewService(testLogger(), seededSearch(t, manualPayload()), completer, memCache, Config{CacheTTL: time.Minute})

	first := svc.Answer(context.Background(), "q")
	require.False(t, first.Success)

	// A later retry reaches the completer again instead of replaying the
	// failure from cache.
	completer.Err = nil
	completer.Response = "recovered"
	second := svc.Answer(context.Background(), "q")
	assert.True(t, second.Success)
	assert.Len(t, completer.Calls, 2)
}
