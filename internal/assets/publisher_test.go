package assets

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualbridge/manualbridge/internal/domain"
	"github.com/manualbridge/manualbridge/internal/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Output:      io.Discard,
		ServiceName: "test",
	})
}

func TestPublisher_Publish(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store, "processed", 7, testLogger())
	ctx := context.Background()

	url, err := pub.Publish(ctx, "washer/images/fig_1_page_1.png", []byte("png"))
	require.NoError(t, err)
	assert.Contains(t, url, "processed/washer/images/fig_1_page_1.png")
	assert.Contains(t, url, "sig=")

	data, err := store.Download(ctx, "processed", "washer/images/fig_1_page_1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
}

func TestPublisher_ExistsAndUpload(t *testing.T) {
	pub := NewPublisher(NewMemoryStore(), "processed", 7, testLogger())
	ctx := context.Background()

	exists, err := pub.Exists(ctx, "washer/status.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, pub.Upload(ctx, "washer/status.txt", []byte("marker")))

	exists, err = pub.Exists(ctx, "washer/status.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPublisher_TTL(t *testing.T) {
	pub := NewPublisher(NewMemoryStore(), "processed", 3, testLogger())
	assert.Equal(t, 3*24*time.Hour, pub.TTL())

	// Out-of-range values fall back to a week.
	pub = NewPublisher(NewMemoryStore(), "processed", 0, testLogger())
	assert.Equal(t, 7*24*time.Hour, pub.TTL())
}

func TestMemoryStore_ListByPrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "raw", "washer/manual.pdf", []byte("a")))
	require.NoError(t, store.Upload(ctx, "raw", "washer/cover.png", []byte("b")))
	require.NoError(t, store.Upload(ctx, "raw", "router/manual.pdf", []byte("c")))

	names, err := store.List(ctx, "raw", "washer/")
	require.NoError(t, err)
	assert.Equal(t, []string{"washer/cover.png", "washer/manual.pdf"}, names)
}

func TestMemoryStore_DownloadMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Download(context.Background(), "raw", "absent")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeNotFound))
}

func TestParseConnectionString(t *testing.T) {
	name, key, err := parseConnectionString(
		"DefaultEndpointsProtocol=https;AccountName=acct;AccountKey=c2VjcmV0;EndpointSuffix=core.windows.net")
	require.NoError(t, err)
	assert.Equal(t, "acct", name)
	assert.Equal(t, "c2VjcmV0", key)

	_, _, err = parseConnectionString("DefaultEndpointsProtocol=https")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}
