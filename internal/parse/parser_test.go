package parse

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

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

func pngDataURI(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestTokenizePage_InterleavesTextAndImages(t *testing.T) {
	p := NewParser(testLogger())
	b64 := pngDataURI(t)

	pageHTML := `<div><p>Step 1: Open the lid</p>` +
		`<img src="data:image/png;base64,` + b64 + `" width="2" height="2">` +
		`<p>Close it again</p></div>`

	seq := 0
	items := p.tokenizePage(pageHTML, 1, &seq)
	require.Len(t, items, 3)

	first, ok := items[0].(domain.TextItem)
	require.True(t, ok)
	assert.Equal(t, "Step 1: Open the lid", first.Content)
	assert.Equal(t, 1, first.Page)

	img, ok := items[1].(domain.ImageItem)
	require.True(t, ok)
	require.NotNil(t, img.Image)

	last, ok := items[2].(domain.TextItem)
	require.True(t, ok)
	assert.Equal(t, "Close it again", last.Content)

	// Sequence numbers follow document order.
	assert.Equal(t, 0, items[0].Sequence())
	assert.Equal(t, 1, items[1].Sequence())
	assert.Equal(t, 2, items[2].Sequence())
	assert.Equal(t, 3, seq)
}

func TestTokenizePage_SkipsUndecodableImage(t *testing.T) {
	p := NewParser(testLogger())

	pageHTML := `<p>before</p><img src="data:image/png;base64,AAAA"><p>after</p>`

	seq := 0
	items := p.tokenizePage(pageHTML, 1, &seq)
	require.Len(t, items, 2)
	assert.IsType(t, domain.TextItem{}, items[0])
	assert.IsType(t, domain.TextItem{}, items[1])
}

func TestTextItems_StripsMarkup(t *testing.T) {
	p := NewParser(testLogger())

	fragment := `<h1>Washer&nbsp;Manual</h1><p>Step   1: <b>prepare</b> &amp; clean</p><br><p>  </p>`

	seq := 0
	items := p.textItems(fragment, 3, &seq)
	require.Len(t, items, 2)

	first := items[0].(domain.TextItem)
	assert.Equal(t, "Washer Manual", first.Content)
	assert.Equal(t, 3, first.Page)

	second := items[1].(domain.TextItem)
	assert.Equal(t, "Step 1: prepare & clean", second.Content)
}

func TestTextItems_WhitespaceOnly(t *testing.T) {
	p := NewParser(testLogger())

	seq := 0
	assert.Nil(t, p.textItems("  \n\t ", 1, &seq))
	assert.Equal(t, 0, seq)
}
