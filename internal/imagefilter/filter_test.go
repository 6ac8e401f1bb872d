package imagefilter

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualbridge/manualbridge/internal/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Output:      io.Discard,
		ServiceName: "test",
	})
}

// gradientImage has smooth horizontal structure; invert flips every
// luminance value so the perceptual hash lands far away.
func gradientImage(invert bool) image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(x * 4)
			if invert {
				v = 255 - v
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestClassify_DuplicateDetection(t *testing.T) {
	f := NewFilter(nil, Config{BanThreshold: 8, DuplicateThreshold: 5}, testLogger())

	img := gradientImage(false)
	assert.Equal(t, DecisionKeep, f.Classify(img))
	assert.Equal(t, DecisionDuplicate, f.Classify(img))
	assert.Equal(t, 1, f.SeenCount())
}

func TestClassify_DistinctImagesKept(t *testing.T) {
	f := NewFilter(nil, Config{BanThreshold: 8, DuplicateThreshold: 5}, testLogger())

	assert.Equal(t, DecisionKeep, f.Classify(gradientImage(false)))
	assert.Equal(t, DecisionKeep, f.Classify(gradientImage(true)))
	assert.Equal(t, 2, f.SeenCount())
}

func TestClassify_BannedBeforeDuplicate(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "logo.png", gradientImage(false))

	banSet, err := LoadBanSet(dir, testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, banSet.Size())

	f := NewFilter(banSet, Config{BanThreshold: 8, DuplicateThreshold: 5}, testLogger())

	// A banned figure never enters the seen set, so a second sighting is
	// still banned rather than a duplicate.
	assert.Equal(t, DecisionBanned, f.Classify(gradientImage(false)))
	assert.Equal(t, DecisionBanned, f.Classify(gradientImage(false)))
	assert.Equal(t, 0, f.SeenCount())
}

func TestClassify_ThresholdBoundaries(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "logo.png", gradientImage(false))

	banSet, err := LoadBanSet(dir, testLogger())
	require.NoError(t, err)

	// Ban threshold is inclusive: distance zero bans even at threshold zero.
	f := NewFilter(banSet, Config{BanThreshold: 0, DuplicateThreshold: 0}, testLogger())
	assert.Equal(t, DecisionBanned, f.Classify(gradientImage(false)))

	// Duplicate threshold is exclusive: distance zero passes at threshold zero.
	f = NewFilter(nil, Config{BanThreshold: 0, DuplicateThreshold: 0}, testLogger())
	img := gradientImage(false)
	assert.Equal(t, DecisionKeep, f.Classify(img))
	assert.Equal(t, DecisionKeep, f.Classify(img))
}

func TestLoadBanSet_MissingDirIsEmpty(t *testing.T) {
	banSet, err := LoadBanSet(filepath.Join(t.TempDir(), "nope"), testLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, banSet.Size())
}

func TestLoadBanSet_EmptyDirConfig(t *testing.T) {
	banSet, err := LoadBanSet("", testLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, banSet.Size())
}

func TestLoadBanSet_SkipsNonImageFiles(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "logo.png", gradientImage(false))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	banSet, err := LoadBanSet(dir, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, banSet.Size())
}
