package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	fullURL  = "https://acct.blob.core.windows.net/processed/m/images/fig_1_page_2.png?sv=2023&sig=abc"
	baseURL  = "https://acct.blob.core.windows.net/processed/m/images/fig_1_page_2.png"
	sourceMD = "# m.pdf\n\n### Step 1: Open\n\n![Step 1 Visual](" + fullURL + ")\n"
)

func TestRestoreSignedURLs_ReattachesQueryString(t *testing.T) {
	output := "See the figure: ![Step 1 Visual](" + baseURL + ")"

	restored := RestoreSignedURLs(output, []string{fullURL}, sourceMD)
	assert.Contains(t, restored, "]("+fullURL+")")
	assert.NotContains(t, restored, "]("+baseURL+")")
}

func TestRestoreSignedURLs_NormalizesAltText(t *testing.T) {
	output := "![figure 1](" + fullURL + ")"

	restored := RestoreSignedURLs(output, []string{fullURL}, sourceMD)
	assert.Equal(t, "![Step 1 Visual]("+fullURL+")", restored)
}

func TestRestoreSignedURLs_BareBaseURLInProse(t *testing.T) {
	output := "Open the panel as shown at " + baseURL + " before continuing."

	restored := RestoreSignedURLs(output, []string{fullURL}, sourceMD)
	assert.Contains(t, restored, fullURL)
	assert.Equal(t, "Open the panel as shown at "+fullURL+" before continuing.", restored)
}

func TestRestoreSignedURLs_Idempotent(t *testing.T) {
	output := "intro ![fig](" + baseURL + ") then " + baseURL + " outro"

	once := RestoreSignedURLs(output, []string{fullURL}, sourceMD)
	twice := RestoreSignedURLs(once, []string{fullURL}, sourceMD)
	assert.Equal(t, once, twice)
}

func TestRestoreSignedURLs_AlreadySignedPassesThrough(t *testing.T) {
	output := "![Step 1 Visual](" + fullURL + ")"

	restored := RestoreSignedURLs(output, []string{fullURL}, sourceMD)
	assert.Equal(t, output, restored)
}

func TestRestoreSignedURLs_UnknownURLUntouched(t *testing.T) {
	output := "![external](https://example.com/other.png)"

	restored := RestoreSignedURLs(output, []string{fullURL}, sourceMD)
	assert.Equal(t, output, restored)
}

func TestRestoreSignedURLs_NoSignedURLs(t *testing.T) {
	output := "plain answer"
	assert.Equal(t, output, RestoreSignedURLs(output, nil, sourceMD))
}

func TestRestoreSignedURLs_MultipleOccurrences(t *testing.T) {
	output := "![a](" + baseURL + ") and again ![b](" + baseURL + ")"

	restored := RestoreSignedURLs(output, []string{fullURL}, sourceMD)
	assert.NotContains(t, restored, "]("+baseURL+")")
	assert.Equal(t, "![Step 1 Visual]("+fullURL+") and again ![Step 1 Visual]("+fullURL+")", restored)
}
