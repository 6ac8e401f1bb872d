// Package markdown assembles the two document variants: the full markdown
// with inline signed image links, and the embed-safe variant with every URL
// stripped.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/manualbridge/manualbridge/internal/domain"
)

var (
	imageLinkRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	bareURLRe   = regexp.MustCompile(`https?://\S+`)
)

// StepContent is one step ready for rendering: text runs interleaved with
// published figure references, in document order.
type StepContent struct {
	Number int
	Title  string
	Parts  []Part
}

// Part is either a text run or a published figure, never both.
type Part struct {
	Text  string
	Asset *domain.AssetRef
}

// Render produces the full markdown variant.
func Render(docName string, steps []StepContent) string {
	var b strings.Builder

	b.WriteString("# " + docName + "\n\n")

	for i, step := range steps {
		if step.Title != "" {
			fmt.Fprintf(&b, "### Step %d: %s\n\n", step.Number, step.Title)
		} else {
			fmt.Fprintf(&b, "### Step %d\n\n", step.Number)
		}

		for _, part := range step.Parts {
			if part.Asset != nil {
				fmt.Fprintf(&b, "![Step %d Visual](%s)\n\n", step.Number, part.Asset.URL)
				continue
			}
			if part.Text != "" {
				b.WriteString(part.Text + "\n\n")
			}
		}

		if i < len(steps)-1 {
			b.WriteString("---\n\n")
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// StripURLs produces the embed-safe variant: image links collapse to their
// alt text and bare URLs vanish. The result never contains a URL, so signed
// query strings cannot leak into the embedding space.
func StripURLs(md string) string {
	out := imageLinkRe.ReplaceAllString(md, "$1")
	out = bareURLRe.ReplaceAllString(out, "")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
