package answer

import (
	"regexp"
	"strings"
)

// RestoreSignedURLs repairs image references in model output. Models tend to
// drop SAS query strings or rewrite alt text, which breaks the links. For
// every known signed URL this replaces its stripped base with the full signed
// form and forces the alt text back to what the source markdown used.
//
// The operation is idempotent: already-signed URLs and already-restored alt
// text pass through unchanged.
func RestoreSignedURLs(output string, signedURLs []string, sourceMarkdown string) string {
	if output == "" || len(signedURLs) == 0 {
		return output
	}

	// base (URL without query) -> full signed URL
	baseToFull := make(map[string]string, len(signedURLs))
	for _, full := range signedURLs {
		base, _, _ := strings.Cut(full, "?")
		if base != "" {
			baseToFull[base] = full
		}
	}

	// full URL -> alt text as written in the source markdown
	fullToAlt := make(map[string]string)
	for _, m := range imageLinkRe.FindAllStringSubmatch(sourceMarkdown, -1) {
		fullToAlt[m[2]] = m[1]
	}

	// Re-attach query strings wherever a stripped base appears, in link
	// targets and in prose alike. The pattern consumes a trailing "?" so an
	// already-signed occurrence is left untouched.
	for base, full := range baseToFull {
		re := regexp.MustCompile(regexp.QuoteMeta(base) + `\??`)
		output = re.ReplaceAllStringFunc(output, func(m string) string {
			if strings.HasSuffix(m, "?") {
				return m
			}
			return full
		})
	}

	// Normalize alt text on links that now carry a known signed URL.
	return imageLinkRe.ReplaceAllStringFunc(output, func(link string) string {
		m := imageLinkRe.FindStringSubmatch(link)
		url := m[2]

		full, known := lookupFull(url, baseToFull)
		if !known {
			return link
		}
		alt := m[1]
		if sourceAlt, ok := fullToAlt[full]; ok && sourceAlt != "" {
			alt = sourceAlt
		}
		return "![" + alt + "](" + full + ")"
	})
}

func lookupFull(url string, baseToFull map[string]string) (string, bool) {
	base, _, _ := strings.Cut(url, "?")
	full, ok := baseToFull[base]
	return full, ok
}
