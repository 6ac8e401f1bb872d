// Package steps segments parsed document items into numbered instruction steps.
package steps

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/manualbridge/manualbridge/internal/domain"
)

var stepRe = regexp.MustCompile(`(?i)\bstep\s*(\d+|one|two|three|four|five|six|seven|eight|nine|ten)\b`)

var spelled = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// DetectNumber returns the step number mentioned in text, or 0 when none is
// found. The first match wins.
func DetectNumber(text string) int {
	m := stepRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}

	token := strings.ToLower(m[1])
	if n, ok := spelled[token]; ok {
		return n
	}

	n, err := strconv.Atoi(token)
	if err != nil {
		return 0
	}
	return n
}

// Build groups items in document order into steps. A text item mentioning a
// step number opens (or re-enters) that step; every following item belongs to
// the current step until the next step heading. Items seen before any step
// form a preamble attached to the lowest-numbered step; when the document has
// no step headings at all, everything becomes a synthetic step 1.
func Build(items []domain.DocumentItem) []domain.Step {
	byNumber := make(map[int]*domain.Step)
	var preamble []domain.DocumentItem
	current := 0

	for _, item := range items {
		if text, ok := item.(domain.TextItem); ok {
			if n := DetectNumber(text.Content); n > 0 {
				current = n
				if _, exists := byNumber[n]; !exists {
					byNumber[n] = &domain.Step{Number: n, Title: stepTitle(text.Content)}
				}
			}
		}

		if current == 0 {
			preamble = append(preamble, item)
			continue
		}
		step := byNumber[current]
		step.Items = append(step.Items, item)
	}

	if len(byNumber) == 0 {
		if len(preamble) == 0 {
			return nil
		}
		return []domain.Step{{Number: 1, Title: "Overview", Items: preamble}}
	}

	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	if len(preamble) > 0 {
		lowest := byNumber[numbers[0]]
		lowest.Items = append(preamble, lowest.Items...)
	}

	result := make([]domain.Step, 0, len(numbers))
	for _, n := range numbers {
		result = append(result, *byNumber[n])
	}
	return result
}

// stepTitle condenses a step heading into a short title.
func stepTitle(text string) string {
	title := strings.TrimSpace(text)
	if idx := stepRe.FindStringIndex(title); idx != nil {
		rest := strings.TrimLeft(title[idx[1]:], " :.-–")
		if rest != "" {
			title = rest
		}
	}
	if len(title) > 80 {
		title = strings.TrimSpace(title[:80])
	}
	return title
}
