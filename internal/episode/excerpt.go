package episode

import (
	"regexp"
	"strings"
)

// ExcerptWords is the number of words kept in an excerpt.
const ExcerptWords = 55

var (
	spaceRun   = regexp.MustCompile(` {2,}`)
	newlineRun = regexp.MustCompile(`\n{2,}`)
	tabRun     = regexp.MustCompile(`\t{2,}`)
)

// Excerpt returns the first ExcerptWords words of text.
func Excerpt(text string) string {
	return FirstWords(text, ExcerptWords)
}

// FirstWords collapses repeated spaces, newlines and tabs, then cuts the
// text at its n-th whitespace boundary. Text with fewer than n boundaries
// is returned whole. The result is always trimmed.
func FirstWords(text string, n int) string {
	clean := spaceRun.ReplaceAllString(text, " ")
	clean = newlineRun.ReplaceAllString(clean, "\n")
	clean = tabRun.ReplaceAllString(clean, "\t")

	if n <= 0 {
		return ""
	}

	seen := 0
	for i := 0; i < len(clean); i++ {
		switch clean[i] {
		case ' ', '\n', '\t':
			seen++
			if seen == n {
				return strings.TrimSpace(clean[:i])
			}
		}
	}
	return strings.TrimSpace(clean)
}
