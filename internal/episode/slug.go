package episode

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var dashesRun = regexp.MustCompile(`-{2,}`)

// Slugify derives a URL-safe identifier from a title.
//
// The title is lowercased, accented vowels and ñ are folded to their base
// letter, every other rune outside [a-z0-9] becomes '-', runs of dashes
// collapse to one, and a single leading and trailing dash is stripped.
// Slugify(Slugify(x)) == Slugify(x).
func Slugify(title string) string {
	// Casers are stateful; one per call.
	lower := cases.Lower(language.Und)

	var b strings.Builder
	for _, r := range lower.String(title) {
		b.WriteRune(slugRune(r))
	}

	slug := dashesRun.ReplaceAllString(b.String(), "-")
	slug = strings.TrimPrefix(slug, "-")
	slug = strings.TrimSuffix(slug, "-")
	return slug
}

func slugRune(r rune) rune {
	if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
		return r
	}
	// Decompose: "á" is 'a' followed by a combining accent.
	decomposed := []rune(norm.NFD.String(string(r)))
	if len(decomposed) < 2 {
		return '-'
	}
	switch base := decomposed[0]; base {
	case 'a', 'e', 'i', 'o', 'u', 'n':
		return base
	}
	return '-'
}
