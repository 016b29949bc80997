package importapp

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeHandle derives a URL-safe handle from a Product URL cell. Full
// URLs and paths contribute their last segment. The result is lower-case
// ASCII letters and digits joined by single hyphens.
func NormalizeHandle(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "/") {
		if u, err := url.Parse(raw); err == nil {
			raw = lastPathSegment(u.Path)
		}
	}
	return slugify(raw, '-')
}

// metafieldKey turns a Custom Label into a snake_case key
func metafieldKey(label string) string {
	return slugify(label, '_')
}

func lastPathSegment(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	return segments[len(segments)-1]
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func slugify(s string, sep rune) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteRune(sep)
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
