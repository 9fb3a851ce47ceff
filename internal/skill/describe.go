package skill

import (
	"strings"
	"unicode/utf8"
)

// MarkerFile is the conventionally-named documentation file a skill bundle
// carries at its root. The import pipeline requires it; the engine only uses
// it to derive a description when none is supplied.
const MarkerFile = "SKILL.md"

const maxExcerptLength = 200

// Excerpt extracts a short description from documentation content: the
// first non-empty line that is not a markdown heading, truncated to 200
// characters. Returns "" when no such line exists.
func Excerpt(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return truncate(line, maxExcerptLength)
	}
	return ""
}

// truncate cuts s to at most limit bytes, backing up to a rune boundary so
// a multibyte sequence is never split.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// DeriveDescription best-effort derives a description from the marker file
// in a file batch. It never fails; absence of the marker file or of usable
// content yields "".
func DeriveDescription(files []FileInput) string {
	for _, f := range files {
		if f.Path == MarkerFile {
			return Excerpt(f.Content)
		}
	}
	return ""
}
