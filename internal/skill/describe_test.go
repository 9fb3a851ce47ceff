package skill

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("y", 300)
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"first line", "A useful skill.\nMore detail.", "A useful skill."},
		{"skips headings", "# Title\n## Sub\nThe real summary.", "The real summary."},
		{"skips blank lines", "\n\n   \nSummary here.", "Summary here."},
		{"trims whitespace", "   padded line   \n", "padded line"},
		{"truncates", long, long[:200]},
		{"only headings", "# One\n## Two", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Excerpt(tt.content); got != tt.want {
				t.Errorf("Excerpt(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		limit int
		want  string
	}{
		{"short enough", "héllo", 10, "héllo"},
		{"cut on ascii", "abcdef", 3, "abc"},
		{"cut inside multibyte rune", "aé", 2, "a"},
		{"cut at rune boundary", "aé", 3, "aé"},
		{"cjk", "日本語", 4, "日"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.s, tt.limit)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.limit, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.s, tt.limit)
			}
		})
	}
}

func TestExcerptTruncatesOnRuneBoundary(t *testing.T) {
	// 100 two-byte runes; the 200-byte cap falls mid-rune at byte 200 only
	// if truncation ignored boundaries, so the last full rune must survive.
	line := "x" + strings.Repeat("é", 100)
	got := Excerpt(line)
	if !utf8.ValidString(got) {
		t.Fatalf("Excerpt produced invalid UTF-8: %q", got)
	}
	if want := "x" + strings.Repeat("é", 99); got != want {
		t.Errorf("Excerpt = %d bytes, want %d", len(got), len(want))
	}
}

func TestDeriveDescription(t *testing.T) {
	files := []FileInput{
		{Path: "notes.md", Content: "Not the marker."},
		{Path: MarkerFile, Content: "# Skill\n\nDoes the thing.\n"},
	}
	if got := DeriveDescription(files); got != "Does the thing." {
		t.Errorf("DeriveDescription = %q", got)
	}
	if got := DeriveDescription(files[:1]); got != "" {
		t.Errorf("expected empty description without marker file, got %q", got)
	}
}
