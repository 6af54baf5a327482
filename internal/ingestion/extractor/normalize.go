package extractor

import (
	"strings"
	"unicode/utf8"
)

func sanitizeUTF8(s string) string {
	if s == "" || utf8.ValidString(s) {
		return s
	}
	// Replace invalid byte sequences with a space (keeps words separated)
	return strings.ToValidUTF8(s, " ")
}

// normalizeText trims the edges, unifies line endings, and collapses runs
// of blank lines. Interior single newlines survive so page and paragraph
// structure stays readable in the corpus.
func normalizeText(s string) string {
	s = sanitizeUTF8(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, " ", " ")

	lines := strings.Split(s, "\n")
	var b strings.Builder
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 1 {
				continue
			}
			line = ""
		} else {
			blanks = 0
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	return strings.TrimSpace(b.String())
}

func joinNonEmpty(parts []string, sep string) string {
	var b strings.Builder
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(p)
	}
	return b.String()
}
