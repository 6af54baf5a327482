package extractor

import "testing"

func TestNormalizeTextCollapsesBlankRuns(t *testing.T) {
	in := "line one\r\n\r\n\r\n\r\nline two\r\n"
	want := "line one\n\nline two"
	if got := normalizeText(in); got != want {
		t.Fatalf("normalizeText = %q, want %q", got, want)
	}
}

func TestNormalizeTextKeepsInteriorNewlines(t *testing.T) {
	in := "a\nb\nc"
	if got := normalizeText(in); got != in {
		t.Fatalf("normalizeText = %q, want unchanged", got)
	}
}

func TestNormalizeTextInvalidUTF8Replaced(t *testing.T) {
	in := "ok\xff\xfeok"
	got := normalizeText(in)
	for _, r := range got {
		if r == 0xFFFD {
			t.Fatalf("replacement rune leaked into output: %q", got)
		}
	}
	if got == in {
		t.Fatalf("invalid bytes should be replaced")
	}
}

func TestJoinNonEmpty(t *testing.T) {
	got := joinNonEmpty([]string{"a", "  ", "", "b"}, "\n")
	if got != "a\nb" {
		t.Fatalf("joinNonEmpty = %q", got)
	}
}
