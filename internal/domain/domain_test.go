package domain

import (
	"errors"
	"testing"
)

func TestClassifyKind(t *testing.T) {
	cases := []struct {
		name string
		mime string
		want SourceKind
	}{
		{"notes.pdf", "application/pdf", KindPDF},
		{"notes.pdf", "application/octet-stream", KindPDF},
		{"essay.docx", "application/octet-stream", KindDOCX},
		{"essay.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", KindDOCX},
		{"readme.txt", "text/plain", KindText},
		{"notes.md", "", KindText},
		{"scan.png", "image/png", KindImage},
		{"scan", "image/jpeg", KindImage},
		{"lecture.mp3", "audio/mpeg", KindAudio},
		{"lecture.mp4", "video/mp4", KindVideo},
		{"clip.webm", "", KindVideo},
		{"archive.zip", "application/zip", KindUnsupported},
		{"", "", KindUnsupported},
	}
	for _, tc := range cases {
		if got := ClassifyKind(tc.name, tc.mime); got != tc.want {
			t.Errorf("ClassifyKind(%q, %q) = %q, want %q", tc.name, tc.mime, got, tc.want)
		}
	}
}

func TestQuizCorrectCount(t *testing.T) {
	quiz := Quiz{Questions: []QuizQuestion{
		{Question: "q0", Options: []string{"a", "b"}, Answer: "a"},
		{Question: "q1", Options: []string{"a", "b"}, Answer: "b"},
		{Question: "q2", Options: []string{"a", "b"}, Answer: "missing"},
	}}

	answers := map[int]string{0: "a", 1: "a", 2: "missing"}
	// q2's answer never appears among its options but still matches the
	// selection literally; the rule is plain string equality.
	if got := quiz.CorrectCount(answers); got != 2 {
		t.Fatalf("correct = %d, want 2", got)
	}

	if got := quiz.CorrectCount(map[int]string{}); got != 0 {
		t.Fatalf("correct with no answers = %d, want 0", got)
	}
}

func TestQuizCloneIsDeep(t *testing.T) {
	quiz := Quiz{
		Summary: "s",
		Questions: []QuizQuestion{
			{Question: "q0", Options: []string{"a", "b"}, Answer: "a"},
		},
	}
	cp := quiz.Clone()
	cp.Questions[0].Options[0] = "mutated"
	if quiz.Questions[0].Options[0] != "a" {
		t.Fatalf("clone shares option storage")
	}
}

func TestSnapshotSetCloneIsDeep(t *testing.T) {
	set := SnapshotSet{Snapshots: []Snapshot{{Index: 0, PNG: []byte{1, 2, 3}}}}
	cp := set.Clone()
	cp.Snapshots[0].PNG[0] = 9
	if set.Snapshots[0].PNG[0] != 1 {
		t.Fatalf("clone shares PNG storage")
	}
}

func TestErrorMessagesAndUnwrap(t *testing.T) {
	cause := errors.New("boom")

	ee := &ExtractionError{Name: "notes.pdf", Stage: "count pages", Err: cause}
	if !errors.Is(ee, cause) {
		t.Fatalf("ExtractionError should unwrap to cause")
	}

	ge := NewGenerationError("content is not quiz JSON", cause)
	if !errors.Is(ge, cause) {
		t.Fatalf("GenerationError should unwrap to cause")
	}
	if msg := ge.Error(); msg == "" {
		t.Fatalf("empty message")
	}

	te := &TransportError{Op: "generate quiz", Status: 503}
	if msg := te.Error(); msg == "" {
		t.Fatalf("empty message")
	}
}
