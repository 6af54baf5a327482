package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/studyforge/quizgen-backend/internal/domain"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(logger.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func threeQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		Summary: "summary",
		Questions: []domain.QuizQuestion{
			{Question: "q0", Options: []string{"a", "b"}, Answer: "a"},
			{Question: "q1", Options: []string{"a", "b"}, Answer: "b"},
			{Question: "q2", Options: []string{"a", "b"}, Answer: "a"},
		},
	}
}

func openQuiz(t *testing.T, m *Manager, quiz domain.Quiz) {
	t.Helper()
	version, _ := m.BeginGeneration()
	if _, err := m.CompleteGeneration(version, quiz); err != nil {
		t.Fatalf("CompleteGeneration: %v", err)
	}
}

func TestInitialStateIsIdle(t *testing.T) {
	m := newTestManager(t)
	snap := m.Current()
	if snap.State != StateIdle {
		t.Fatalf("state = %q, want idle", snap.State)
	}
	if snap.Quiz != nil || snap.Score != nil {
		t.Fatalf("fresh session has quiz or score")
	}
}

func TestBeginGenerationDiscardsPriorRoundAtomically(t *testing.T) {
	m := newTestManager(t)
	openQuiz(t, m, threeQuestionQuiz())
	if _, err := m.SelectAnswer(0, "a"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	_, snap := m.BeginGeneration()
	if snap.State != StateGenerating {
		t.Fatalf("state = %q, want generating", snap.State)
	}
	if snap.Quiz != nil {
		t.Fatalf("quiz should be discarded")
	}
	if len(snap.Answers) != 0 {
		t.Fatalf("answers should be reset, got %v", snap.Answers)
	}
	if snap.Score != nil {
		t.Fatalf("score should be reset")
	}
}

func TestInputsRejectedWhileGenerating(t *testing.T) {
	m := newTestManager(t)
	m.BeginGeneration()

	var ve *domain.ValidationError
	if _, err := m.SetManualText("new text"); !errors.As(err, &ve) {
		t.Fatalf("SetManualText err = %v, want ValidationError", err)
	}
	if _, err := m.SetFiles(nil); !errors.As(err, &ve) {
		t.Fatalf("SetFiles err = %v, want ValidationError", err)
	}
}

func TestCompleteGenerationStaleVersionDiscarded(t *testing.T) {
	m := newTestManager(t)
	oldVersion, _ := m.BeginGeneration()
	m.BeginGeneration() // supersedes

	_, err := m.CompleteGeneration(oldVersion, threeQuestionQuiz())
	if !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("err = %v, want ErrStaleVersion", err)
	}
	if snap := m.Current(); snap.Quiz != nil {
		t.Fatalf("stale quiz must not be installed")
	}
}

func TestFailGenerationReturnsToIdleWithError(t *testing.T) {
	m := newTestManager(t)
	version, _ := m.BeginGeneration()

	snap, err := m.FailGeneration(version, fmt.Errorf("extract notes.pdf: count pages failed"))
	if err != nil {
		t.Fatalf("FailGeneration: %v", err)
	}
	if snap.State != StateIdle {
		t.Fatalf("state = %q, want idle", snap.State)
	}
	if snap.Quiz != nil {
		t.Fatalf("failed round must not leave a quiz")
	}
	if snap.LastError == "" {
		t.Fatalf("last error should be recorded")
	}
}

func TestSelectAnswerOverwriteKeepsLatest(t *testing.T) {
	m := newTestManager(t)
	openQuiz(t, m, threeQuestionQuiz())

	if _, err := m.SelectAnswer(1, "a"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	snap, err := m.SelectAnswer(1, "b")
	if err != nil {
		t.Fatalf("SelectAnswer overwrite: %v", err)
	}
	if got := snap.Answers[1]; got != "b" {
		t.Fatalf("answer = %q, want b", got)
	}
	if len(snap.Answers) != 1 {
		t.Fatalf("answers = %v, want single entry", snap.Answers)
	}
}

func TestSelectAnswerInvalidIndexRejected(t *testing.T) {
	m := newTestManager(t)
	openQuiz(t, m, threeQuestionQuiz())

	var ve *domain.ValidationError
	if _, err := m.SelectAnswer(3, "a"); !errors.As(err, &ve) {
		t.Fatalf("err for out-of-range index = %v, want ValidationError", err)
	}
	if _, err := m.SelectAnswer(-1, "a"); !errors.As(err, &ve) {
		t.Fatalf("err for negative index = %v, want ValidationError", err)
	}
}

func TestSelectAnswerBeforeOpenRejected(t *testing.T) {
	m := newTestManager(t)
	snap, err := m.SelectAnswer(0, "a")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(snap.Answers) != 0 {
		t.Fatalf("answers = %v, want none", snap.Answers)
	}
	if snap.State != StateIdle {
		t.Fatalf("state = %q, want idle", snap.State)
	}
}

func TestSubmitRejectedUntilComplete(t *testing.T) {
	m := newTestManager(t)
	openQuiz(t, m, threeQuestionQuiz())

	m.SelectAnswer(0, "a")
	m.SelectAnswer(1, "b")

	if _, err := m.Submit(); !errors.Is(err, domain.ErrIncompleteAnswers) {
		t.Fatalf("err = %v, want ErrIncompleteAnswers", err)
	}
	if snap := m.Current(); snap.State != StateOpen {
		t.Fatalf("rejected submit must not change state, got %q", snap.State)
	}

	m.SelectAnswer(2, "a")
	snap, err := m.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap.State != StateSubmitted {
		t.Fatalf("state = %q, want submitted", snap.State)
	}
}

func TestScoreRounding(t *testing.T) {
	cases := []struct {
		name    string
		answers map[int]string // per-question selections for threeQuestionQuiz
		want    int
	}{
		{"one of three", map[int]string{0: "a", 1: "a", 2: "b"}, 33},
		{"two of three", map[int]string{0: "a", 1: "b", 2: "b"}, 67},
		{"all correct", map[int]string{0: "a", 1: "b", 2: "a"}, 100},
		{"none correct", map[int]string{0: "b", 1: "a", 2: "b"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(t)
			openQuiz(t, m, threeQuestionQuiz())
			for i, opt := range tc.answers {
				if _, err := m.SelectAnswer(i, opt); err != nil {
					t.Fatalf("SelectAnswer(%d): %v", i, err)
				}
			}
			snap, err := m.Submit()
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if snap.Score == nil || *snap.Score != tc.want {
				t.Fatalf("score = %v, want %d", snap.Score, tc.want)
			}
		})
	}
}

func TestScoreThreeOfFourIs75(t *testing.T) {
	quiz := domain.Quiz{Questions: []domain.QuizQuestion{
		{Question: "q0", Options: []string{"a", "b"}, Answer: "a"},
		{Question: "q1", Options: []string{"a", "b"}, Answer: "a"},
		{Question: "q2", Options: []string{"a", "b"}, Answer: "a"},
		{Question: "q3", Options: []string{"a", "b"}, Answer: "a"},
	}}
	m := newTestManager(t)
	openQuiz(t, m, quiz)
	m.SelectAnswer(0, "a")
	m.SelectAnswer(1, "a")
	m.SelectAnswer(2, "a")
	m.SelectAnswer(3, "b")

	snap, err := m.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap.Score == nil || *snap.Score != 75 {
		t.Fatalf("score = %v, want 75", snap.Score)
	}
}

func TestNonMemberAnswerNeverMatches(t *testing.T) {
	quiz := domain.Quiz{Questions: []domain.QuizQuestion{
		{Question: "q0", Options: []string{"a", "b"}, Answer: "c"},
	}}
	m := newTestManager(t)
	openQuiz(t, m, quiz)
	m.SelectAnswer(0, "a")

	snap, err := m.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap.Score == nil || *snap.Score != 0 {
		t.Fatalf("score = %v, want 0", snap.Score)
	}
}

func TestPostSubmitImmutability(t *testing.T) {
	m := newTestManager(t)
	openQuiz(t, m, threeQuestionQuiz())
	m.SelectAnswer(0, "a")
	m.SelectAnswer(1, "b")
	m.SelectAnswer(2, "a")
	submitted, err := m.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	after, err := m.SelectAnswer(0, "b")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err after submit = %v, want ValidationError", err)
	}
	if after.Answers[0] != "a" {
		t.Fatalf("answer mutated after submit: %v", after.Answers)
	}
	if *after.Score != *submitted.Score {
		t.Fatalf("score changed after submit")
	}
	if after.State != StateSubmitted {
		t.Fatalf("state = %q, want submitted", after.State)
	}
}

func TestDeliverSnapshotsLastWinsAndStaleDropped(t *testing.T) {
	m := newTestManager(t)
	version, _ := m.BeginGeneration()

	first := domain.SnapshotSet{SourceName: "a.mp4", Snapshots: []domain.Snapshot{{Index: 0}}}
	second := domain.SnapshotSet{SourceName: "b.mp4", Snapshots: []domain.Snapshot{{Index: 0}, {Index: 1}}}

	if err := m.DeliverSnapshots(version, first); err != nil {
		t.Fatalf("DeliverSnapshots: %v", err)
	}
	if err := m.DeliverSnapshots(version, second); err != nil {
		t.Fatalf("DeliverSnapshots: %v", err)
	}
	if snap := m.Current(); snap.Snapshots == nil || snap.Snapshots.SourceName != "b.mp4" {
		t.Fatalf("last delivered set should win")
	}

	m.BeginGeneration()
	if err := m.DeliverSnapshots(version, first); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("stale delivery err = %v, want ErrStaleVersion", err)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	m := newTestManager(t)
	openQuiz(t, m, threeQuestionQuiz())

	snap := m.Current()
	snap.Quiz.Questions[0].Answer = "hacked"
	snap.Answers[0] = "hacked"

	fresh := m.Current()
	if fresh.Quiz.Questions[0].Answer == "hacked" {
		t.Fatalf("quiz aliases manager state")
	}
	if _, ok := fresh.Answers[0]; ok {
		t.Fatalf("answers alias manager state")
	}
}

func TestSetStatusStaleVersionIgnored(t *testing.T) {
	m := newTestManager(t)
	version, _ := m.BeginGeneration()
	m.BeginGeneration()

	if err := m.SetStatus(version, "Reading page 1 of 3..."); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("err = %v, want ErrStaleVersion", err)
	}
}

func TestEmptyQuizSubmitsImmediately(t *testing.T) {
	m := newTestManager(t)
	openQuiz(t, m, domain.Quiz{Summary: "s", Questions: []domain.QuizQuestion{}})

	snap, err := m.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap.State != StateSubmitted {
		t.Fatalf("state = %q, want submitted", snap.State)
	}
	if snap.Score == nil || *snap.Score != 100 {
		t.Fatalf("score = %v, want 100", snap.Score)
	}
}
