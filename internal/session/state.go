// Package session holds the quiz lifecycle state machine. Transitions are
// pure functions over an immutable Snapshot value; the Manager wraps them
// with locking and version tokens.
package session

import (
	"math"

	"github.com/studyforge/quizgen-backend/internal/domain"
)

// State is the quiz lifecycle phase.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateOpen       State = "open"
	StateSubmitted  State = "submitted"
)

// Snapshot is the full observable session state at one instant. Callers
// always receive deep copies; nothing in a Snapshot aliases Manager
// internals.
type Snapshot struct {
	State      State               `json:"state"`
	ManualText string              `json:"manual_text"`
	Files      []domain.SourceItem `json:"files"`
	Quiz       *domain.Quiz        `json:"quiz,omitempty"`
	Answers    map[int]string      `json:"answers"`
	Score      *int                `json:"score,omitempty"`
	StatusLine string              `json:"status"`
	LastError  string              `json:"last_error,omitempty"`
	Snapshots  *domain.SnapshotSet `json:"-"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Files = append([]domain.SourceItem(nil), s.Files...)
	if s.Quiz != nil {
		q := s.Quiz.Clone()
		out.Quiz = &q
	}
	out.Answers = make(map[int]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	if s.Score != nil {
		sc := *s.Score
		out.Score = &sc
	}
	if s.Snapshots != nil {
		set := s.Snapshots.Clone()
		out.Snapshots = &set
	}
	return out
}

func newSnapshot() Snapshot {
	return Snapshot{
		State:   StateIdle,
		Files:   []domain.SourceItem{},
		Answers: map[int]string{},
	}
}

// beginGeneration discards the prior quiz round atomically: quiz, answers,
// score and error all reset in the same transition. Inputs survive.
func beginGeneration(s Snapshot) Snapshot {
	next := s.clone()
	next.State = StateGenerating
	next.Quiz = nil
	next.Answers = map[int]string{}
	next.Score = nil
	next.LastError = ""
	next.StatusLine = "Generating quiz..."
	return next
}

func completeGeneration(s Snapshot, quiz domain.Quiz) Snapshot {
	next := s.clone()
	q := quiz.Clone()
	next.State = StateOpen
	next.Quiz = &q
	next.Answers = map[int]string{}
	next.Score = nil
	next.LastError = ""
	next.StatusLine = "Quiz ready"
	return next
}

// failGeneration returns to Idle with no quiz and untouched (empty)
// answers, which distinguishes a failed round from a successful
// zero-question quiz.
func failGeneration(s Snapshot, errMsg string) Snapshot {
	next := s.clone()
	next.State = StateIdle
	next.Quiz = nil
	next.Answers = map[int]string{}
	next.Score = nil
	next.LastError = errMsg
	next.StatusLine = ""
	return next
}

func selectAnswer(s Snapshot, questionIndex int, option string) Snapshot {
	next := s.clone()
	next.Answers[questionIndex] = option
	return next
}

func submit(s Snapshot) Snapshot {
	next := s.clone()
	score := computeScore(*next.Quiz, next.Answers)
	next.Score = &score
	next.State = StateSubmitted
	next.StatusLine = "Quiz submitted"
	return next
}

// computeScore is round-half-away-from-zero of 100*correct/total, matching
// 1 of 3 -> 33 and 3 of 4 -> 75. A zero-question quiz scores 100: there was
// nothing to get wrong.
func computeScore(quiz domain.Quiz, answers map[int]string) int {
	total := len(quiz.Questions)
	if total == 0 {
		return 100
	}
	correct := quiz.CorrectCount(answers)
	return int(math.Round(100 * float64(correct) / float64(total)))
}
