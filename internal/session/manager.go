package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/studyforge/quizgen-backend/internal/domain"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
)

// ErrStaleVersion reports a result arriving for a generation round that has
// since been superseded. Callers drop the result and move on.
var ErrStaleVersion = &domain.ValidationError{Reason: "session version is stale"}

// Manager owns the single current session. Every generation round gets a
// fresh version token; asynchronous results must present the token they
// were started with, so work from a discarded round can never leak into a
// newer one.
type Manager struct {
	log *logger.Logger

	mu      sync.Mutex
	state   Snapshot
	version uuid.UUID
}

func NewManager(log *logger.Logger) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Manager{
		log:     log.With("component", "SessionManager"),
		state:   newSnapshot(),
		version: uuid.New(),
	}, nil
}

// Current returns a deep copy of the session state.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Version returns the token of the active generation round.
func (m *Manager) Version() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// SetManualText replaces the typed study text. Rejected mid-generation so
// the corpus being built always matches what the user saw when they hit
// generate.
func (m *Manager) SetManualText(text string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.State == StateGenerating {
		return m.state.clone(), &domain.ValidationError{Reason: "cannot change text while generating"}
	}
	next := m.state.clone()
	next.ManualText = text
	m.state = next
	return next.clone(), nil
}

// SetFiles replaces the whole file list. Same mid-generation rule as
// SetManualText.
func (m *Manager) SetFiles(items []domain.SourceItem) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.State == StateGenerating {
		return m.state.clone(), &domain.ValidationError{Reason: "cannot change files while generating"}
	}
	next := m.state.clone()
	next.Files = append([]domain.SourceItem{}, items...)
	next.Snapshots = nil
	m.state = next
	return next.clone(), nil
}

// BeginGeneration starts a new round from any state, superseding whatever
// was in flight, and returns the new version token.
func (m *Manager) BeginGeneration() (uuid.UUID, Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = beginGeneration(m.state)
	m.version = uuid.New()
	m.log.Info("Generation round started", "version", m.version.String())
	return m.version, m.state.clone()
}

// CompleteGeneration installs the quiz for the given round. A stale token
// means a newer round superseded this one; the quiz is discarded.
func (m *Manager) CompleteGeneration(version uuid.UUID, quiz domain.Quiz) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version != m.version {
		m.log.Warn("Discarding quiz from superseded round", "version", version.String())
		return m.state.clone(), ErrStaleVersion
	}
	m.state = completeGeneration(m.state, quiz)
	return m.state.clone(), nil
}

// FailGeneration records a failed round and returns the machine to Idle.
func (m *Manager) FailGeneration(version uuid.UUID, cause error) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version != m.version {
		return m.state.clone(), ErrStaleVersion
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	m.state = failGeneration(m.state, msg)
	return m.state.clone(), nil
}

// SelectAnswer records or overwrites the answer for one question. Outside
// Open the state is untouched and the caller gets a ValidationError.
func (m *Manager) SelectAnswer(questionIndex int, option string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.State != StateOpen {
		return m.state.clone(), &domain.ValidationError{Reason: "no open quiz to answer"}
	}
	if m.state.Quiz == nil || questionIndex < 0 || questionIndex >= len(m.state.Quiz.Questions) {
		return m.state.clone(), &domain.ValidationError{Reason: fmt.Sprintf("no question at index %d", questionIndex)}
	}
	m.state = selectAnswer(m.state, questionIndex, option)
	return m.state.clone(), nil
}

// Submit grades the quiz. Rejected with ErrIncompleteAnswers until every
// question has an answer; the state does not change on rejection.
func (m *Manager) Submit() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.State != StateOpen {
		return m.state.clone(), &domain.ValidationError{Reason: "no open quiz to submit"}
	}
	if len(m.state.Answers) < len(m.state.Quiz.Questions) {
		return m.state.clone(), domain.ErrIncompleteAnswers
	}
	m.state = submit(m.state)
	m.log.Info("Quiz submitted", "score", *m.state.Score)
	return m.state.clone(), nil
}

// DeliverSnapshots installs a finished frame set for the given round. The
// last delivered set wins; sets from superseded rounds are dropped.
func (m *Manager) DeliverSnapshots(version uuid.UUID, set domain.SnapshotSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version != m.version {
		m.log.Warn("Discarding snapshots from superseded round",
			"version", version.String(),
			"source", set.SourceName,
		)
		return ErrStaleVersion
	}
	next := m.state.clone()
	cp := set.Clone()
	next.Snapshots = &cp
	m.state = next
	return nil
}

// SetStatus updates the progress line for the given round.
func (m *Manager) SetStatus(version uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version != m.version {
		return ErrStaleVersion
	}
	next := m.state.clone()
	next.StatusLine = message
	m.state = next
	return nil
}
