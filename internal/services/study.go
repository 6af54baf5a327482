package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/studyforge/quizgen-backend/internal/clients/openai"
	"github.com/studyforge/quizgen-backend/internal/domain"
	"github.com/studyforge/quizgen-backend/internal/ingestion/pipeline"
	"github.com/studyforge/quizgen-backend/internal/pkg/ctxutil"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
	"github.com/studyforge/quizgen-backend/internal/platform/localmedia"
	"github.com/studyforge/quizgen-backend/internal/session"
)

// Upload is one file received from the caller, still in memory.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// StudyService is the single surface the HTTP layer talks to. It owns the
// session manager and runs generation rounds in the background.
type StudyService interface {
	SetManualText(text string) (session.Snapshot, error)
	SetFiles(ctx context.Context, uploads []Upload) (session.Snapshot, error)

	// Generate validates inputs synchronously, then builds the corpus and
	// asks the model for a quiz on a background goroutine. The returned
	// snapshot is the state right after the round started.
	Generate(ctx context.Context) (session.Snapshot, error)

	SelectAnswer(questionIndex int, option string) (session.Snapshot, error)
	Submit() (session.Snapshot, error)

	Current() session.Snapshot

	// Wait blocks until no generation round is in flight. Tests use it.
	Wait()
}

type studyService struct {
	log      *logger.Logger
	manager  *session.Manager
	pipeline *pipeline.Pipeline
	ai       openai.Client
	media    localmedia.Tools

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// staged releases the previous round of uploaded temp files.
	staged func()
}

func NewStudyService(
	log *logger.Logger,
	manager *session.Manager,
	pl *pipeline.Pipeline,
	ai openai.Client,
	media localmedia.Tools,
) (StudyService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if manager == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if pl == nil {
		return nil, fmt.Errorf("pipeline required")
	}
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	if media == nil {
		return nil, fmt.Errorf("media tools required")
	}
	return &studyService{
		log:      log.With("service", "StudyService"),
		manager:  manager,
		pipeline: pl,
		ai:       ai,
		media:    media,
	}, nil
}

func (s *studyService) SetManualText(text string) (session.Snapshot, error) {
	return s.manager.SetManualText(text)
}

// SetFiles stages every upload on local disk and replaces the session's
// file list. Unsupported kinds are accepted here; they fail fast later,
// when generation tries to extract them.
func (s *studyService) SetFiles(ctx context.Context, uploads []Upload) (session.Snapshot, error) {
	ctx = ctxutil.Default(ctx)

	items := make([]domain.SourceItem, 0, len(uploads))
	cleanups := make([]func(), 0, len(uploads))
	for _, up := range uploads {
		kind := domain.ClassifyKind(up.Name, up.MimeType)
		ext := strings.TrimPrefix(filepath.Ext(up.Name), ".")
		path, cleanup, err := s.media.WriteTempFile(ctx, up.Data, ext)
		if err != nil {
			for _, c := range cleanups {
				c()
			}
			return s.manager.Current(), fmt.Errorf("stage upload %s: %w", up.Name, err)
		}
		cleanups = append(cleanups, cleanup)
		items = append(items, domain.SourceItem{
			ID:        uuid.New(),
			Name:      up.Name,
			Kind:      kind,
			MimeType:  up.MimeType,
			Path:      path,
			SizeBytes: int64(len(up.Data)),
		})
	}

	snap, err := s.manager.SetFiles(items)
	if err != nil {
		for _, c := range cleanups {
			c()
		}
		return snap, err
	}

	s.swapStagedFiles(cleanups)
	return snap, nil
}

// swapStagedFiles drops the previous round of staged files once a new list
// is accepted.
func (s *studyService) swapStagedFiles(cleanups []func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staged != nil {
		s.staged()
	}
	s.staged = func() {
		for _, c := range cleanups {
			c()
		}
	}
}

func (s *studyService) Generate(ctx context.Context) (session.Snapshot, error) {
	current := s.manager.Current()
	if strings.TrimSpace(current.ManualText) == "" && len(current.Files) == 0 {
		return current, domain.ErrEmptyCorpus
	}

	// Version creation and the cancel-slot swap must be one critical
	// section: otherwise two overlapping calls can swap in reverse order
	// and the older one cancels the newer round's context.
	s.mu.Lock()
	version, snap := s.manager.BeginGeneration()
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runGeneration(runCtx, version, snap)

	return snap, nil
}

func (s *studyService) runGeneration(ctx context.Context, version uuid.UUID, snap session.Snapshot) {
	defer s.wg.Done()

	sink := statusSink{manager: s.manager, version: version}
	deliver := func(set domain.SnapshotSet) {
		_ = s.manager.DeliverSnapshots(version, set)
	}

	corpus, err := s.pipeline.BuildCorpus(ctx, snap.ManualText, snap.Files, sink, deliver)
	if err != nil {
		s.finishWithError(version, err)
		return
	}
	if strings.TrimSpace(corpus) == "" {
		s.finishWithError(version, domain.ErrEmptyCorpus)
		return
	}

	_ = s.manager.SetStatus(version, "Generating quiz...")
	quiz, err := s.ai.GenerateQuiz(ctx, corpus)
	if err != nil {
		s.finishWithError(version, err)
		return
	}

	if _, err := s.manager.CompleteGeneration(version, quiz); err != nil {
		s.log.Warn("Quiz discarded, round superseded", "version", version.String())
	}
}

func (s *studyService) finishWithError(version uuid.UUID, cause error) {
	if _, err := s.manager.FailGeneration(version, cause); err != nil {
		s.log.Warn("Failure discarded, round superseded",
			"version", version.String(),
			"cause", cause.Error(),
		)
		return
	}
	s.log.Error("Generation round failed", "version", version.String(), "error", cause.Error())
}

func (s *studyService) SelectAnswer(questionIndex int, option string) (session.Snapshot, error) {
	return s.manager.SelectAnswer(questionIndex, option)
}

func (s *studyService) Submit() (session.Snapshot, error) {
	return s.manager.Submit()
}

func (s *studyService) Current() session.Snapshot {
	return s.manager.Current()
}

func (s *studyService) Wait() {
	s.wg.Wait()
}

// statusSink routes pipeline progress lines into the session, tagged with
// the round that produced them.
type statusSink struct {
	manager *session.Manager
	version uuid.UUID
}

func (ss statusSink) Notify(message string) {
	_ = ss.manager.SetStatus(ss.version, message)
}
