// Package pipeline walks the session's sources in declaration order and
// assembles the aggregated study corpus.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/studyforge/quizgen-backend/internal/domain"
	"github.com/studyforge/quizgen-backend/internal/ingestion/extractor"
	"github.com/studyforge/quizgen-backend/internal/ingestion/sampler"
	"github.com/studyforge/quizgen-backend/internal/pkg/ctxutil"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
	"github.com/studyforge/quizgen-backend/internal/status"
)

// DeliverFunc hands a finished snapshot set back to the caller. It runs on
// the pipeline goroutine; the last delivered set wins on their side.
type DeliverFunc func(set domain.SnapshotSet)

type Pipeline struct {
	log     *logger.Logger
	ex      *extractor.Extractor
	sampler *sampler.Sampler
}

func New(log *logger.Logger, ex *extractor.Extractor, s *sampler.Sampler) (*Pipeline, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ex == nil {
		return nil, fmt.Errorf("extractor required")
	}
	if s == nil {
		return nil, fmt.Errorf("sampler required")
	}
	return &Pipeline{
		log:     log.With("component", "IngestionPipeline"),
		ex:      ex,
		sampler: s,
	}, nil
}

// BuildCorpus extracts every source in order and aggregates the texts with
// the manual text. Sources run one at a time; the only parallelism is
// inside a video source, where the transcript and the frame samples are
// independent and run together. The first failure aborts the whole build.
func (p *Pipeline) BuildCorpus(
	ctx context.Context,
	manualText string,
	items []domain.SourceItem,
	sink status.Sink,
	deliver DeliverFunc,
) (string, error) {
	ctx = ctxutil.Default(ctx)
	if sink == nil {
		sink = status.Discard
	}

	texts := make([]string, 0, len(items))
	for _, item := range items {
		if ctx.Err() != nil {
			return "", &domain.ExtractionError{Name: item.Name, Stage: "build corpus", Err: ctx.Err()}
		}

		var text string
		var err error
		if item.Kind == domain.KindVideo {
			text, err = p.processVideo(ctx, item, sink, deliver)
		} else {
			text, err = p.ex.Extract(ctx, item, sink)
		}
		if err != nil {
			return "", err
		}
		texts = append(texts, text)
	}

	corpus := Aggregate(manualText, texts)
	p.log.Info("Corpus built",
		"sources", len(items),
		"manual_chars", len(strings.TrimSpace(manualText)),
		"corpus_chars", len(corpus),
	)
	return corpus, nil
}

// processVideo runs the transcript and the frame sampling concurrently.
// Either failure cancels the other through the group context.
func (p *Pipeline) processVideo(ctx context.Context, item domain.SourceItem, sink status.Sink, deliver DeliverFunc) (string, error) {
	g, gctx := errgroup.WithContext(ctx)

	var transcript string
	g.Go(func() error {
		t, err := p.ex.Extract(gctx, item, sink)
		if err != nil {
			return err
		}
		transcript = t
		return nil
	})

	g.Go(func() error {
		sink.Notify(fmt.Sprintf("Capturing snapshots from %s...", item.Name))
		set, err := p.sampler.Sample(gctx, item, sink)
		if err != nil {
			return err
		}
		if deliver != nil {
			deliver(set)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	return transcript, nil
}

// Aggregate joins the manual text and every non-empty extracted text with a
// blank line, manual text first. All-whitespace inputs contribute nothing.
func Aggregate(manualText string, texts []string) string {
	parts := make([]string, 0, len(texts)+1)
	if t := strings.TrimSpace(manualText); t != "" {
		parts = append(parts, t)
	}
	for _, text := range texts {
		if t := strings.TrimSpace(text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}
