// Package extractor turns staged source files into plain text, one file at
// a time. Each supported kind has its own path; all of them end in the same
// place: a normalized UTF-8 string for the corpus.
package extractor

import (
	"context"
	"fmt"
	"os"

	"github.com/studyforge/quizgen-backend/internal/clients/openai"
	"github.com/studyforge/quizgen-backend/internal/domain"
	"github.com/studyforge/quizgen-backend/internal/pkg/ctxutil"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
	"github.com/studyforge/quizgen-backend/internal/platform/localmedia"
	"github.com/studyforge/quizgen-backend/internal/status"
)

type Extractor struct {
	Log   *logger.Logger
	Media localmedia.Tools
	AI    openai.Client

	OCRLanguage string
}

func New(log *logger.Logger, media localmedia.Tools, ai openai.Client, ocrLanguage string) (*Extractor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if media == nil {
		return nil, fmt.Errorf("media tools required")
	}
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	if ocrLanguage == "" {
		ocrLanguage = "eng"
	}
	return &Extractor{
		Log:         log.With("component", "IngestionExtractor"),
		Media:       media,
		AI:          ai,
		OCRLanguage: ocrLanguage,
	}, nil
}

// Extract produces the text of a single source. Progress lines go to sink
// as the work advances. Any failure aborts with *domain.ExtractionError;
// there is no partial result.
func (e *Extractor) Extract(ctx context.Context, item domain.SourceItem, sink status.Sink) (string, error) {
	ctx = ctxutil.Default(ctx)
	if sink == nil {
		sink = status.Discard
	}

	var (
		text string
		err  error
	)
	switch item.Kind {
	case domain.KindText:
		text, err = e.extractPlainText(item)
	case domain.KindPDF:
		text, err = e.extractPDF(ctx, item, sink)
	case domain.KindDOCX:
		text, err = e.extractDocx(ctx, item, sink)
	case domain.KindImage:
		text, err = e.extractImage(ctx, item, sink)
	case domain.KindAudio, domain.KindVideo:
		text, err = e.extractTranscript(ctx, item, sink)
	default:
		return "", &domain.ExtractionError{
			Name:  item.Name,
			Stage: "classify",
			Err:   fmt.Errorf("unsupported file kind %q", item.Kind),
		}
	}
	if err != nil {
		return "", err
	}

	text = normalizeText(text)
	e.Log.Info("Source extracted",
		"name", item.Name,
		"kind", string(item.Kind),
		"chars", len(text),
	)
	return text, nil
}

func (e *Extractor) extractPlainText(item domain.SourceItem) (string, error) {
	b, err := os.ReadFile(item.Path)
	if err != nil {
		return "", &domain.ExtractionError{Name: item.Name, Stage: "read", Err: err}
	}
	return sanitizeUTF8(string(b)), nil
}

func (e *Extractor) extractPDF(ctx context.Context, item domain.SourceItem, sink status.Sink) (string, error) {
	pages, err := e.Media.CountPDFPages(ctx, item.Path)
	if err != nil {
		return "", &domain.ExtractionError{Name: item.Name, Stage: "count pages", Err: err}
	}

	var parts []string
	for page := 1; page <= pages; page++ {
		sink.Notify(fmt.Sprintf("Reading page %d of %d from %s...", page, pages, item.Name))
		pageText, err := e.Media.ExtractPDFPageText(ctx, item.Path, page)
		if err != nil {
			return "", &domain.ExtractionError{
				Name:  item.Name,
				Stage: fmt.Sprintf("page %d text", page),
				Err:   err,
			}
		}
		parts = append(parts, pageText)
	}
	return joinNonEmpty(parts, "\n"), nil
}

func (e *Extractor) extractDocx(ctx context.Context, item domain.SourceItem, sink status.Sink) (string, error) {
	sink.Notify(fmt.Sprintf("Extracting text from %s...", item.Name))

	outDir, err := os.MkdirTemp("", "quizgen_docx_*")
	if err != nil {
		return "", &domain.ExtractionError{Name: item.Name, Stage: "temp dir", Err: err}
	}
	defer os.RemoveAll(outDir)

	text, err := e.Media.ConvertDocxToText(ctx, item.Path, outDir)
	if err != nil {
		return "", &domain.ExtractionError{Name: item.Name, Stage: "docx convert", Err: err}
	}
	return text, nil
}

func (e *Extractor) extractImage(ctx context.Context, item domain.SourceItem, sink status.Sink) (string, error) {
	sink.Notify(fmt.Sprintf("Recognizing text in %s...", item.Name))

	text, err := e.Media.RecognizeImageText(ctx, item.Path, localmedia.OCROptions{Language: e.OCRLanguage})
	if err != nil {
		return "", &domain.ExtractionError{Name: item.Name, Stage: "ocr", Err: err}
	}

	sink.Notify(fmt.Sprintf("Finished recognizing %s", item.Name))
	return text, nil
}

// extractTranscript covers both audio files and video files; the speech
// endpoint accepts either container directly.
func (e *Extractor) extractTranscript(ctx context.Context, item domain.SourceItem, sink status.Sink) (string, error) {
	sink.Notify(fmt.Sprintf("Transcribing %s...", item.Name))

	text, err := e.AI.Transcribe(ctx, item.Path)
	if err != nil {
		return "", &domain.ExtractionError{Name: item.Name, Stage: "transcribe", Err: err}
	}
	return text, nil
}
