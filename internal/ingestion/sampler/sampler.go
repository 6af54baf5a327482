// Package sampler grabs evenly spaced still frames from video sources and
// renders them into fixed-size PNG snapshots.
package sampler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/draw"

	"github.com/studyforge/quizgen-backend/internal/domain"
	"github.com/studyforge/quizgen-backend/internal/pkg/ctxutil"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
	"github.com/studyforge/quizgen-backend/internal/status"
)

// formatSeconds prints a timestamp without trailing zeros: 2 -> "2s", 2.5 -> "2.5s".
func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64) + "s"
}

// FrameSource is the slice of media tooling the sampler needs. localmedia
// satisfies it; tests fake it.
type FrameSource interface {
	ProbeDuration(ctx context.Context, mediaPath string) (float64, error)
	GrabFrame(ctx context.Context, videoPath string, atSec float64, outPath string) (string, error)
}

type Options struct {
	IntervalSec float64 // default 2.0
	Width       int     // default 640
	Height      int     // default 360
}

type Sampler struct {
	log    *logger.Logger
	source FrameSource

	intervalSec float64
	width       int
	height      int
}

func New(log *logger.Logger, source FrameSource, opts Options) (*Sampler, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if source == nil {
		return nil, fmt.Errorf("frame source required")
	}
	interval := opts.IntervalSec
	if interval <= 0 {
		interval = 2.0
	}
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 360
	}
	return &Sampler{
		log:         log.With("component", "FrameSampler"),
		source:      source,
		intervalSec: interval,
		width:       w,
		height:      h,
	}, nil
}

// Sample walks the video from zero to its duration in fixed steps and grabs
// one frame per step. Timestamps are derived from the step index, never by
// accumulating floats, so a 7s video at 2s spacing yields 0, 2, 4 and 6.
// The boundary is inclusive: a frame lands exactly on the duration too.
// Each captured frame is announced on the sink.
func (s *Sampler) Sample(ctx context.Context, item domain.SourceItem, sink status.Sink) (domain.SnapshotSet, error) {
	ctx = ctxutil.Default(ctx)
	if sink == nil {
		sink = status.Discard
	}

	duration, err := s.source.ProbeDuration(ctx, item.Path)
	if err != nil {
		return domain.SnapshotSet{}, &domain.ExtractionError{Name: item.Name, Stage: "probe duration", Err: err}
	}

	workDir, err := os.MkdirTemp("", "quizgen_frames_*")
	if err != nil {
		return domain.SnapshotSet{}, &domain.ExtractionError{Name: item.Name, Stage: "temp dir", Err: err}
	}
	defer os.RemoveAll(workDir)

	set := domain.SnapshotSet{
		SourceID:    item.ID,
		SourceName:  item.Name,
		IntervalSec: s.intervalSec,
		DurationSec: duration,
		Snapshots:   []domain.Snapshot{},
	}

	for i := 0; ; i++ {
		at := float64(i) * s.intervalSec
		if at > duration {
			break
		}
		if ctx.Err() != nil {
			return domain.SnapshotSet{}, &domain.ExtractionError{Name: item.Name, Stage: "sample", Err: ctx.Err()}
		}

		framePath := filepath.Join(workDir, fmt.Sprintf("frame_%06d.png", i))
		if _, err := s.source.GrabFrame(ctx, item.Path, at, framePath); err != nil {
			return domain.SnapshotSet{}, &domain.ExtractionError{
				Name:  item.Name,
				Stage: fmt.Sprintf("grab frame %d", i),
				Err:   err,
			}
		}

		pngBytes, err := s.renderStill(framePath)
		if err != nil {
			return domain.SnapshotSet{}, &domain.ExtractionError{
				Name:  item.Name,
				Stage: fmt.Sprintf("render frame %d", i),
				Err:   err,
			}
		}

		set.Snapshots = append(set.Snapshots, domain.Snapshot{
			Index:  i,
			AtSec:  at,
			Width:  s.width,
			Height: s.height,
			PNG:    pngBytes,
		})
		sink.Notify(fmt.Sprintf("Snapshot at %s", formatSeconds(at)))
	}

	s.log.Info("Video sampled",
		"name", item.Name,
		"duration_sec", duration,
		"interval_sec", s.intervalSec,
		"frames", len(set.Snapshots),
	)
	return set, nil
}

// renderStill decodes a grabbed frame and fits it into the configured
// output size, letterboxing on black when aspect ratios differ.
func (s *Sampler) renderStill(framePath string) ([]byte, error) {
	f, err := os.Open(framePath)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	src, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, s.width, s.height))

	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw <= 0 || sh <= 0 {
		return nil, fmt.Errorf("frame has empty bounds")
	}

	scale := float64(s.width) / float64(sw)
	if r := float64(s.height) / float64(sh); r < scale {
		scale = r
	}
	fitW := int(float64(sw) * scale)
	fitH := int(float64(sh) * scale)
	x0 := (s.width - fitW) / 2
	y0 := (s.height - fitH) / 2

	target := image.Rect(x0, y0, x0+fitW, y0+fitH)
	draw.CatmullRom.Scale(dst, target, src, sb, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
