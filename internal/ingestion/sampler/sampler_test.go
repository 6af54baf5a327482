package sampler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/studyforge/quizgen-backend/internal/domain"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
	"github.com/studyforge/quizgen-backend/internal/status"
)

// fakeFrameSource records grab timestamps and writes a solid-color PNG for
// each request.
type fakeFrameSource struct {
	duration float64
	probeErr error
	grabErr  error

	grabbed []float64

	frameW int
	frameH int
}

func (f *fakeFrameSource) ProbeDuration(ctx context.Context, mediaPath string) (float64, error) {
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.duration, nil
}

func (f *fakeFrameSource) GrabFrame(ctx context.Context, videoPath string, atSec float64, outPath string) (string, error) {
	if f.grabErr != nil {
		return "", f.grabErr
	}
	f.grabbed = append(f.grabbed, atSec)

	w, h := f.frameW, f.frameH
	if w == 0 {
		w, h = 1280, 720
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func newTestSampler(t *testing.T, src FrameSource, opts Options) *Sampler {
	t.Helper()
	s, err := New(logger.NewNop(), src, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func videoItem() domain.SourceItem {
	return domain.SourceItem{
		ID:   uuid.New(),
		Name: "lecture.mp4",
		Kind: domain.KindVideo,
		Path: "/nonexistent/lecture.mp4",
	}
}

func TestSampleTimestampsAreIndexDerived(t *testing.T) {
	src := &fakeFrameSource{duration: 7}
	s := newTestSampler(t, src, Options{IntervalSec: 2})

	set, err := s.Sample(context.Background(), videoItem(), nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	want := []float64{0, 2, 4, 6}
	if len(src.grabbed) != len(want) {
		t.Fatalf("grabbed %v, want %v", src.grabbed, want)
	}
	for i, at := range want {
		if src.grabbed[i] != at {
			t.Fatalf("grab %d at %v, want %v", i, src.grabbed[i], at)
		}
		if set.Snapshots[i].Index != i || set.Snapshots[i].AtSec != at {
			t.Fatalf("snapshot %d = %+v", i, set.Snapshots[i])
		}
	}
}

func TestSampleBoundaryIsInclusive(t *testing.T) {
	src := &fakeFrameSource{duration: 4}
	s := newTestSampler(t, src, Options{IntervalSec: 2})

	set, err := s.Sample(context.Background(), videoItem(), nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(set.Snapshots) != 3 {
		t.Fatalf("frames = %d, want 3 (0, 2 and 4)", len(set.Snapshots))
	}
	if last := set.Snapshots[2].AtSec; last != 4 {
		t.Fatalf("last frame at %v, want 4", last)
	}
}

func TestSampleZeroDurationStillGrabsFirstFrame(t *testing.T) {
	src := &fakeFrameSource{duration: 0}
	s := newTestSampler(t, src, Options{IntervalSec: 2})

	set, err := s.Sample(context.Background(), videoItem(), nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(set.Snapshots) != 1 || set.Snapshots[0].AtSec != 0 {
		t.Fatalf("snapshots = %+v, want single frame at 0", set.Snapshots)
	}
}

func TestSampleStillsHaveConfiguredSize(t *testing.T) {
	src := &fakeFrameSource{duration: 1, frameW: 1920, frameH: 1080}
	s := newTestSampler(t, src, Options{IntervalSec: 2, Width: 640, Height: 360})

	set, err := s.Sample(context.Background(), videoItem(), nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(set.Snapshots[0].PNG))
	if err != nil {
		t.Fatalf("decode still: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 640 || b.Dy() != 360 {
		t.Fatalf("still is %dx%d, want 640x360", b.Dx(), b.Dy())
	}
}

func TestSampleNotifiesEachCapturedFrame(t *testing.T) {
	src := &fakeFrameSource{duration: 5}
	s := newTestSampler(t, src, Options{IntervalSec: 2.5})

	var lines []string
	sink := status.Func(func(msg string) { lines = append(lines, msg) })

	if _, err := s.Sample(context.Background(), videoItem(), sink); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	want := []string{"Snapshot at 0s", "Snapshot at 2.5s", "Snapshot at 5s"}
	if len(lines) != len(want) {
		t.Fatalf("notifications = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("notification %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSampleProbeFailureIsExtractionError(t *testing.T) {
	src := &fakeFrameSource{probeErr: fmt.Errorf("ffprobe failed")}
	s := newTestSampler(t, src, Options{})

	_, err := s.Sample(context.Background(), videoItem(), nil)
	var ee *domain.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	if ee.Stage != "probe duration" {
		t.Fatalf("stage = %q", ee.Stage)
	}
}

func TestSampleGrabFailureIsExtractionError(t *testing.T) {
	src := &fakeFrameSource{duration: 4, grabErr: fmt.Errorf("ffmpeg failed")}
	s := newTestSampler(t, src, Options{IntervalSec: 2})

	_, err := s.Sample(context.Background(), videoItem(), nil)
	var ee *domain.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
}

func TestContactSheetTilesAllSnapshots(t *testing.T) {
	src := &fakeFrameSource{duration: 10, frameW: 640, frameH: 360}
	s := newTestSampler(t, src, Options{IntervalSec: 2, Width: 320, Height: 180})

	set, err := s.Sample(context.Background(), videoItem(), nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	sheet, err := RenderContactSheet(set, "")
	if err != nil {
		t.Fatalf("RenderContactSheet: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(sheet))
	if err != nil {
		t.Fatalf("decode sheet: %v", err)
	}

	// 6 snapshots in a 4-wide grid means 2 rows.
	wantW := 4*320 + 5*sheetPadding
	wantH := 2*(180+sheetLabelH) + 3*sheetPadding
	b := img.Bounds()
	if b.Dx() != wantW || b.Dy() != wantH {
		t.Fatalf("sheet is %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}
}

func TestContactSheetEmptySetRejected(t *testing.T) {
	if _, err := RenderContactSheet(domain.SnapshotSet{}, ""); err == nil {
		t.Fatalf("expected error for empty set")
	}
}
