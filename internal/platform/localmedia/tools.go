package localmedia

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/studyforge/quizgen-backend/internal/pkg/ctxutil"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
)

// Tools is the glue around system binaries used by ingestion.
//
// REQUIRED BINARIES in the runtime:
// - pdfinfo + pdftotext (poppler-utils) for PDF page text
// - libreoffice (soffice) for DOCX -> plain text
// - tesseract for image OCR
// - ffmpeg + ffprobe for video duration and frame grabs
//
// Everything here is synchronous; callers run it off the request path.
type Tools interface {
	AssertReady(ctx context.Context) error

	CountPDFPages(ctx context.Context, pdfPath string) (int, error)
	ExtractPDFPageText(ctx context.Context, pdfPath string, page int) (string, error)

	ConvertDocxToText(ctx context.Context, docxPath string, outDir string) (string, error)

	RecognizeImageText(ctx context.Context, imagePath string, opts OCROptions) (string, error)

	ProbeDuration(ctx context.Context, mediaPath string) (float64, error)
	GrabFrame(ctx context.Context, videoPath string, atSec float64, outPath string) (string, error)

	// Helper for callers who only have bytes:
	WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error)
}

type OCROptions struct {
	Language string // tesseract language code, default "eng"
	PSM      int    // page segmentation mode, 0 means tool default
}

type Options struct {
	WorkRoot       string
	DefaultTimeout time.Duration
}

type tools struct {
	log *logger.Logger

	pdfinfoPath   string
	pdftotextPath string
	sofficePath   string
	tesseractPath string
	ffmpegPath    string
	ffprobePath   string

	workRoot string

	defaultTimeout time.Duration
}

func New(log *logger.Logger, opts Options) Tools {
	slog := log.With("service", "MediaTools")
	workRoot := strings.TrimSpace(opts.WorkRoot)
	if workRoot == "" {
		workRoot = filepath.Join(os.TempDir(), "quizgen-media")
	}
	timeout := opts.DefaultTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &tools{
		log:            slog,
		pdfinfoPath:    "pdfinfo",
		pdftotextPath:  "pdftotext",
		sofficePath:    "soffice",
		tesseractPath:  "tesseract",
		ffmpegPath:     "ffmpeg",
		ffprobePath:    "ffprobe",
		workRoot:       workRoot,
		defaultTimeout: timeout,
	}
}

func (m *tools) AssertReady(ctx context.Context) error {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, bin := range []string{m.pdfinfoPath, m.pdftotextPath, m.sofficePath, m.tesseractPath, m.ffmpegPath, m.ffprobePath} {
		if err := m.assertBinary(ctx, bin); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

func (m *tools) assertBinary(ctx context.Context, name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", name, err)
	}
	return nil
}

func (m *tools) WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error) {
	ctx = ctxutil.Default(ctx)
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	h := sha256.Sum256(data)
	base := hex.EncodeToString(h[:])[:16]
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	path := filepath.Join(m.workRoot, fmt.Sprintf("%s%s", base, suffix))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(path) }
	return path, cleanup, nil
}

func (m *tools) CountPDFPages(ctx context.Context, pdfPath string) (int, error) {
	ctx = ctxutil.Default(ctx)
	if pdfPath == "" {
		return 0, fmt.Errorf("pdfPath required")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.pdfinfoPath, pdfPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("pdfinfo failed: %w; out=%s", err, string(out))
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || n <= 0 {
			continue
		}
		return n, nil
	}

	return 0, fmt.Errorf("pdfinfo output missing Pages field")
}

// ExtractPDFPageText pulls the text layer of a single 1-based page.
// Scanned PDFs with no text layer yield an empty string, not an error.
func (m *tools) ExtractPDFPageText(ctx context.Context, pdfPath string, page int) (string, error) {
	ctx = ctxutil.Default(ctx)
	if pdfPath == "" {
		return "", fmt.Errorf("pdfPath required")
	}
	if page <= 0 {
		return "", fmt.Errorf("page must be >= 1")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.pdftotextPath,
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-layout",
		pdfPath,
		"-", // stdout
	)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext page %d failed: %w", page, err)
	}
	return string(out), nil
}

func (m *tools) ConvertDocxToText(ctx context.Context, docxPath string, outDir string) (string, error) {
	ctx = ctxutil.Default(ctx)
	if docxPath == "" {
		return "", fmt.Errorf("docxPath required")
	}
	if outDir == "" {
		return "", fmt.Errorf("outDir required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir outDir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.sofficePath,
		"--headless",
		"--nologo",
		"--nolockcheck",
		"--nodefault",
		"--norestore",
		"--convert-to", "txt:Text",
		"--outdir", outDir,
		docxPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("soffice convert failed: %w; out=%s", err, string(out))
	}

	base := strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath))
	txtPath := filepath.Join(outDir, base+".txt")
	if _, statErr := os.Stat(txtPath); statErr != nil {
		txtPath2, err2 := newestFileWithExt(outDir, ".txt")
		if err2 != nil {
			return "", fmt.Errorf("txt output not found at %s and scan failed: %v; soffice out=%s", txtPath, err2, string(out))
		}
		txtPath = txtPath2
	}

	b, err := os.ReadFile(txtPath)
	if err != nil {
		return "", fmt.Errorf("read converted text: %w", err)
	}
	_ = os.Remove(txtPath)
	return string(b), nil
}

func (m *tools) RecognizeImageText(ctx context.Context, imagePath string, opts OCROptions) (string, error) {
	ctx = ctxutil.Default(ctx)
	if imagePath == "" {
		return "", fmt.Errorf("imagePath required")
	}

	lang := strings.TrimSpace(opts.Language)
	if lang == "" {
		lang = "eng"
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	args := []string{imagePath, "stdout", "-l", lang}
	if opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PSM))
	}

	cmd := exec.CommandContext(ctx, m.tesseractPath, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return string(out), nil
}

func (m *tools) ProbeDuration(ctx context.Context, mediaPath string) (float64, error) {
	ctx = ctxutil.Default(ctx)
	if mediaPath == "" {
		return 0, fmt.Errorf("mediaPath required")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w; out=%s", err, string(out))
	}

	s := strings.TrimSpace(string(out))
	dur, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration unparseable %q: %w", s, err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("ffprobe reported negative duration %f", dur)
	}
	return dur, nil
}

// GrabFrame seeks to atSec and writes exactly one frame to outPath.
// Seeking before -i keeps this fast on long files.
func (m *tools) GrabFrame(ctx context.Context, videoPath string, atSec float64, outPath string) (string, error) {
	ctx = ctxutil.Default(ctx)
	if videoPath == "" {
		return "", fmt.Errorf("videoPath required")
	}
	if outPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	if atSec < 0 {
		return "", fmt.Errorf("atSec must be >= 0")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir outPath dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-y",
		"-ss", strconv.FormatFloat(atSec, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg grab frame failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("frame output missing at %s", outPath)
	}
	return outPath, nil
}

// ---------- helpers ----------

func newestFileWithExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(e.Name())) != ext {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no %s files in %s", ext, dir)
	}
	return newest, nil
}
