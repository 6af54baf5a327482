package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/studyforge/quizgen-backend/internal/domain"
	"github.com/studyforge/quizgen-backend/internal/pkg/ctxutil"
)

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio file as multipart form data and returns the
// transcript. Transcription requests are not retried: re-uploading large
// audio on a flaky link usually makes things worse.
func (c *client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx = ctxutil.Default(ctx)
	const op = "transcribe audio"

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio into form: %w", err)
	}
	if err := mw.WriteField("model", c.speechModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", &domain.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, raw, err := c.doOnce(ctx, req)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return "", &domain.TransportError{Op: op, Status: status, Err: err}
	}

	var out transcriptionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.log.Info("Audio transcribed",
		"model", c.speechModel,
		"file", filepath.Base(audioPath),
		"chars", len(out.Text),
	)
	return out.Text, nil
}
