package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/studyforge/quizgen-backend/internal/domain"
	"github.com/studyforge/quizgen-backend/internal/pkg/ctxutil"
	"github.com/studyforge/quizgen-backend/internal/pkg/httpx"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
)

// Client is the OpenAI API client used by ingestion and generation.
type Client interface {
	// GenerateQuiz turns an aggregated study corpus into a quiz.
	GenerateQuiz(ctx context.Context, corpus string) (domain.Quiz, error)

	// Transcribe sends an audio file to the speech model and returns the
	// transcript text.
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Settings carries everything the client needs. The API key must come from
// the process environment; it is never persisted or defaulted.
type Settings struct {
	APIKey      string
	BaseURL     string // e.g. https://api.openai.com/v1
	QuizModel   string
	SpeechModel string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int

	// HTTPClient overrides the default client; tests use it to stub the
	// transport.
	HTTPClient *http.Client
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	quizModel   string
	speechModel string
	temperature float64
	httpClient  *http.Client

	maxRetries int
}

func NewClient(log *logger.Logger, cfg Settings) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	quizModel := strings.TrimSpace(cfg.QuizModel)
	if quizModel == "" {
		quizModel = "gpt-4o"
	}
	speechModel := strings.TrimSpace(cfg.SpeechModel)
	if speechModel == "" {
		speechModel = "whisper-1"
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &client{
		log:         log.With("service", "OpenAIClient"),
		baseURL:     baseURL,
		apiKey:      apiKey,
		quizModel:   quizModel,
		speechModel: speechModel,
		temperature: temperature,
		httpClient:  httpClient,
		maxRetries:  maxRetries,
	}, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, req *http.Request) (*http.Response, []byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// postJSON encodes body, POSTs it, retries retryable failures, and decodes
// the 2xx payload into out. Failures surface as *domain.TransportError.
func (c *client) postJSON(ctx context.Context, op, path string, body any, out any) error {
	ctx = ctxutil.Default(ctx)

	payload, err := json.Marshal(body)
	if err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	backoff := httpx.Backoff{Base: time.Second, Max: 10 * time.Second}

	var lastErr error
	var lastStatus int
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return &domain.TransportError{Op: op, Err: ctx.Err()}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return &domain.TransportError{Op: op, Err: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, raw, err := c.doOnce(ctx, req)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w; raw=%s", uErr, string(raw))}
			}
			return nil
		}

		lastErr = err
		lastStatus = 0
		var he *httpError
		if errors.As(err, &he) {
			lastStatus = he.StatusCode
		}

		if !httpx.Retryable(err) || attempt == c.maxRetries {
			break
		}

		sleepFor := backoff.Next(resp)
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
	}

	return &domain.TransportError{Op: op, Status: lastStatus, Err: lastErr}
}
