package openai

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/studyforge/quizgen-backend/internal/domain"
)

const quizSystemPrompt = "You are a study assistant. Given the user's study material, " +
	"produce a concise summary and a set of multiple-choice questions that test " +
	"understanding of the material. Every question must have exactly one correct " +
	"answer, and that answer must appear verbatim among the options."

type chatCompletionRequest struct {
	Model          string        `json:"model"`
	Temperature    float64       `json:"temperature"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat any           `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// quizResponseFormat is the strict json_schema constraint for quiz output.
// Strict mode means the model either honors the shape or the request fails;
// there is deliberately no repair pass on our side.
func quizResponseFormat() map[string]any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   "quiz",
			"strict": true,
			"schema": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"summary", "questions"},
				"properties": map[string]any{
					"summary": map[string]any{"type": "string"},
					"questions": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []string{"question", "options", "answer"},
							"properties": map[string]any{
								"question": map[string]any{"type": "string"},
								"options": map[string]any{
									"type":  "array",
									"items": map[string]any{"type": "string"},
								},
								"answer": map[string]any{"type": "string"},
							},
						},
					},
				},
			},
		},
	}
}

// quizPayload mirrors domain.Quiz with pointer fields so that an absent key
// is distinguishable from a present-but-zero value. The model's contract is
// one JSON object and nothing else; fenced or prose-wrapped output, trailing
// text, and missing keys are all rejected rather than repaired.
type quizPayload struct {
	Summary   *string                `json:"summary"`
	Questions *[]quizQuestionPayload `json:"questions"`
}

type quizQuestionPayload struct {
	Question *string   `json:"question"`
	Options  *[]string `json:"options"`
	Answer   *string   `json:"answer"`
}

func parseQuizContent(content string) (domain.Quiz, error) {
	var payload quizPayload
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return domain.Quiz{}, domain.NewGenerationError("content is not quiz JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return domain.Quiz{}, domain.NewGenerationError("trailing data after quiz JSON", nil)
	}
	if payload.Summary == nil {
		return domain.Quiz{}, domain.NewGenerationError("missing summary", nil)
	}
	if payload.Questions == nil {
		return domain.Quiz{}, domain.NewGenerationError("missing questions", nil)
	}

	quiz := domain.Quiz{
		Summary:   *payload.Summary,
		Questions: make([]domain.QuizQuestion, 0, len(*payload.Questions)),
	}
	for i, q := range *payload.Questions {
		if q.Question == nil || strings.TrimSpace(*q.Question) == "" {
			return domain.Quiz{}, &domain.GenerationError{Reason: "question missing prompt", Index: i}
		}
		if q.Options == nil {
			return domain.Quiz{}, &domain.GenerationError{Reason: "question missing options", Index: i}
		}
		if q.Answer == nil {
			return domain.Quiz{}, &domain.GenerationError{Reason: "question missing answer", Index: i}
		}
		quiz.Questions = append(quiz.Questions, domain.QuizQuestion{
			Question: *q.Question,
			Options:  *q.Options,
			Answer:   *q.Answer,
		})
	}
	return quiz, nil
}

func (c *client) GenerateQuiz(ctx context.Context, corpus string) (domain.Quiz, error) {
	corpus = strings.TrimSpace(corpus)
	if corpus == "" {
		return domain.Quiz{}, domain.ErrEmptyCorpus
	}

	req := chatCompletionRequest{
		Model:       c.quizModel,
		Temperature: c.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: quizSystemPrompt},
			{Role: "user", Content: corpus},
		},
		ResponseFormat: quizResponseFormat(),
	}

	var resp chatCompletionResponse
	if err := c.postJSON(ctx, "generate quiz", "/chat/completions", req, &resp); err != nil {
		return domain.Quiz{}, err
	}

	if len(resp.Choices) == 0 {
		return domain.Quiz{}, domain.NewGenerationError("no choices in completion", nil)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return domain.Quiz{}, domain.NewGenerationError("empty completion content", nil)
	}

	quiz, err := parseQuizContent(content)
	if err != nil {
		return domain.Quiz{}, err
	}

	c.log.Info("Quiz generated",
		"model", c.quizModel,
		"questions", len(quiz.Questions),
	)
	return quiz, nil
}
