package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/quizgen-backend/internal/domain"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondDomainError maps ingestion and session errors onto HTTP statuses:
// caller mistakes get 4xx, upstream and tooling failures get 5xx.
func RespondDomainError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	var ee *domain.ExtractionError
	var ge *domain.GenerationError
	var te *domain.TransportError

	switch {
	case errors.Is(err, domain.ErrEmptyCorpus):
		RespondError(c, http.StatusBadRequest, "empty_corpus", err)
	case errors.Is(err, domain.ErrIncompleteAnswers):
		RespondError(c, http.StatusConflict, "incomplete_answers", err)
	case errors.As(err, &ve):
		RespondError(c, http.StatusBadRequest, "validation_failed", err)
	case errors.As(err, &ee):
		RespondError(c, http.StatusUnprocessableEntity, "extraction_failed", err)
	case errors.As(err, &ge):
		RespondError(c, http.StatusBadGateway, "generation_failed", err)
	case errors.As(err, &te):
		RespondError(c, http.StatusBadGateway, "upstream_failed", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
