package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus means generation was requested with no manual text
	// and no files, or every source extracted to whitespace.
	ErrEmptyCorpus = errors.New("corpus is empty")

	// ErrIncompleteAnswers means submit was requested before every
	// question had a selected answer.
	ErrIncompleteAnswers = errors.New("not all questions answered")
)

// ExtractionError wraps a failure while turning one source into text.
// Name identifies the source file, Stage the step that failed.
type ExtractionError struct {
	Name  string
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: %s failed", e.Name, e.Stage)
	}
	return fmt.Sprintf("extract %s: %s failed: %v", e.Name, e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// GenerationError means the model replied but its payload could not be
// used as a quiz. Index is the offending question, or -1 when the whole
// payload is at fault.
type GenerationError struct {
	Reason string
	Index  int
	Err    error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("quiz payload invalid: %s", e.Reason)
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s (question %d)", msg, e.Index)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewGenerationError builds a whole-payload error with no question index.
func NewGenerationError(reason string, err error) *GenerationError {
	return &GenerationError{Reason: reason, Index: -1, Err: err}
}

// TransportError means the request to the model provider never produced a
// usable reply: network failure, timeout, or a non-2xx status.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports a rejected caller request, such as answering a
// question that does not exist or mutating inputs mid-generation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
