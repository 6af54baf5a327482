// Package status carries human-readable progress lines from long-running
// ingestion work back to whoever is watching the session.
package status

import "github.com/studyforge/quizgen-backend/internal/pkg/logger"

// Sink receives progress messages. Implementations must be safe for
// concurrent use; Notify must not block for long.
type Sink interface {
	Notify(message string)
}

// Func adapts a plain function into a Sink.
type Func func(message string)

func (f Func) Notify(message string) { f(message) }

// Discard ignores every message.
var Discard Sink = Func(func(string) {})

// NewLogSink forwards progress messages to the structured logger.
func NewLogSink(log *logger.Logger) Sink {
	scoped := log.With("component", "ingestion_status")
	return Func(func(message string) {
		scoped.Info(message)
	})
}
