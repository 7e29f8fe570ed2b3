package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

// Sink forwards free-form messages of external collaborators
// (the emulation engine, the disc reader) into the structured log.
type Sink struct {
	log   *Logger
	level zerolog.Level
}

func NewSink(root *Logger, module string, level Level) *Sink {
	return &Sink{log: root.Module(module), level: zerolog.Level(level)}
}

// Log writes a single message, trailing newlines are dropped.
func (s *Sink) Log(msg string) {
	s.log.WithLevel(s.level).Msg(strings.TrimRight(msg, "\r\n"))
}

// Write lets a Sink be used as an io.Writer, one message per call.
func (s *Sink) Write(p []byte) (int, error) {
	s.Log(string(p))
	return len(p), nil
}
