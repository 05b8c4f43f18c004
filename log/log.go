// Package log defines the small structured-logging interface every
// package-level component in this module takes at construction, backed by
// zerolog.
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is what any component in this module should take. It mirrors
// the teacher's Debug/Info/Error/With shape, but each call carries
// structured key-value fields instead of a formatted message.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})

	With(keyvals ...interface{}) Logger
}

type zeroLogger struct {
	logger zerolog.Logger
}

// New returns a Logger writing structured JSON lines to w.
func New(w io.Writer) Logger {
	return &zeroLogger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// NewConsole returns a Logger writing human-readable lines to stderr,
// suitable for cmd/chainsyncd's default.
func NewConsole() Logger {
	return &zeroLogger{logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zeroLogger{logger: zerolog.Nop()}
}

func (l *zeroLogger) Debug(msg string, keyvals ...interface{}) {
	withFields(l.logger.Debug(), keyvals).Msg(msg)
}

func (l *zeroLogger) Info(msg string, keyvals ...interface{}) {
	withFields(l.logger.Info(), keyvals).Msg(msg)
}

func (l *zeroLogger) Error(msg string, keyvals ...interface{}) {
	withFields(l.logger.Error(), keyvals).Msg(msg)
}

func (l *zeroLogger) With(keyvals ...interface{}) Logger {
	ctx := l.logger.With()
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, keyvals[i+1])
	}
	return &zeroLogger{logger: ctx.Logger()}
}

func withFields(event *zerolog.Event, keyvals []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, keyvals[i+1])
	}
	return event
}
