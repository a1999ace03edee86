// Package logger provides a thin wrapper around zerolog.Logger used for
// diagnostic output of the deploy-repack CLI.
//
// Diagnostics (what the tool is doing and why) go through this logger to
// stderr. User-facing progress lines such as "Property x set to y" are not
// log records; they are written directly to the command's stdout.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a thin wrapper around zerolog.Logger.
// Embedding zerolog.Logger exposes the full zerolog API while allowing the
// application to add helper methods without modifying the upstream type.
type Logger struct {
	zerolog.Logger
}

// New constructs a human-readable console logger writing to w.
//
// With verbose set, Debug and above are emitted; otherwise only warnings and
// errors. Every entry carries a "component" field set to component.
func New(w io.Writer, component string, verbose bool) *Logger {
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "15:04:05",
	}

	logger := zerolog.New(console).Level(level).With().
		Str("component", component).
		Timestamp().
		Logger()

	return &Logger{logger}
}

// Nop returns a *Logger that discards all log output.
// It is intended for use in tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// With returns a child logger with an extra string field.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{l.Logger.With().Str(key, value).Logger()}
}
