package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a structured logger with colored console output.
type Logger struct {
	zerolog.Logger
}

// New creates a logger writing colorized output to stderr at the given level.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a logger writing to out. Unknown levels fall back
// to info.
func NewWithWriter(level string, out io.Writer) *Logger {
	var logLevel zerolog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn", "warning":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	l := zerolog.New(console).Level(logLevel).With().Timestamp().Logger()
	return &Logger{Logger: l}
}
