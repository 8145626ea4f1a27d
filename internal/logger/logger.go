// Package logger provides structured logging with console and optional file output.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	zerolog.Logger
}

// New creates a logger with the given level and optional log file.
// An unknown level falls back to info.
func New(level string, logFile string) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"},
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, err
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return &Logger{l}, nil
}

// NewWriter creates a JSON logger writing to w. Used by tests and tools
// that want machine-readable output.
func NewWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{l.With().Str("component", name).Logger()}
}

// Global is the process logger set by Init.
var Global *Logger

// Init initializes the global logger.
func Init(level string, logFile string) error {
	l, err := New(level, logFile)
	if err != nil {
		return err
	}
	Global = l
	return nil
}

// Get returns the global logger, or a no-op logger before Init.
func Get() *Logger {
	if Global == nil {
		return Nop()
	}
	return Global
}
