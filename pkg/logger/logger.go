// Package logger provides the structured logger shared by the review scoring service.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps a zerolog logger.
type Logger struct {
	logger zerolog.Logger
}

// New creates a logger writing to stdout or to the given file path.
// format "console" switches to the human readable writer, anything else is JSON.
func New(level, format, output string) *Logger {
	zerolog.SetGlobalLevel(ParseLevel(level))

	var writer io.Writer = os.Stdout
	if output != "" && output != "stdout" {
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			log.Fatal().Err(err).Str("output", output).Msg("Failed to open log file")
		}
		writer = file
	}

	if format == "console" {
		writer = zerolog.ConsoleWriter{Out: writer}
	}

	return &Logger{logger: zerolog.New(writer).With().Timestamp().Caller().Logger()}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }

func (l *Logger) Info() *zerolog.Event { return l.logger.Info() }

func (l *Logger) Warn() *zerolog.Event { return l.logger.Warn() }

func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }

// Fatal logs and exits the process once the event is sent.
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

// With creates a child logger context.
func (l *Logger) With() zerolog.Context {
	return l.logger.With()
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", name).Logger()}
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

// Zerolog returns a pointer to a copy of the underlying logger, for packages
// that take *zerolog.Logger directly.
func (l *Logger) Zerolog() *zerolog.Logger {
	zl := l.logger
	return &zl
}

var global *Logger

// Init initializes the global logger.
func Init(level, format, output string) {
	global = New(level, format, output)
}

// Get returns the global logger, creating a JSON info logger on first use.
func Get() *Logger {
	if global == nil {
		global = New("info", "json", "stdout")
	}
	return global
}
