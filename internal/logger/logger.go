// Package logger builds the zerolog loggers used as defaults across the
// SDK. Provider API keys routinely end up in request dumps, so the writer
// is wrapped with secret redaction.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger construction options.
type Config struct {
	Level     string // debug, info, warn, error
	Writer    io.Writer
	Pretty    bool // console-formatted output
	Redaction bool // redact API keys and tokens
}

// New creates a logger from the given configuration.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}
	if cfg.Pretty {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339,
		}
	}
	if cfg.Redaction {
		writer = NewRedactor().Wrap(writer)
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// Default returns the logger used when the caller does not supply one:
// info level on stderr with redaction enabled.
func Default() zerolog.Logger {
	return New(Config{Level: "info", Redaction: true})
}

// Nop returns a disabled logger for tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
