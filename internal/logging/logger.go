// Package logging builds the zerolog loggers used across metamonitor. It
// supports leveled console or JSON output, per-component child loggers and
// an optional log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/normanking/metamonitor/internal/config"
)

// ═══════════════════════════════════════════════════════════════════════════════
// LEVELS
// ═══════════════════════════════════════════════════════════════════════════════

// ParseLevel parses a level name. Unknown names map to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ═══════════════════════════════════════════════════════════════════════════════

// Options control where a logger writes.
type Options struct {
	// Console receives human or JSON output. Nil means stderr.
	Console io.Writer
	// NoColor disables ANSI colours on the console writer.
	NoColor bool
	// Verbose forces debug level regardless of config.
	Verbose bool
}

// New builds a logger from cfg. When cfg.File is set, entries are also
// appended to that file in JSON; the returned closer releases it.
func New(cfg config.LoggingConfig, opts Options) (zerolog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{
			Out:        console,
			NoColor:    opts.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}

	out := console
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		out = zerolog.MultiLevelWriter(console, f)
		closer = f
	}

	level := ParseLevel(cfg.Level)
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// SetGlobal routes the zerolog global logger and context default to l.
func SetGlobal(l zerolog.Logger) {
	zlog.Logger = l
	zerolog.DefaultContextLogger = &l
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
