// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package logging provides centralized zerolog-based logging for genecascade.
//
// A single global logger is configured once at startup from the CLI and
// config layers. Prediction stages, tool adapters and the batch coordinator
// log through the package-level helpers or through a context logger that
// carries the run and sample identifiers.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "auto"})
//
//	logging.Info().Str("sample", name).Msg("Self-training started")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Predictor exited non-zero")
//
// # Formats
//
//   - json: one JSON object per line (default for non-interactive runs)
//   - console: human-readable, colourised output
//   - auto: console when stderr is a terminal, json otherwise
//
// Always terminate log chains with .Msg() or .Send().
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Config selects level, format and destination of the global logger.
// Zero fields fall back to DefaultConfig.
type Config struct {
	Level  string // trace, debug, info, warn, error, fatal, panic or quiet
	Format string // json, console or auto

	Caller    bool // add file:line of the call site
	Timestamp bool

	Output io.Writer // os.Stderr when nil
}

// DefaultConfig logs at info level to stderr with timestamps.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "auto", Timestamp: true, Output: os.Stderr}
}

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

//nolint:gochecknoinits // the package logs before Init runs
func init() {
	initLogger(DefaultConfig())
}

// Init replaces the global logger. Calling it again reconfigures logging.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

// initLogger requires mu.
func initLogger(cfg Config) {
	def := DefaultConfig()
	if cfg.Level == "" {
		cfg.Level = def.Level
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.Output == nil {
		cfg.Output = def.Output
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"
	zerolog.ErrorFieldName = "error"

	var w io.Writer = cfg.Output
	if resolveFormat(cfg.Format, cfg.Output) == "console" {
		w = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.TimeOnly, NoColor: !isTerminal(cfg.Output)}
	}

	zc := zerolog.New(w).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	log = zc.Logger()
}

// resolveFormat maps "auto" onto a concrete format for the given writer.
func resolveFormat(format string, w io.Writer) string {
	switch strings.ToLower(format) {
	case "console", "text", "pretty":
		return "console"
	case "auto":
		if isTerminal(w) {
			return "console"
		}
		return "json"
	default:
		return "json"
	}
}

// isTerminal reports whether w is a file attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// levelAliases are accepted on top of zerolog's own level names.
var levelAliases = map[string]string{"warning": "warn", "quiet": "disabled"}

// lookupLevel resolves a level name case-insensitively.
func lookupLevel(name string) (zerolog.Level, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := levelAliases[name]; ok {
		name = alias
	}
	if name == "" {
		return zerolog.NoLevel, false
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, false
	}
	return lvl, true
}

// parseLevel falls back to info for unknown names.
func parseLevel(name string) zerolog.Level {
	if lvl, ok := lookupLevel(name); ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	_, ok := lookupLevel(level)
	return ok
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetLogger swaps the global logger, typically for a test buffer.
//
//nolint:gocritic // zerolog.Logger is passed by value
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

// Debug, Info, Warn and Error start an event on the global logger.
func Debug() *zerolog.Event { return current().Debug() }

func Info() *zerolog.Event { return current().Info() }

func Warn() *zerolog.Event { return current().Warn() }

func Error() *zerolog.Event { return current().Error() }

// IsLevelEnabled reports whether the global level lets level through.
func IsLevelEnabled(level zerolog.Level) bool {
	return level >= zerolog.GlobalLevel()
}

// NewTestLogger logs JSON with timestamps to w.
//
//	var buf bytes.Buffer
//	logging.SetLogger(logging.NewTestLogger(&buf))
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
