// Package logging configures the process-wide slog logger of the shim and
// the admin CLI.
//
// A shim shares stdout and stderr with the compiler it wraps, and build
// systems parse that output. The default level is therefore warn, and logs
// can be redirected to a file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config selects level, format and destination of log output.
type Config struct {
	Level  string // debug|info|warn|error, default warn
	Format string // text|json, default text
	File   string // empty means stderr
}

var (
	initOnce sync.Once
	initErr  error
)

// Init installs the default slog logger once per process. Later calls are
// no-ops and return the result of the first call. On error the default
// logger writes to stderr.
func Init(cfg Config) error {
	initOnce.Do(func() {
		var logger *slog.Logger
		logger, initErr = New(cfg, os.Stderr)
		if initErr != nil {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		}
		slog.SetDefault(logger)
	})
	return initErr
}

// New builds a logger for cfg. Output goes to cfg.File when set, to
// fallback otherwise.
func New(cfg Config, fallback io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	w := fallback
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		// Left open until process exit.
		w = f
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", cfg.Format)
	}
}

// ParseLevel parses a level name. The empty string selects warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", s)
	}
}
