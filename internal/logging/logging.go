// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds relay's structured logger.
//
// Logs go to a file by default so they never interleave with streamed
// output on the terminal.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/relay/internal/config"
)

// StderrPath selects stderr instead of a file.
const StderrPath = "-"

// Logger wraps an slog.Logger and the file it writes to.
type Logger struct {
	*slog.Logger
	closer io.Closer
	Path   string
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// ParseLevel maps a config level name to an slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger from cfg. An empty File means ~/.relay/relay.log.
func New(cfg config.LogConfig) (*Logger, error) {
	path := cfg.File
	if path == "" {
		p, err := config.ConfigPath("relay.log")
		if err != nil {
			return nil, err
		}
		path = p
	}

	var w io.Writer
	var closer io.Closer
	if path == StderrPath {
		w = os.Stderr
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}

	return &Logger{
		Logger: slog.New(newHandler(w, cfg)),
		closer: closer,
		Path:   path,
	}, nil
}

// NewWriter creates a logger on an arbitrary writer.
func NewWriter(w io.Writer, cfg config.LogConfig) *slog.Logger {
	return slog.New(newHandler(w, cfg))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
