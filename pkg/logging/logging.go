// Copyright 2025 TGP Authors
//
// Package logging wraps log/slog with the project's conventions: a small
// Config (level, format, output destination), constructors for the common
// cases, and WithX helpers for attaching session/component context. It is
// used at the driver, BFT, and CLI layers; the pure state-machine packages
// (artifact, ladder, codec) take no logging dependency at all.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger wraps a *slog.Logger.
type Logger struct {
	*slog.Logger
}

// Config controls logger construction.
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
	Output string // "stdout", "stderr", or a file path
}

// DefaultConfig is text-formatted, info-level, stdout — the quiet default
// for a CLI tool.
func DefaultConfig() *Config {
	return &Config{Level: slog.LevelInfo, Format: "text", Output: "stdout"}
}

// New constructs a Logger from cfg, defaulting a nil cfg to DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	var output io.Writer
	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		output = f
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	return &Logger{Logger: slog.New(handler)}, nil
}

// Discard returns a Logger that drops everything, for tests and for
// components handed a nil logger.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithComponent returns a Logger tagged with a "component" field, the
// convention every package under cmd/tgp-node uses to identify its log
// lines (e.g. "component", "party", "component", "bft").
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// WithSession returns a Logger tagged with a session/round identifier.
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{Logger: l.Logger.With("session_id", sessionID)}
}
