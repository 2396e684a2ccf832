// Package logging builds the slog loggers used by the entrack CLI and
// handed to entity contexts and stores.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Config selects level and format for New.
type Config struct {
	Level  string // debug, info, warn, error; empty means info
	Format string // text or json; empty means text
	Output io.Writer
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// New builds a logger from cfg. A nil Output discards everything.
func New(cfg Config) (*slog.Logger, error) {
	if cfg.Output == nil {
		return Discard(), nil
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(cfg.Output, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(cfg.Output, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
