// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.Mutex
	level  = new(slog.LevelVar)
	logger *slog.Logger
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Init installs the global logger writing to stderr. format is "text" or
// "json". It may be called again to switch handlers.
func Init(lvl, format string) error {
	return InitWriter(os.Stderr, lvl, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, lvl, format string) error {
	parsed, err := ParseLevel(lvl)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch format {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	mu.Lock()
	defer mu.Unlock()
	level.Set(parsed)
	logger = slog.New(h)
	slog.SetDefault(logger)
	return nil
}

// SetLevel changes the level of the installed logger without rebuilding it.
func SetLevel(lvl string) error {
	parsed, err := ParseLevel(lvl)
	if err != nil {
		return err
	}
	level.Set(parsed)
	return nil
}

// Level returns the current level.
func Level() slog.Level {
	return level.Level()
}

// L returns the global logger, installing a text logger at info if Init has
// not been called.
func L() *slog.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l != nil {
		return l
	}
	_ = Init("info", "text")
	return L()
}
