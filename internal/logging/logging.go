// Package logging sets up the process-wide slog logger.
//
// While the terminal UI owns the screen, log records go to a dated file under
// the configured directory. Headless runs log to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ParseLevel maps a config level name to a slog.Level
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
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// New creates a text logger writing to w
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// OpenFile creates logDir if needed and opens today's log file for appending.
// The caller closes the returned file.
func OpenFile(logDir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(logDir, fmt.Sprintf("spectrecon-%s.log", now.Format("2006-01-02")))
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// Setup installs the default logger. With an empty logDir, or when the file
// cannot be opened, records go to fallback. The returned function closes the
// log file, if any.
func Setup(logDir string, level slog.Level, fallback io.Writer) (*slog.Logger, func() error) {
	closer := func() error { return nil }
	w := fallback
	if logDir != "" {
		f, err := OpenFile(logDir, time.Now())
		if err == nil {
			w, closer = f, f.Close
		} else {
			fmt.Fprintf(os.Stderr, "Warning: could not open log file: %v\n", err)
		}
	}
	if w == nil {
		w = io.Discard
	}

	logger := New(w, level)
	slog.SetDefault(logger)
	return logger, closer
}
