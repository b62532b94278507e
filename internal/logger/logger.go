// Package logger provides the process-wide structured logger.
//
// It wraps log/slog with a colored text handler for terminals and a JSON
// handler for machine consumption. Level, format and output destination
// are reconfigurable at runtime, which the config watcher relies on.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	mu       sync.RWMutex
	level    = new(slog.LevelVar)
	format   = "text"
	output   io.Writer = os.Stdout
	useColor bool
	slogger  *slog.Logger
)

func init() {
	useColor = isTerminal(os.Stdout.Fd())
	rebuild()
}

// rebuild swaps the handler for the current settings.
// Caller must hold mu.
func rebuild() {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = NewColorTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

// Init applies a full logger configuration. Output can be "stdout",
// "stderr", or a file path (opened in append mode).
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		output = os.Stdout
		useColor = isTerminal(os.Stdout.Fd())
	case "stderr":
		output = os.Stderr
		useColor = isTerminal(os.Stderr.Fd())
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
		}
		output = f
		useColor = false
	}

	if cfg.Level != "" {
		level.Set(parseLevel(cfg.Level))
	}
	if f := strings.ToLower(cfg.Format); f == "text" || f == "json" {
		format = f
	}

	rebuild()
	return nil
}

// InitWithWriter points the logger at a custom writer. Primarily for tests.
func InitWithWriter(w io.Writer, lvl, fmtName string, color bool) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	useColor = color
	if lvl != "" {
		level.Set(parseLevel(lvl))
	}
	if f := strings.ToLower(fmtName); f == "text" || f == "json" {
		format = f
	}
	rebuild()
}

// SetLevel changes the minimum log level at runtime. Invalid levels are
// ignored.
func SetLevel(lvl string) {
	switch strings.ToUpper(lvl) {
	case "DEBUG", "INFO", "WARN", "ERROR":
		level.Set(parseLevel(lvl))
	}
}

// SetFormat changes the output format at runtime. Invalid formats are
// ignored.
func SetFormat(f string) {
	f = strings.ToLower(f)
	if f != "text" && f != "json" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	format = f
	rebuild()
}

func parseLevel(lvl string) slog.Level {
	switch strings.ToUpper(lvl) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level with structured fields.
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at info level with structured fields.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at warn level with structured fields.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at error level with structured fields.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// With returns a logger with pre-bound attributes.
func With(args ...any) *slog.Logger { return get().With(args...) }
