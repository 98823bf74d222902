// Package logger is the process-wide structured logger for dittoauth.
//
// Backends and the orchestrator log through package functions (Debug, Warn,
// ErrorCtx, ...) instead of carrying a *slog.Logger around. The *Ctx
// variants prepend the LogContext fields (user, method, event and trace IDs)
// so every line of one authentication can be correlated. Secret-bearing
// attributes are redacted by both output formats.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Level is a slog level; the four named ones are the only ones accepted
// from configuration.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config mirrors the logging section of the configuration file.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

var (
	level slog.LevelVar

	mu     sync.RWMutex
	out    io.Writer
	file   io.Closer
	format string
	color  bool
	base   *slog.Logger
)

func init() {
	level.Set(LevelWarn)
	out = os.Stderr
	format = "text"
	color = isTTY(os.Stderr)
	rebuild()
}

// ParseLevel accepts DEBUG, INFO, WARN and ERROR in any case.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return 0, false
}

func isTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// rebuild swaps in a handler for the current sink and format. The level is
// read through the LevelVar, so SetLevel never needs a rebuild.
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: &level, ReplaceAttr: redactAttr}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = newTextHandler(out, opts, color)
	}
	base = slog.New(h)
}

// openOutput resolves the configured destination. Log files are opened for
// append with owner-only permissions since they name users and hosts.
func openOutput(dest string) (io.Writer, io.Closer, bool, error) {
	switch strings.ToLower(dest) {
	case "stdout":
		return os.Stdout, nil, isTTY(os.Stdout), nil
	case "stderr":
		return os.Stderr, nil, isTTY(os.Stderr), nil
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to open log file %q: %w", dest, err)
	}
	return f, f, false, nil
}

// Init applies cfg. Empty fields keep their current value; the default
// destination is stderr so log lines never mix with a command's stdout.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, c, tty, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		setSink(w, c, tty)
	}
	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	rebuild()
	return nil
}

// InitWithWriter sends output to w, typically a test buffer.
func InitWithWriter(w io.Writer, lvl, form string, enableColor bool) {
	setSink(w, nil, enableColor)
	SetLevel(lvl)
	SetFormat(form)
	rebuild()
}

func setSink(w io.Writer, c io.Closer, tty bool) {
	mu.Lock()
	prev := file
	out, file, color = w, c, tty
	mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	if l, ok := ParseLevel(name); ok {
		level.Set(l)
	}
}

// SetFormat switches between "text" and "json". Unknown names are ignored.
func SetFormat(name string) {
	name = strings.ToLower(name)
	if name != "text" && name != "json" {
		return
	}
	mu.Lock()
	changed := format != name
	format = name
	mu.Unlock()
	if changed {
		rebuild()
	}
}

// CurrentLevel returns the active minimum level.
func CurrentLevel() Level {
	return level.Level()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func logAt(ctx context.Context, lvl Level, msg string, args []any) {
	if lvl < level.Level() {
		return
	}
	if lc := FromContext(ctx); lc != nil {
		args = append(lc.fields(), args...)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	current().Log(ctx, lvl, msg, args...)
}

func Debug(msg string, args ...any) { logAt(context.Background(), LevelDebug, msg, args) }
func Info(msg string, args ...any)  { logAt(context.Background(), LevelInfo, msg, args) }
func Warn(msg string, args ...any)  { logAt(context.Background(), LevelWarn, msg, args) }
func Error(msg string, args ...any) { logAt(context.Background(), LevelError, msg, args) }

// DebugCtx and friends prepend the LogContext carried by ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) { logAt(ctx, LevelDebug, msg, args) }
func InfoCtx(ctx context.Context, msg string, args ...any)  { logAt(ctx, LevelInfo, msg, args) }
func WarnCtx(ctx context.Context, msg string, args ...any)  { logAt(ctx, LevelWarn, msg, args) }
func ErrorCtx(ctx context.Context, msg string, args ...any) { logAt(ctx, LevelError, msg, args) }

// With returns a logger carrying args on every line.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}
