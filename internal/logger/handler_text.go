package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset = "\033[0m"
	ansiKey   = "\033[36m"
)

// levelLabels maps the four accepted levels to their bracketed label and
// terminal color.
var levelLabels = []struct {
	min   slog.Level
	name  string
	color string
}{
	{LevelError, "ERROR", "\033[31m"},
	{LevelWarn, "WARN", "\033[33m"},
	{LevelInfo, "INFO", "\033[32m"},
	{slog.Level(-1 << 10), "DEBUG", "\033[90m"},
}

// textHandler writes one line per record:
//
//	[2006-01-02 15:04:05] [LEVEL] message key=value ...
//
// Keys inside groups are written as group.key. The line format is what
// `dittoauth logs` parses back.
type textHandler struct {
	w       *lockedWriter
	opts    slog.HandlerOptions
	color   bool
	prefix  string // group path, "" or "a.b."
	groups  []string
	preattr []byte // WithAttrs output, already rendered
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newTextHandler(w io.Writer, opts *slog.HandlerOptions, color bool) *textHandler {
	h := &textHandler{w: &lockedWriter{w: w}, color: color}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *textHandler) Enabled(_ context.Context, l slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return l >= min
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	line := make([]byte, 0, 128+len(h.preattr))
	line = append(line, '[')
	line = r.Time.AppendFormat(line, time.DateTime)
	line = append(line, "] ["...)
	line = h.appendLevel(line, r.Level)
	line = append(line, "] "...)
	line = append(line, r.Message...)
	line = append(line, h.preattr...)
	r.Attrs(func(a slog.Attr) bool {
		line = h.appendAttr(line, h.prefix, a)
		return true
	})
	line = append(line, '\n')

	h.w.mu.Lock()
	defer h.w.mu.Unlock()
	_, err := h.w.w.Write(line)
	return err
}

func (h *textHandler) appendLevel(b []byte, l slog.Level) []byte {
	for _, lbl := range levelLabels {
		if l >= lbl.min {
			if h.color {
				return append(append(append(b, lbl.color...), lbl.name...), ansiReset...)
			}
			return append(b, lbl.name...)
		}
	}
	return b
}

func (h *textHandler) appendAttr(b []byte, prefix string, a slog.Attr) []byte {
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(h.groups, a)
	}
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return b
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			b = h.appendAttr(b, p, ga)
		}
		return b
	}

	b = append(b, ' ')
	if h.color {
		b = append(b, ansiKey...)
	}
	b = append(b, prefix...)
	b = append(b, a.Key...)
	if h.color {
		b = append(b, ansiReset...)
	}
	b = append(b, '=')
	return appendValue(b, a.Value)
}

func appendValue(b []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.AppendQuote(b, s)
		}
		return append(b, s...)
	case slog.KindInt64:
		return strconv.AppendInt(b, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(b, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(b, v.Float64(), 'f', 3, 64)
	case slog.KindBool:
		return strconv.AppendBool(b, v.Bool())
	case slog.KindDuration:
		return append(b, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(b, time.RFC3339)
	default:
		return appendValue(b, slog.StringValue(v.String()))
	}
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.preattr = append([]byte(nil), h.preattr...)
	for _, a := range attrs {
		c.preattr = h.appendAttr(c.preattr, h.prefix, a)
	}
	return &c
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(append([]string(nil), h.groups...), name)
	c.prefix = h.prefix + name + "."
	return &c
}
