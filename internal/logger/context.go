package logger

import (
	"context"
	"time"
)

type ctxKey struct{}

// LogContext carries the identifiers of one authentication. Values are
// treated as immutable; the With* methods return modified copies.
type LogContext struct {
	User       string
	TargetUser string
	Method     string

	// EventID ties log lines to the audit event of one verification.
	EventID string
	TraceID string
	SpanID  string

	Started time.Time
}

// NewLogContext starts a context for user.
func NewLogContext(user string) *LogContext {
	return &LogContext{User: user, Started: time.Now()}
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, lc)
}

// FromContext returns the LogContext attached to ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(ctxKey{}).(*LogContext)
	return lc
}

// ContextWithMethod names the backend currently being driven. A ctx without
// a LogContext gets one holding only the method.
func ContextWithMethod(ctx context.Context, method string) context.Context {
	return WithContext(ctx, FromContext(ctx).WithMethod(method))
}

func (lc *LogContext) copy() *LogContext {
	if lc == nil {
		return &LogContext{}
	}
	c := *lc
	return &c
}

func (lc *LogContext) WithMethod(method string) *LogContext {
	c := lc.copy()
	c.Method = method
	return c
}

func (lc *LogContext) WithEvent(id string) *LogContext {
	c := lc.copy()
	c.EventID = id
	return c
}

func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	c := lc.copy()
	c.TraceID, c.SpanID = traceID, spanID
	return c
}

// Elapsed is the time since the context was started, zero if unknown.
func (lc *LogContext) Elapsed() time.Duration {
	if lc == nil || lc.Started.IsZero() {
		return 0
	}
	return time.Since(lc.Started)
}

// fields renders the non-empty identifiers as key/value pairs, trace IDs
// first.
func (lc *LogContext) fields() []any {
	pairs := [...]struct{ k, v string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeyEventID, lc.EventID},
		{KeyUser, lc.User},
		{KeyTargetUser, lc.TargetUser},
		{KeyMethod, lc.Method},
	}
	out := make([]any, 0, 2*len(pairs))
	for _, p := range pairs {
		if p.v != "" {
			out = append(out, p.k, p.v)
		}
	}
	return out
}
