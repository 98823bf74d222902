// Package audit provides auth.AuditSink implementations: a structured log
// line per verification, Prometheus counters, and a fan-out combining them.
package audit

import (
	"context"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/metrics"
)

// LogSink writes one log line per verification. Successes are logged at
// INFO, everything else at WARN.
type LogSink struct{}

// RecordVerify implements auth.AuditSink.
func (LogSink) RecordVerify(ctx context.Context, ev auth.VerifyEvent) {
	args := []any{
		logger.KeyEventID, ev.ID,
		logger.KeyUser, ev.User,
		logger.KeyResult, ev.Result.String(),
		logger.KeyTries, ev.Tries,
		logger.KeyMaxTries, ev.MaxTries,
		logger.KeyBadPassword, ev.SawBadPassword,
		logger.KeyDurationMs, float64(ev.Duration.Microseconds()) / 1000,
	}
	if ev.Method != "" {
		args = append(args, logger.KeyMethod, ev.Method)
	}
	if ev.Interrupted {
		args = append(args, logger.KeyInterrupted, true)
	}
	if ev.Err != nil {
		args = append(args, logger.KeyError, ev.Err.Error())
	}

	if ev.Result == auth.Success {
		logger.InfoCtx(ctx, "authentication succeeded", args...)
		return
	}
	logger.WarnCtx(ctx, "authentication failed", args...)
}

// MetricsSink records verifications on an AuthMetrics. A nil metrics
// implementation makes it a no-op.
type MetricsSink struct {
	m metrics.AuthMetrics
}

// NewMetricsSink returns a sink recording on m.
func NewMetricsSink(m metrics.AuthMetrics) *MetricsSink {
	return &MetricsSink{m: m}
}

// RecordVerify implements auth.AuditSink.
func (s *MetricsSink) RecordVerify(_ context.Context, ev auth.VerifyEvent) {
	metrics.RecordVerify(s.m, ev.Result.String(), ev.Method, ev.Tries, ev.SawBadPassword, ev.Interrupted, ev.Duration)
}

// Multi forwards every event to each non-nil sink in order.
func Multi(sinks ...auth.AuditSink) auth.AuditSink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []auth.AuditSink

func (m multi) RecordVerify(ctx context.Context, ev auth.VerifyEvent) {
	for _, s := range m {
		s.RecordVerify(ctx, ev)
	}
}
