package auth

import (
	"context"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/internal/telemetry"
)

// BeginSession opens session resources for every enabled backend that has
// a SessionBeginHook, even after one of them fails, and returns the most
// severe result (Error > Failure > Success).
//
// Each backend writes into its own scratch environment. The scratch
// environments are merged into env in chain order, so the last writer of a
// variable wins.
func (c *Chain) BeginSession(ctx context.Context, env *Env) Result {
	ctx, span := telemetry.StartAuthSpan(ctx, telemetry.SpanBeginSession)

	result := Success
	for _, d := range c.Enabled() {
		h, ok := d.backend.(SessionBeginHook)
		if !ok {
			continue
		}
		mctx := logger.ContextWithMethod(ctx, d.Name())
		scratch := &Env{}
		r := d.record(h.BeginSession(mctx, d, scratch))
		if env != nil {
			env.Merge(scratch)
		}
		if r != Success {
			logger.WarnCtx(mctx, "begin session failed", logger.KeyResult, r.String())
		}
		result = worst(result, r)
	}

	telemetry.EndAuthSpan(span, result.String(), nil)
	return result
}

// EndSession closes session resources for every enabled backend that has a
// SessionEndHook and aggregates like BeginSession.
func (c *Chain) EndSession(ctx context.Context) Result {
	ctx, span := telemetry.StartAuthSpan(ctx, telemetry.SpanEndSession)

	result := Success
	for _, d := range c.Enabled() {
		h, ok := d.backend.(SessionEndHook)
		if !ok {
			continue
		}
		mctx := logger.ContextWithMethod(ctx, d.Name())
		r := d.record(h.EndSession(mctx, d))
		if r != Success {
			logger.WarnCtx(mctx, "end session failed", logger.KeyResult, r.String())
		}
		result = worst(result, r)
	}

	telemetry.EndAuthSpan(span, result.String(), nil)
	return result
}

// Cleanup releases backend state in chain order. It stops at the first
// backend whose cleanup does not succeed and returns Error; later backends
// are not cleaned up. Session hooks, in contrast, always visit every backend.
func (c *Chain) Cleanup(ctx context.Context, force bool) Result {
	ctx, span := telemetry.StartAuthSpan(ctx, telemetry.SpanCleanup, telemetry.Force(force))

	result := Success
	for _, d := range c.Enabled() {
		h, ok := d.backend.(CleanupHook)
		if !ok {
			continue
		}
		mctx := logger.ContextWithMethod(ctx, d.Name())
		if r := d.record(h.Cleanup(mctx, d, force)); r != Success {
			logger.ErrorCtx(mctx, "method cleanup failed", logger.KeyResult, r.String(), logger.KeyForce, force)
			result = Error
			break
		}
	}

	telemetry.EndAuthSpan(span, result.String(), nil)
	return result
}
