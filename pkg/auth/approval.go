package auth

import (
	"context"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/internal/telemetry"
)

// Approve runs the account-status checks of every enabled backend in chain
// order and returns the first non-Success result. Later approvals are not
// run once one has failed.
//
// exempt waives the checks an administrator may waive, such as password
// expiry. Backends without an ApprovalHook approve implicitly.
func (c *Chain) Approve(ctx context.Context, exempt bool) Result {
	ctx, span := telemetry.StartAuthSpan(ctx, telemetry.SpanApprove, telemetry.Exempt(exempt))

	result := Success
	for _, d := range c.Enabled() {
		h, ok := d.backend.(ApprovalHook)
		if !ok {
			continue
		}
		mctx := logger.ContextWithMethod(ctx, d.Name())
		r := d.record(h.Approve(mctx, d, exempt))
		if r != Success {
			logger.InfoCtx(mctx, "approval denied", logger.KeyResult, r.String(), logger.KeyExempt, exempt)
			span.SetAttributes(telemetry.Method(d.Name()))
			result = r
			break
		}
	}

	telemetry.EndAuthSpan(span, result.String(), nil)
	return result
}
