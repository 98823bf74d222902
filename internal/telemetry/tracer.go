package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for authentication spans.
const (
	AttrUser           = "auth.user"
	AttrTargetUser     = "auth.target_user"
	AttrMethod         = "auth.method"
	AttrResult         = "auth.result"
	AttrTry            = "auth.try"
	AttrTries          = "auth.tries"
	AttrMaxTries       = "auth.max_tries"
	AttrBadPassword    = "auth.bad_password"
	AttrEnabledMethods = "auth.enabled_methods"
	AttrForce          = "auth.force"
	AttrExempt         = "auth.exempt"
)

// Span names for the orchestration phases.
const (
	SpanBuild        = "auth.build"
	SpanVerify       = "auth.verify"
	SpanApprove      = "auth.approve"
	SpanBeginSession = "auth.begin_session"
	SpanEndSession   = "auth.end_session"
	SpanCleanup      = "auth.cleanup"
)

// User returns an attribute for the invoking user.
func User(name string) attribute.KeyValue {
	return attribute.String(AttrUser, name)
}

// Method returns an attribute for a backend name.
func Method(name string) attribute.KeyValue {
	return attribute.String(AttrMethod, name)
}

// Result returns an attribute for an authentication result.
func Result(r string) attribute.KeyValue {
	return attribute.String(AttrResult, r)
}

// Try returns an attribute for the 1-based try number.
func Try(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrTry, int64(n))
}

// Tries returns an attribute for the number of tries used.
func Tries(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrTries, int64(n))
}

// MaxTries returns an attribute for the configured try limit.
func MaxTries(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrMaxTries, int64(n))
}

// BadPassword returns an attribute recording whether a wrong password was seen.
func BadPassword(seen bool) attribute.KeyValue {
	return attribute.Bool(AttrBadPassword, seen)
}

// EnabledMethods returns an attribute listing enabled backends in chain order.
func EnabledMethods(names []string) attribute.KeyValue {
	return attribute.StringSlice(AttrEnabledMethods, names)
}

// Force returns an attribute for the cleanup force flag.
func Force(force bool) attribute.KeyValue {
	return attribute.Bool(AttrForce, force)
}

// Exempt returns an attribute for the approval exemption flag.
func Exempt(exempt bool) attribute.KeyValue {
	return attribute.Bool(AttrExempt, exempt)
}

// StartAuthSpan starts a span for one orchestration phase.
func StartAuthSpan(ctx context.Context, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, phase,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndAuthSpan records the phase outcome on the span and ends it.
// A non-nil err marks the span as failed.
func EndAuthSpan(span trace.Span, result string, err error) {
	span.SetAttributes(Result(result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
