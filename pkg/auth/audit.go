package auth

import (
	"context"
	"time"
)

// VerifyEvent summarizes one completed verification.
type VerifyEvent struct {
	ID             string
	User           string
	Result         Result
	Interrupted    bool // user cancelled entry; Result is Failure
	Tries          uint32
	MaxTries       uint32
	SawBadPassword bool
	Method         string // backend that decided the outcome, if any
	Duration       time.Duration
	Err            error
}

// AuditSink receives exactly one event per verification.
type AuditSink interface {
	RecordVerify(ctx context.Context, ev VerifyEvent)
}

// AuditFunc adapts a function to AuditSink.
type AuditFunc func(ctx context.Context, ev VerifyEvent)

// RecordVerify calls f.
func (f AuditFunc) RecordVerify(ctx context.Context, ev VerifyEvent) {
	f(ctx, ev)
}
