package auth

import (
	"context"
	"fmt"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/internal/telemetry"
)

// Chain is the validated, ordered set of backends for one process.
//
// A Chain is built once by Build, driven by a single goroutine for the
// life of the request, and torn down with Cleanup.
type Chain struct {
	descs          []*Descriptor
	nonInteractive bool
}

// Build initializes descs in order and enforces the exclusivity rules.
//
// Order is significant: standalone-capable methods come first, then shared
// methods. For every descriptor that is not already disabled, Build copies
// the non-interactive mode onto it and runs its Init hook. Failure disables
// the backend; any other non-Success result aborts with ErrInitFailed.
//
// After init, only the first enabled standalone backend is kept; later
// standalone backends are disabled silently. A standalone backend next to
// any enabled shared backend is rejected with ErrMixedStandalone. When no
// backend is left Build returns ErrNoMethods, and when exactly one is left
// it is marked FlagOnlyMethod.
func Build(ctx context.Context, descs []*Descriptor, nonInteractive bool) (_ *Chain, err error) {
	ctx, span := telemetry.StartAuthSpan(ctx, telemetry.SpanBuild)
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		telemetry.EndAuthSpan(span, status, err)
	}()

	if len(descs) == 0 {
		logger.ErrorCtx(ctx, "no authentication methods configured")
		return nil, ErrNoMethods
	}

	for _, d := range descs {
		if !d.Enabled() {
			continue
		}
		d.set(FlagNonInteractive, nonInteractive)

		h, ok := d.backend.(InitHook)
		if !ok {
			continue
		}
		mctx := logger.ContextWithMethod(ctx, d.Name())
		switch r := d.record(h.Init(mctx, d)); r {
		case Success:
			logger.DebugCtx(mctx, "method initialized")
		case Failure:
			d.disable()
			logger.InfoCtx(mctx, "method disabled during init")
		default:
			logger.ErrorCtx(mctx, "method initialization failed", logger.KeyResult, r.String())
			return nil, fmt.Errorf("%w: %s returned %s", ErrInitFailed, d.Name(), r)
		}
	}

	var standalone *Descriptor
	for _, d := range descs {
		if !d.Enabled() || !d.Standalone() {
			continue
		}
		if standalone == nil {
			standalone = d
			continue
		}
		d.disable()
		logger.DebugCtx(ctx, "extra standalone method disabled",
			logger.KeyMethod, d.Name(), logger.KeyStandalone, standalone.Name())
	}

	c := &Chain{descs: descs, nonInteractive: nonInteractive}
	enabled := c.Enabled()

	if standalone != nil {
		for _, d := range enabled {
			if !d.Standalone() {
				logger.ErrorCtx(ctx, "invalid authentication methods",
					logger.KeyStandalone, standalone.Name(), logger.KeyMethod, d.Name())
				return nil, fmt.Errorf("%w: %s and %s", ErrMixedStandalone, standalone.Name(), d.Name())
			}
		}
	}

	switch len(enabled) {
	case 0:
		logger.ErrorCtx(ctx, "every authentication method disabled itself during init")
		return nil, fmt.Errorf("%w: every method disabled itself during init", ErrNoMethods)
	case 1:
		enabled[0].set(FlagOnlyMethod, true)
	}

	span.SetAttributes(telemetry.EnabledMethods(c.EnabledNames()))
	logger.DebugCtx(ctx, "authentication chain built", logger.KeyEnabledMethods, c.EnabledNames())
	return c, nil
}

// Descriptors returns every descriptor, enabled or not, in chain order.
func (c *Chain) Descriptors() []*Descriptor {
	if c == nil || len(c.descs) == 0 {
		return nil
	}
	return append([]*Descriptor(nil), c.descs...)
}

// Enabled returns the enabled descriptors in chain order.
func (c *Chain) Enabled() []*Descriptor {
	if c == nil {
		return nil
	}
	var out []*Descriptor
	for _, d := range c.descs {
		if d.Enabled() {
			out = append(out, d)
		}
	}
	return out
}

// EnabledNames returns the names of the enabled descriptors in chain order.
func (c *Chain) EnabledNames() []string {
	var names []string
	for _, d := range c.Enabled() {
		names = append(names, d.Name())
	}
	return names
}

// Len returns the number of descriptors, enabled or not.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.descs)
}

// Standalone reports whether the chain is driven by a standalone backend.
// Build guarantees that a standalone chain has no shared backends.
func (c *Chain) Standalone() bool {
	enabled := c.Enabled()
	return len(enabled) > 0 && enabled[0].Standalone()
}

// NonInteractive reports whether the chain was built in no-prompt mode.
func (c *Chain) NonInteractive() bool {
	return c != nil && c.nonInteractive
}
