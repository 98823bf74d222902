package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/internal/telemetry"
)

const (
	// DefaultMaxTries is used when VerifyOptions.MaxTries is zero.
	DefaultMaxTries = 3

	// DefaultBadPasswordMessage is printed before every retry.
	DefaultBadPasswordMessage = "Sorry, try again."
)

// RetryState tracks the tries of one verification.
type RetryState struct {
	TriesUsed uint32
	MaxTries  uint32

	// SawBadPassword is true once at least one whole try ended in Failure.
	SawBadPassword bool
}

// VerifyOptions configures a VerifyEngine.
type VerifyOptions struct {
	// MaxTries bounds the number of tries. Zero means DefaultMaxTries.
	MaxTries uint32

	// Prompter obtains the shared credential and is handed to standalone
	// backends.
	Prompter Prompter

	// Lock is released while the process is stopped. May be nil.
	Lock *SuspendableLock

	// Audit receives one event per Verify call. May be nil.
	Audit AuditSink

	// User is the invoking user, recorded in the audit event.
	User string

	// Warn is called before every try after the first. The default writes
	// BadPasswordMessage to WarnOutput.
	Warn func(ctx context.Context)

	BadPasswordMessage string
	WarnOutput         io.Writer
}

// VerifyOutcome is the externally visible result of a verification.
type VerifyOutcome struct {
	// Result is Success, Failure, NonInteractive or Error.
	Result Result
	State  RetryState

	// Method is the backend whose result ended the last try.
	Method string

	// Interrupted is set when the user cancelled entry; Result is Failure.
	Interrupted bool

	// Err carries the diagnostic for Error and NonInteractive results.
	Err error
}

// VerifyEngine runs the retry loop over a Chain.
type VerifyEngine struct {
	opts VerifyOptions
}

// NewVerifyEngine returns an engine with defaults applied to opts.
func NewVerifyEngine(opts VerifyOptions) *VerifyEngine {
	if opts.MaxTries == 0 {
		opts.MaxTries = DefaultMaxTries
	}
	if opts.BadPasswordMessage == "" {
		opts.BadPasswordMessage = DefaultBadPasswordMessage
	}
	if opts.WarnOutput == nil {
		opts.WarnOutput = os.Stderr
	}
	return &VerifyEngine{opts: opts}
}

// Verify authenticates the user against chain, prompting with prompt.
//
// Each try runs every Setup hook, prompts once for a shared credential
// (unless the chain is standalone) and asks the enabled backends in order
// until one returns something other than Failure. The credential is wiped
// at the end of every try. Only Failure is retried, up to MaxTries.
//
// The final result is mapped as follows: Success stays Success,
// Interrupted and Failure become Failure, NonInteractive stays
// NonInteractive and everything else becomes Error. Exactly one audit
// event is recorded per call.
func (e *VerifyEngine) Verify(ctx context.Context, chain *Chain, prompt string) VerifyOutcome {
	start := time.Now()
	eventID := uuid.NewString()

	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = logger.NewLogContext(e.opts.User)
	}
	ctx, span := telemetry.StartAuthSpan(ctx, telemetry.SpanVerify,
		telemetry.User(e.opts.User), telemetry.MaxTries(e.opts.MaxTries))
	ctx = logger.WithContext(ctx, lc.WithEvent(eventID).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))

	out := e.run(ctx, chain, prompt)

	span.SetAttributes(
		telemetry.Tries(out.State.TriesUsed),
		telemetry.BadPassword(out.State.SawBadPassword),
		telemetry.Method(out.Method),
	)
	telemetry.EndAuthSpan(span, out.Result.String(), out.Err)

	ev := VerifyEvent{
		ID:             eventID,
		User:           e.opts.User,
		Result:         out.Result,
		Interrupted:    out.Interrupted,
		Tries:          out.State.TriesUsed,
		MaxTries:       out.State.MaxTries,
		SawBadPassword: out.State.SawBadPassword,
		Method:         out.Method,
		Duration:       time.Since(start),
		Err:            out.Err,
	}
	if e.opts.Audit != nil {
		e.opts.Audit.RecordVerify(ctx, ev)
	}
	return out
}

func (e *VerifyEngine) run(ctx context.Context, chain *Chain, prompt string) VerifyOutcome {
	state := RetryState{MaxTries: e.opts.MaxTries}

	if len(chain.Enabled()) == 0 {
		logger.ErrorCtx(ctx, "no authentication methods")
		return VerifyOutcome{Result: Error, State: state, Err: ErrNoMethods}
	}

	var (
		resumeMu  sync.Mutex
		resumeErr error
	)
	resumed := func() error {
		resumeMu.Lock()
		defer resumeMu.Unlock()
		return resumeErr
	}
	if p := e.opts.Prompter; p != nil {
		hooks := &SuspendHooks{
			OnSuspend: e.opts.Lock.Release,
			OnResume: func() error {
				err := e.opts.Lock.Reacquire()
				if err != nil {
					resumeMu.Lock()
					if resumeErr == nil {
						resumeErr = err
					}
					resumeMu.Unlock()
				}
				return err
			},
		}
		prev := p.SetSuspendHooks(hooks)
		defer p.SetSuspendHooks(prev)
	}

	var (
		result      = Failure
		method      string
		interrupted bool
		err         error
	)

tries:
	for state.TriesUsed < state.MaxTries {
		if ctx.Err() != nil {
			logger.InfoCtx(ctx, "verification interrupted before try", logger.KeyTries, state.TriesUsed)
			result, interrupted = Interrupted, true
			break
		}
		state.TriesUsed++
		if state.TriesUsed > 1 {
			e.warn(ctx)
		}

		if r, serr := e.setup(ctx, chain, &prompt); r != Success {
			result, err = r, serr
			break
		}

		var cred *Credential
		if !chain.Standalone() {
			if chain.NonInteractive() {
				result, err = NonInteractive, ErrNonInteractive
				break
			}
			if e.opts.Prompter == nil {
				result, err = Error, ErrNoPrompter
				break
			}
			c, perr := e.opts.Prompter.GetSecret(ctx, prompt, EchoOff)
			switch {
			case resumed() != nil:
				c.Wipe()
				result, err = Error, resumed()
				break tries
			case perr != nil && !errors.Is(perr, ErrPromptInterrupted):
				c.Wipe()
				logger.ErrorCtx(ctx, "unable to read password", logger.Err(perr))
				result, err = Error, fmt.Errorf("read password: %w", perr)
				break tries
			case c == nil || perr != nil:
				c.Wipe()
				logger.InfoCtx(ctx, "password entry cancelled", logger.KeyTries, state.TriesUsed)
				result, interrupted = Interrupted, true
				break tries
			}
			cred = c
		}

		result, method = e.verifyOnce(ctx, chain, prompt, cred)
		cred.Wipe()

		if rerr := resumed(); rerr != nil {
			result, err = Error, rerr
			break
		}
		if result == Interrupted {
			interrupted = true
		}
		if result != Failure {
			break
		}
		state.SawBadPassword = true
	}

	if rerr := resumed(); rerr != nil && result != Error {
		result, err = Error, rerr
	}

	out := VerifyOutcome{State: state, Method: method, Interrupted: interrupted}
	switch result {
	case Success:
		out.Result = Success
	case Interrupted, Failure:
		out.Result = Failure
	case NonInteractive:
		out.Result = NonInteractive
		out.Err = err
	default:
		out.Result = Error
		out.Err = err
		if out.Err == nil {
			out.Err = fmt.Errorf("auth: method %s reported an error", method)
		}
	}

	logger.InfoCtx(ctx, "verification finished",
		logger.KeyResult, out.Result.String(),
		logger.KeyTries, state.TriesUsed,
		logger.KeyMaxTries, state.MaxTries,
		logger.KeyBadPassword, state.SawBadPassword,
		logger.KeyInterrupted, interrupted,
		logger.KeyMethod, method,
	)
	return out
}

// setup runs every enabled backend's Setup hook. Failure disables the
// backend; NonInteractive and Error abort the verification.
func (e *VerifyEngine) setup(ctx context.Context, chain *Chain, prompt *string) (Result, error) {
	for _, d := range chain.Enabled() {
		h, ok := d.backend.(SetupHook)
		if !ok {
			continue
		}
		mctx := logger.ContextWithMethod(ctx, d.Name())
		switch r := d.record(h.Setup(mctx, d, prompt)); r {
		case Success:
		case Failure:
			d.disable()
			logger.InfoCtx(mctx, "method disabled during setup")
		case NonInteractive:
			return NonInteractive, ErrNonInteractive
		default:
			logger.ErrorCtx(mctx, "method setup failed", logger.KeyResult, r.String())
			return Error, fmt.Errorf("%w: %s returned %s", ErrSetupFailed, d.Name(), r)
		}
	}
	if len(chain.Enabled()) == 0 {
		logger.ErrorCtx(ctx, "every method disabled itself during setup")
		return Error, ErrNoEnabledMethods
	}
	return Success, nil
}

// verifyOnce asks each enabled backend in order and stops at the first
// result that is not Failure.
func (e *VerifyEngine) verifyOnce(ctx context.Context, chain *Chain, prompt string, cred *Credential) (Result, string) {
	result, method := Failure, ""
	req := VerifyRequest{Credential: cred, Prompt: prompt, Prompter: e.opts.Prompter}
	for _, d := range chain.Enabled() {
		mctx := logger.ContextWithMethod(ctx, d.Name())
		result, method = d.record(d.backend.Verify(mctx, d, req)), d.Name()
		logger.DebugCtx(mctx, "method verified", logger.KeyResult, result.String())
		if result != Failure {
			break
		}
	}
	return result, method
}

func (e *VerifyEngine) warn(ctx context.Context) {
	if e.opts.Warn != nil {
		e.opts.Warn(ctx)
		return
	}
	fmt.Fprintln(e.opts.WarnOutput, e.opts.BadPasswordMessage)
}
