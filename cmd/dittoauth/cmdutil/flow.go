package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittoauth/internal/cli/prompt"
	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/pkg/audit"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/auth/methods"
	"github.com/marmos91/dittoauth/pkg/metrics"
	"github.com/marmos91/dittoauth/pkg/tscache"
)

var (
	// ErrAuthFailed is returned when the user could not be authenticated.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrApprovalFailed is returned when an account check rejects the user.
	ErrApprovalFailed = errors.New("account validation failure, is your account locked or expired?")

	// ErrSessionFailed is returned when a session could not be opened.
	ErrSessionFailed = errors.New("unable to open authentication session")
)

// AuthOptions configures one authentication.
type AuthOptions struct {
	// User to authenticate; empty means the invoking user.
	User string

	// TargetUser is reported in prompts (%U). Defaults to root.
	TargetUser string

	NonInteractive bool

	// Stdin reads secrets from In instead of the terminal.
	Stdin bool
	In    io.Reader
	Err   io.Writer

	// Identity and Prompter override the system lookups.
	Identity *auth.Identity
	Prompter auth.Prompter
}

// Authenticator drives one invocation through build, verification,
// approval, session and cleanup.
type Authenticator struct {
	rt       *Runtime
	id       *auth.Identity
	chain    *auth.Chain
	prompter auth.Prompter
	closer   io.Closer
	ts       *tscache.Handle
	lock     *auth.SuspendableLock
	errOut   io.Writer

	// Cached is set when the timestamp made verification unnecessary.
	Cached bool
}

// NewAuthenticator resolves the identity and prompter and builds the
// method chain.
func NewAuthenticator(ctx context.Context, rt *Runtime, opts AuthOptions) (*Authenticator, error) {
	a := &Authenticator{rt: rt, errOut: opts.Err}
	if a.errOut == nil {
		a.errOut = os.Stderr
	}

	a.id = opts.Identity
	if a.id == nil {
		id, err := auth.LookupIdentity(opts.User, opts.TargetUser)
		if err != nil {
			return nil, err
		}
		a.id = id
	}
	ctx = logger.WithContext(ctx, logger.NewLogContext(a.id.User))

	switch {
	case opts.Prompter != nil:
		a.prompter = opts.Prompter
	case opts.Stdin:
		in := opts.In
		if in == nil {
			in = os.Stdin
		}
		a.prompter = prompt.NewReader(in, a.errOut)
	case !opts.NonInteractive:
		t, err := prompt.NewTerminal()
		if err != nil {
			return nil, err
		}
		a.prompter, a.closer = t, t
	}

	descs, err := methods.Build(&a.rt.Config.Auth, a.id.User)
	if err != nil {
		a.closePrompter()
		return nil, err
	}
	chain, err := auth.Build(ctx, descs, opts.NonInteractive)
	if err != nil {
		a.closePrompter()
		return nil, err
	}
	a.chain = chain
	return a, nil
}

// Chain returns the built chain.
func (a *Authenticator) Chain() *auth.Chain {
	return a.chain
}

// Identity returns the resolved identity.
func (a *Authenticator) Identity() *auth.Identity {
	return a.id
}

// Authenticate verifies the user unless the timestamp is still valid,
// runs the approval checks and refreshes the timestamp.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	ctx = logger.WithContext(ctx, logger.NewLogContext(a.id.User))
	cfg := a.rt.Config

	if err := a.openTimestamp(); err != nil {
		return err
	}
	defer a.lock.Close()

	timeout := cfg.Timestamp.Timeout
	if a.ts != nil {
		valid, err := a.ts.Valid(timeout)
		if err != nil {
			logger.WarnCtx(ctx, "timestamp lookup failed", logger.Err(err))
		}
		a.Cached = valid
	}

	if !a.Cached {
		if err := a.verify(ctx); err != nil {
			return err
		}
	} else {
		logger.DebugCtx(ctx, "timestamp valid, skipping verification")
	}

	exempt := a.id.Exempt(cfg.Auth.ExemptUsers, cfg.Auth.ExemptGroups)
	r := a.chain.Approve(ctx, exempt)
	metrics.RecordPhase(a.rt.AuthMetrics, "approve", r.String())
	if r != auth.Success {
		if a.ts != nil {
			_ = a.ts.Remove()
		}
		return ErrApprovalFailed
	}

	if a.ts != nil {
		if err := a.ts.Update(timeout); err != nil {
			logger.WarnCtx(ctx, "timestamp update failed", logger.Err(err))
		}
	}
	return nil
}

// AuthenticateInterruptible is Authenticate with SIGINT and SIGQUIT
// cancelling ctx. The handlers are removed before it returns, so a command
// started afterwards receives those signals itself.
func (a *Authenticator) AuthenticateInterruptible(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGQUIT)
	defer stop()
	return a.Authenticate(ctx)
}

func (a *Authenticator) verify(ctx context.Context) error {
	cfg := a.rt.Config
	engine := auth.NewVerifyEngine(auth.VerifyOptions{
		MaxTries: cfg.Auth.MaxTries,
		Prompter: a.prompter,
		Lock:     a.lock,
		Audit: audit.Multi(
			audit.LogSink{},
			audit.NewMetricsSink(a.rt.AuthMetrics),
		),
		User:               a.id.User,
		BadPasswordMessage: cfg.Auth.BadPasswordMessage,
		WarnOutput:         a.errOut,
	})

	out := engine.Verify(ctx, a.chain, auth.ExpandPrompt(cfg.Auth.Prompt, a.id.PromptVars()))
	switch out.Result {
	case auth.Success:
		return nil
	case auth.Failure:
		incorrect := out.State.TriesUsed
		if out.Interrupted && incorrect > 0 {
			incorrect--
		}
		if out.State.SawBadPassword && incorrect > 0 {
			suffix := "s"
			if incorrect == 1 {
				suffix = ""
			}
			_, _ = fmt.Fprintf(a.errOut, "%d incorrect password attempt%s\n", incorrect, suffix)
		}
		return ErrAuthFailed
	default:
		if out.Err != nil {
			return out.Err
		}
		return ErrAuthFailed
	}
}

// openTimestamp opens and locks the timestamp cache. A disabled cache
// leaves ts nil; a cache that cannot be opened is logged and skipped.
func (a *Authenticator) openTimestamp() error {
	if a.ts != nil {
		_ = a.ts.Close()
		a.ts = nil
	}

	cfg := a.rt.Config.Timestamp
	if cfg.Timeout < 0 || cfg.Dir == "" {
		a.lock = auth.NewSuspendableLock(nil)
		return nil
	}

	ts, err := tscache.Open(cfg.Dir, a.id.User, tscache.WithMetrics(a.rt.TSMetrics))
	if err != nil {
		logger.Warn("timestamp cache unavailable", logger.Path(cfg.Dir), logger.Err(err))
		a.lock = auth.NewSuspendableLock(nil)
		return nil
	}
	a.ts = ts
	a.lock = auth.NewSuspendableLock(ts)
	return a.lock.Acquire()
}

// Invalidate removes the user's timestamp record.
func (a *Authenticator) Invalidate() error {
	if err := a.openTimestamp(); err != nil {
		return err
	}
	defer a.lock.Close()
	if a.ts == nil {
		return nil
	}
	return a.ts.Remove()
}

// Invalidate removes user's timestamp record without building a chain.
func Invalidate(rt *Runtime, user string) error {
	cfg := rt.Config.Timestamp
	if cfg.Dir == "" {
		return nil
	}
	ts, err := tscache.Open(cfg.Dir, user, tscache.WithMetrics(rt.TSMetrics))
	if err != nil {
		return err
	}
	defer ts.Close()
	if !ts.Lock() {
		return auth.ErrLockBusy
	}
	defer ts.Unlock()
	return ts.Remove()
}

// RunCommand runs argv inside an authentication session and returns its
// exit status. SIGINT and SIGQUIT are left to the child while it runs.
func (a *Authenticator) RunCommand(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if len(argv) == 0 {
		return 0, errors.New("no command given")
	}

	env := auth.NewEnv(os.Environ())
	r := a.chain.BeginSession(ctx, env)
	metrics.RecordPhase(a.rt.AuthMetrics, "begin_session", r.String())
	if r != auth.Success {
		return 0, ErrSessionFailed
	}
	defer func() {
		r := a.chain.EndSession(ctx)
		metrics.RecordPhase(a.rt.AuthMetrics, "end_session", r.String())
	}()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = env.Environ()
	cmd.Stdin, cmd.Stdout, cmd.Stderr = stdin, stdout, stderr

	// Caught rather than ignored: ignored dispositions survive exec.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigs)

	logger.DebugCtx(ctx, "running command", logger.KeyCommand, argv[0])
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			code = 128 + int(ws.Signal())
		}
		logger.DebugCtx(ctx, "command exited", logger.KeyExit, code)
		return code, nil
	default:
		return 0, fmt.Errorf("run %s: %w", argv[0], err)
	}
}

// Close runs the chain cleanup and releases the prompter.
func (a *Authenticator) Close(ctx context.Context, force bool) {
	if a == nil {
		return
	}
	if a.chain != nil {
		r := a.chain.Cleanup(ctx, force)
		metrics.RecordPhase(a.rt.AuthMetrics, "cleanup", r.String())
	}
	if a.ts != nil {
		_ = a.ts.Close()
	}
	a.closePrompter()
}

func (a *Authenticator) closePrompter() {
	if a.closer != nil {
		_ = a.closer.Close()
		a.closer = nil
	}
}
