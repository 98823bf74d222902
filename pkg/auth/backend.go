package auth

import "context"

// Backend is a pluggable credential-verification provider.
//
// Verify is the only required operation. The lifecycle hooks below are
// optional; the chain detects them with type assertions and skips backends
// that do not implement a given hook.
//
// Backends keep their own per-process state (connection handles, cached
// hashes) in the implementing value. State is created by Init and released
// by Cleanup.
type Backend interface {
	// Name returns the method name for logging and diagnostics.
	// Examples: "passwd", "kerberos", "otp"
	Name() string

	// Verify checks the user's credential.
	//
	// Shared backends receive the try's Credential in req. Standalone
	// backends receive no Credential and prompt through req.Prompter using
	// req.Prompt. Implementations must not retain req.Credential after
	// returning; the engine wipes it.
	Verify(ctx context.Context, d *Descriptor, req VerifyRequest) Result
}

// InitHook is called once by Build. Failure disables the backend; Error
// aborts the build.
type InitHook interface {
	Init(ctx context.Context, d *Descriptor) Result
}

// SetupHook is called before every try and may rewrite the prompt.
// Failure disables the backend; Error and NonInteractive abort verification.
type SetupHook interface {
	Setup(ctx context.Context, d *Descriptor, prompt *string) Result
}

// ApprovalHook runs post-verification account checks such as expiry or
// lockout. exempt waives checks that the administrator may waive.
type ApprovalHook interface {
	Approve(ctx context.Context, d *Descriptor, exempt bool) Result
}

// CleanupHook releases backend state. force is set when the process is
// tearing down abnormally.
type CleanupHook interface {
	Cleanup(ctx context.Context, d *Descriptor, force bool) Result
}

// SessionBeginHook opens session resources before the privileged command
// runs. Variables written to env are merged into the command environment.
type SessionBeginHook interface {
	BeginSession(ctx context.Context, d *Descriptor, env *Env) Result
}

// SessionEndHook closes session resources after the privileged command exits.
type SessionEndHook interface {
	EndSession(ctx context.Context, d *Descriptor) Result
}

// VerifyRequest is the input to Backend.Verify.
type VerifyRequest struct {
	// Credential is the shared secret for this try. Nil for standalone chains.
	Credential *Credential

	// Prompt is the prompt text after every Setup hook ran.
	Prompt string

	// Prompter is the conversation channel for backends that prompt themselves.
	Prompter Prompter
}

// Descriptor is the registration of one backend in a chain.
//
// Descriptors are driven by a single goroutine and are not safe for
// concurrent use.
type Descriptor struct {
	backend    Backend
	flags      Flags
	lastResult Result
	ran        bool
}

// NewDescriptor registers b with the given configured flags. FlagOnlyMethod
// and FlagNonInteractive are managed by Build and are ignored here.
func NewDescriptor(b Backend, flags Flags) *Descriptor {
	return &Descriptor{
		backend: b,
		flags:   flags &^ (FlagOnlyMethod | FlagNonInteractive),
	}
}

// Name returns the backend's method name.
func (d *Descriptor) Name() string {
	return d.backend.Name()
}

// Backend returns the registered backend.
func (d *Descriptor) Backend() Backend {
	return d.backend
}

// Flags returns the current capability set.
func (d *Descriptor) Flags() Flags {
	return d.flags
}

// Has reports whether every flag in f is set.
func (d *Descriptor) Has(f Flags) bool {
	return d.flags&f == f
}

// Enabled reports whether the backend takes part in the chain.
func (d *Descriptor) Enabled() bool {
	return d.flags&FlagDisabled == 0
}

// Standalone reports whether the backend prompts for itself.
func (d *Descriptor) Standalone() bool {
	return d.Has(FlagStandalone)
}

// NonInteractive reports whether the caller forbids prompting.
func (d *Descriptor) NonInteractive() bool {
	return d.Has(FlagNonInteractive)
}

// LastResult returns the most recent result this backend produced and
// whether any operation has run at all.
func (d *Descriptor) LastResult() (Result, bool) {
	return d.lastResult, d.ran
}

func (d *Descriptor) disable() {
	d.flags |= FlagDisabled
}

func (d *Descriptor) set(f Flags, on bool) {
	if on {
		d.flags |= f
	} else {
		d.flags &^= f
	}
}

func (d *Descriptor) record(r Result) Result {
	d.lastResult = r
	d.ran = true
	return r
}
