package auth

import "context"

// EchoMode controls how typed input is displayed.
type EchoMode int

const (
	// EchoOff hides input entirely.
	EchoOff EchoMode = iota

	// EchoOn shows input as typed.
	EchoOn

	// EchoMasked shows one mask character per typed character.
	EchoMasked
)

// SuspendHooks are invoked by a Prompter around a job-control stop that
// arrives while it is blocked waiting for input.
type SuspendHooks struct {
	// OnSuspend runs before the process stops.
	OnSuspend func()

	// OnResume runs after the process continues and before prompting
	// resumes. A non-nil error means the caller can no longer proceed.
	OnResume func() error
}

// Suspend calls OnSuspend if set.
func (h *SuspendHooks) Suspend() {
	if h != nil && h.OnSuspend != nil {
		h.OnSuspend()
	}
}

// Resume calls OnResume if set.
func (h *SuspendHooks) Resume() error {
	if h != nil && h.OnResume != nil {
		return h.OnResume()
	}
	return nil
}

// Prompter is the conversation channel used to obtain secrets.
//
// GetSecret blocks until the user answers or ctx is cancelled. No input
// (cancellation, EOF, interrupt) is reported as (nil, nil) or
// ErrPromptInterrupted. Any other error is fatal.
type Prompter interface {
	GetSecret(ctx context.Context, prompt string, echo EchoMode) (*Credential, error)

	// SetSuspendHooks installs h and returns the previously installed hooks
	// so they can be restored.
	SetSuspendHooks(h *SuspendHooks) *SuspendHooks
}
