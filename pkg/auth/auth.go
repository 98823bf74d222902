package auth

import (
	"errors"
	"strings"
)

// Result is the outcome of a single backend operation or of a whole phase.
type Result int

const (
	// Success means the operation accepted the user.
	Success Result = iota

	// Failure means a wrong credential. It is the only retryable result.
	Failure

	// Error is a configuration or environment fault. It aborts the phase.
	Error

	// Interrupted means the user cancelled credential entry.
	Interrupted

	// NonInteractive means input was required but prompting is disallowed.
	NonInteractive
)

// String returns the lower-case result name used in logs and audit records.
func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Error:
		return "error"
	case Interrupted:
		return "interrupted"
	case NonInteractive:
		return "non_interactive"
	default:
		return "unknown"
	}
}

// severity orders results for session aggregation: Error > Failure > Success.
// Anything that is neither Success nor Failure counts as Error.
func (r Result) severity() int {
	switch r {
	case Success:
		return 0
	case Failure:
		return 1
	default:
		return 2
	}
}

// worst returns the more severe of two results, normalized to
// Success, Failure or Error.
func worst(a, b Result) Result {
	if b.severity() > a.severity() {
		a = b
	}
	switch a.severity() {
	case 0:
		return Success
	case 1:
		return Failure
	default:
		return Error
	}
}

// Flags is the capability set of a Descriptor.
type Flags uint8

const (
	// FlagDisabled removes the backend from every phase.
	FlagDisabled Flags = 1 << iota

	// FlagStandalone marks a backend that prompts for itself and cannot be
	// combined with any other enabled backend.
	FlagStandalone

	// FlagOnlyMethod is set by Build when exactly one backend stays enabled.
	FlagOnlyMethod

	// FlagNonInteractive mirrors the caller's no-prompt mode.
	FlagNonInteractive
)

// String renders the set as a |-separated list, or "none".
func (f Flags) String() string {
	var parts []string
	if f&FlagDisabled != 0 {
		parts = append(parts, "disabled")
	}
	if f&FlagStandalone != 0 {
		parts = append(parts, "standalone")
	}
	if f&FlagOnlyMethod != 0 {
		parts = append(parts, "only_method")
	}
	if f&FlagNonInteractive != 0 {
		parts = append(parts, "non_interactive")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Standard orchestration errors.
var (
	// ErrNoMethods indicates that no authentication method is configured or
	// that every configured method disabled itself during init.
	ErrNoMethods = errors.New("auth: no authentication methods")

	// ErrMixedStandalone indicates a chain that combines a standalone method
	// with shared methods.
	ErrMixedStandalone = errors.New("auth: invalid authentication methods, cannot mix standalone and shared")

	// ErrInitFailed indicates that a backend reported an error during init.
	ErrInitFailed = errors.New("auth: method initialization failed")

	// ErrSetupFailed indicates that a backend reported an error during setup.
	ErrSetupFailed = errors.New("auth: method setup failed")

	// ErrNoEnabledMethods indicates that every method disabled itself
	// during setup.
	ErrNoEnabledMethods = errors.New("auth: no enabled authentication methods")

	// ErrLockLost indicates that the timestamp lock could not be reacquired
	// after the process resumed.
	ErrLockLost = errors.New("auth: unable to reacquire timestamp lock")

	// ErrLockBusy indicates that the timestamp lock could not be taken.
	ErrLockBusy = errors.New("auth: timestamp lock unavailable")

	// ErrPromptInterrupted is returned by a Prompter when the user cancelled
	// input. The engine treats it like a nil credential.
	ErrPromptInterrupted = errors.New("auth: prompt interrupted")

	// ErrNonInteractive indicates that a password was required but
	// prompting is disallowed.
	ErrNonInteractive = errors.New("auth: a password is required")

	// ErrNoPrompter indicates that a shared chain was verified without
	// a Prompter.
	ErrNoPrompter = errors.New("auth: no prompter configured")
)
