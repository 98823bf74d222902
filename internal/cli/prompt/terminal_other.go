//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package prompt

import (
	"context"
	"errors"

	"github.com/marmos91/dittoauth/pkg/auth"
)

// ErrNoTerminal is returned when no controlling terminal is available.
var ErrNoTerminal = errors.New("terminal prompts are not supported on this platform; use --stdin")

// Terminal is unavailable on this platform.
type Terminal struct{}

// NewTerminal always fails with ErrNoTerminal.
func NewTerminal() (*Terminal, error) {
	return nil, ErrNoTerminal
}

func (t *Terminal) Close() error { return nil }

func (t *Terminal) SetSuspendHooks(h *auth.SuspendHooks) *auth.SuspendHooks { return nil }

func (t *Terminal) GetSecret(context.Context, string, auth.EchoMode) (*auth.Credential, error) {
	return nil, ErrNoTerminal
}
