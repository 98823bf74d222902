package prompt

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/marmos91/dittoauth/pkg/auth"
)

// MinPasswordLength is the shortest password NewPassword accepts.
const MinPasswordLength = 8

var (
	// ErrPasswordMismatch indicates passwords don't match.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrPasswordTooShort indicates a password below MinPasswordLength.
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// NewPassword asks for a new password twice through p. The caller owns
// the returned credential and must wipe it.
func NewPassword(ctx context.Context, p auth.Prompter, label string) (*auth.Credential, error) {
	pw, err := p.GetSecret(ctx, label+": ", auth.EchoOff)
	if err != nil {
		return nil, err
	}
	if pw == nil {
		return nil, ErrAborted
	}
	if pw.Len() < MinPasswordLength {
		pw.Wipe()
		return nil, ErrPasswordTooShort
	}

	confirm, err := p.GetSecret(ctx, "Confirm "+lowerFirst(label)+": ", auth.EchoOff)
	defer confirm.Wipe()
	if err != nil {
		pw.Wipe()
		return nil, err
	}
	if confirm == nil {
		pw.Wipe()
		return nil, ErrAborted
	}
	if subtle.ConstantTimeCompare(pw.Bytes(), confirm.Bytes()) != 1 {
		pw.Wipe()
		return nil, ErrPasswordMismatch
	}
	return pw, nil
}

func lowerFirst(s string) string {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return s
	}
	return string(s[0]+'a'-'A') + s[1:]
}
