// Package prompt reads secrets and confirmations for the dittoauth CLI.
//
// Terminal and Reader implement auth.Prompter. Confirmations for the
// administrative commands go through promptui.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/marmos91/dittoauth/pkg/auth"
)

// ErrAborted is returned when a confirmation is cancelled with ^C.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err means the user gave up on a prompt rather
// than answering it.
func IsAborted(err error) bool {
	for _, target := range []error{ErrAborted, auth.ErrPromptInterrupted, promptui.ErrInterrupt, promptui.ErrAbort} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ConfirmWithForce asks label as a yes/no question defaulting to no. force
// answers yes without asking, for --yes flags and scripts.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return confirm(promptui.Prompt{
		Label:     label + " [y/N]",
		IsConfirm: true,
	})
}

func confirm(p promptui.Prompt) (bool, error) {
	answer, err := p.Run()
	switch {
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	case errors.Is(err, promptui.ErrAbort):
		// promptui reports any answer other than y as ErrAbort
		return false, nil
	case err != nil:
		return false, fmt.Errorf("confirm: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
