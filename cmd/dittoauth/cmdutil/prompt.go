package cmdutil

import (
	"io"
	"os"

	"github.com/marmos91/dittoauth/internal/cli/prompt"
	"github.com/marmos91/dittoauth/pkg/auth"
)

// OpenPrompter returns a prompter reading from in when stdin is set and
// from the controlling terminal otherwise. The returned func releases it.
func OpenPrompter(stdin bool, in io.Reader, errOut io.Writer) (auth.Prompter, func(), error) {
	if errOut == nil {
		errOut = os.Stderr
	}
	if stdin {
		if in == nil {
			in = os.Stdin
		}
		return prompt.NewReader(in, errOut), func() {}, nil
	}
	t, err := prompt.NewTerminal()
	if err != nil {
		return nil, nil, err
	}
	return t, func() { _ = t.Close() }, nil
}
