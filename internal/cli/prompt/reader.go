package prompt

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/dittoauth/pkg/auth"
)

// Reader answers prompts with lines read from an input stream, for
// --stdin and scripted use. Prompts are written to out when it is non-nil.
// Suspend hooks are stored but never fired.
type Reader struct {
	r   *bufio.Reader
	out io.Writer

	mu    sync.Mutex
	hooks *auth.SuspendHooks
}

var _ auth.Prompter = (*Reader)(nil)

// NewReader returns a prompter reading from r.
func NewReader(r io.Reader, out io.Writer) *Reader {
	return &Reader{r: bufio.NewReader(r), out: out}
}

// SetSuspendHooks implements auth.Prompter.
func (p *Reader) SetSuspendHooks(h *auth.SuspendHooks) *auth.SuspendHooks {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.hooks
	p.hooks = h
	return prev
}

// GetSecret implements auth.Prompter. End of input yields (nil, nil).
func (p *Reader) GetSecret(ctx context.Context, prompt string, _ auth.EchoMode) (*auth.Credential, error) {
	if ctx.Err() != nil {
		return nil, auth.ErrPromptInterrupted
	}
	if p.out != nil {
		if _, err := io.WriteString(p.out, prompt); err != nil {
			return nil, fmt.Errorf("write prompt: %w", err)
		}
	}

	line, err := p.r.ReadBytes('\n')
	defer clear(line)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(line) == 0 {
		return nil, nil
	}

	secret := bytes.TrimSuffix(bytes.TrimSuffix(line, []byte("\n")), []byte("\r"))
	return auth.NewCredential(bytes.Clone(secret)), nil
}
