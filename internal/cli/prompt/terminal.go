//go:build linux || darwin || freebsd || netbsd || openbsd

package prompt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/manifoldco/promptui"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/pkg/auth"
)

const (
	pollTimeoutMs = 100
	maxSecretLen  = 4096
)

// ErrNoTerminal is returned when no controlling terminal is available.
var ErrNoTerminal = errors.New("no terminal available; use --stdin")

// echoControl turns terminal echo off and returns a function restoring it.
type echoControl func(fd int) (restore func(), err error)

// Terminal reads secrets from the controlling terminal.
//
// Reading polls the descriptor so that a cancelled context, SIGINT or SIGQUIT
// ends the prompt without a stray reader. SIGTSTP restores echo, runs the
// installed suspend hooks around the stop and re-prompts after SIGCONT.
type Terminal struct {
	in      *os.File
	out     io.Writer
	ownsIn  bool
	noEcho  echoControl
	signals bool

	mu    sync.Mutex
	hooks *auth.SuspendHooks
}

var _ auth.Prompter = (*Terminal)(nil)

// NewTerminal opens /dev/tty, falling back to stdin and stderr when stdin
// is a terminal.
func NewTerminal() (*Terminal, error) {
	if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		return &Terminal{in: tty, out: tty, ownsIn: true, noEcho: disableEcho, signals: true}, nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return &Terminal{in: os.Stdin, out: os.Stderr, noEcho: disableEcho, signals: true}, nil
	}
	return nil, ErrNoTerminal
}

// Close releases /dev/tty when it was opened by NewTerminal.
func (t *Terminal) Close() error {
	if t.ownsIn {
		return t.in.Close()
	}
	return nil
}

// SetSuspendHooks implements auth.Prompter.
func (t *Terminal) SetSuspendHooks(h *auth.SuspendHooks) *auth.SuspendHooks {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.hooks
	t.hooks = h
	return prev
}

func (t *Terminal) currentHooks() *auth.SuspendHooks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hooks
}

// GetSecret implements auth.Prompter. EchoMasked is served by promptui
// and therefore cannot be cancelled through ctx.
func (t *Terminal) GetSecret(ctx context.Context, prompt string, echo auth.EchoMode) (*auth.Credential, error) {
	if echo == auth.EchoMasked {
		return t.masked(prompt)
	}

	var (
		intr chan os.Signal
		tstp chan os.Signal
	)
	if t.signals {
		intr = make(chan os.Signal, 1)
		tstp = make(chan os.Signal, 1)
		signal.Notify(intr, unix.SIGINT, unix.SIGQUIT)
		signal.Notify(tstp, unix.SIGTSTP)
		defer signal.Stop(intr)
		defer signal.Stop(tstp)
	}

	fd := int(t.in.Fd())
	restore, err := t.prepare(fd, prompt, echo)
	if err != nil {
		return nil, err
	}
	defer func() { restore() }()

	var buf []byte
	defer func() { clear(buf) }()

	chunk := make([]byte, 256)
	defer clear(chunk)

	for {
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(t.out)
			return nil, auth.ErrPromptInterrupted
		case <-intr:
			_, _ = fmt.Fprintln(t.out)
			return nil, auth.ErrPromptInterrupted
		case <-tstp:
			restore()
			if err := t.suspend(tstp); err != nil {
				restore = func() {}
				return nil, err
			}
			if restore, err = t.prepare(fd, prompt, echo); err != nil {
				restore = func() {}
				return nil, err
			}
			continue
		default:
		}

		ready, err := pollReadable(fd)
		if err != nil {
			return nil, fmt.Errorf("poll terminal: %w", err)
		}
		if !ready {
			continue
		}

		n, err := t.in.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			clear(chunk[:n])
		}
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			if echo == auth.EchoOff {
				_, _ = fmt.Fprintln(t.out)
			}
			return auth.NewCredential(bytes.Clone(bytes.TrimSuffix(buf[:i], []byte("\r")))), nil
		}
		if len(buf) > maxSecretLen {
			return nil, errors.New("input too long")
		}
		if err == io.EOF || (n == 0 && err == nil) {
			_, _ = fmt.Fprintln(t.out)
			if len(buf) == 0 {
				return nil, nil
			}
			return auth.NewCredential(bytes.Clone(buf)), nil
		}
		if err != nil {
			return nil, fmt.Errorf("read terminal: %w", err)
		}
	}
}

func (t *Terminal) prepare(fd int, prompt string, echo auth.EchoMode) (func(), error) {
	restore := func() {}
	if echo == auth.EchoOff && t.noEcho != nil {
		r, err := t.noEcho(fd)
		if err != nil {
			return nil, fmt.Errorf("disable echo: %w", err)
		}
		restore = r
	}
	if _, err := io.WriteString(t.out, prompt); err != nil {
		restore()
		return nil, fmt.Errorf("write prompt: %w", err)
	}
	return restore, nil
}

// suspend stops the process with the default SIGTSTP action, running the
// hooks on either side of the stop.
func (t *Terminal) suspend(tstp chan os.Signal) error {
	hooks := t.currentHooks()
	_, _ = fmt.Fprintln(t.out)
	hooks.Suspend()

	signal.Reset(unix.SIGTSTP)
	if err := unix.Kill(unix.Getpid(), unix.SIGTSTP); err != nil {
		logger.Warn("unable to stop for SIGTSTP", logger.Err(err))
	}
	signal.Notify(tstp, unix.SIGTSTP)

	return hooks.Resume()
}

func (t *Terminal) masked(prompt string) (*auth.Credential, error) {
	p := promptui.Prompt{
		Label:  prompt,
		Mask:   '*',
		Stdin:  io.NopCloser(t.in),
		Stdout: nopWriteCloser{t.out},
	}
	s, err := p.Run()
	if err != nil {
		if IsAborted(err) || errors.Is(err, io.EOF) {
			return nil, auth.ErrPromptInterrupted
		}
		return nil, err
	}
	return auth.NewCredential([]byte(s)), nil
}

func pollReadable(fd int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, pollTimeoutMs)
	if errors.Is(err, unix.EINTR) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP) != 0, nil
}

// disableEcho clears ECHO while keeping canonical mode and signal
// generation, so ^C and ^Z still reach the process.
func disableEcho(fd int) (func(), error) {
	old, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, err
	}
	noEcho := *old
	noEcho.Lflag &^= unix.ECHO
	noEcho.Lflag |= unix.ICANON | unix.ISIG
	noEcho.Iflag |= unix.ICRNL
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &noEcho); err != nil {
		return nil, err
	}
	return func() {
		_ = unix.IoctlSetTermios(fd, ioctlSetTermios, old)
	}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
