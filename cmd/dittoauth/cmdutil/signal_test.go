//go:build unix

package cmdutil

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoauth/pkg/auth"
)

// waitingPrompter blocks every prompt until its context ends.
type waitingPrompter struct {
	calls int
}

func (p *waitingPrompter) GetSecret(ctx context.Context, _ string, _ auth.EchoMode) (*auth.Credential, error) {
	p.calls++
	<-ctx.Done()
	return nil, auth.ErrPromptInterrupted
}

func (p *waitingPrompter) SetSuspendHooks(*auth.SuspendHooks) *auth.SuspendHooks { return nil }

func waitingAuthenticator(t *testing.T, f *fixture, p auth.Prompter) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator(context.Background(), f.rt, AuthOptions{Identity: f.id, Err: f.stderr, Prompter: p})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background(), false) })
	return a
}

func TestAuthenticateInterruptible(t *testing.T) {
	for _, sig := range []syscall.Signal{syscall.SIGINT, syscall.SIGQUIT} {
		t.Run(sig.String(), func(t *testing.T) {
			f := newFixture(t, time.Time{})
			p := &waitingPrompter{}
			a := waitingAuthenticator(t, f, p)

			guard := make(chan os.Signal, 1)
			signal.Notify(guard, sig)
			defer signal.Stop(guard)

			done := make(chan error, 1)
			go func() { done <- a.AuthenticateInterruptible(context.Background()) }()

			tick := time.NewTicker(20 * time.Millisecond)
			defer tick.Stop()
			deadline := time.After(5 * time.Second)
			for {
				select {
				case err := <-done:
					assert.ErrorIs(t, err, ErrAuthFailed)
					assert.Equal(t, 1, p.calls, "an interrupted prompt is not retried")
					assert.NotContains(t, f.stderr.String(), "incorrect password")
					assert.False(t, a.Cached)
					return
				case <-tick.C:
					require.NoError(t, syscall.Kill(os.Getpid(), sig))
				case <-deadline:
					t.Fatalf("authentication not interrupted by %v", sig)
				}
			}
		})
	}

	t.Run("CancelledBeforePrompt", func(t *testing.T) {
		f := newFixture(t, time.Time{})
		p := &waitingPrompter{}
		a := waitingAuthenticator(t, f, p)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, a.AuthenticateInterruptible(ctx), ErrAuthFailed)
		assert.Zero(t, p.calls)
	})
}
