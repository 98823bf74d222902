package auth

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T, nonInteractive bool, descs ...*Descriptor) *Chain {
	t.Helper()
	c, err := Build(context.Background(), descs, nonInteractive)
	require.NoError(t, err)
	return c
}

func newEngine(p Prompter, audit AuditSink, maxTries uint32, warn *bytes.Buffer) *VerifyEngine {
	return NewVerifyEngine(VerifyOptions{
		MaxTries:   maxTries,
		Prompter:   p,
		Audit:      audit,
		User:       "alice",
		WarnOutput: warn,
	})
}

func TestVerify_FailFailSuccess(t *testing.T) {
	var calls []string
	b := newFake("passwd", &calls)
	b.verifyResults = []Result{Failure, Failure, Success}
	chain := buildChain(t, false, NewDescriptor(b, 0))

	p := &fakePrompter{answers: answers("one", "two", "three")}
	audit := &recordingAudit{}
	warn := &bytes.Buffer{}

	out := newEngine(p, audit, 3, warn).Verify(context.Background(), chain, "Password: ")

	assert.Equal(t, Success, out.Result)
	assert.Equal(t, uint32(3), out.State.TriesUsed)
	assert.True(t, out.State.SawBadPassword)
	assert.Equal(t, "passwd", out.Method)
	assert.Len(t, p.prompts, 3)
	assert.Equal(t, 3, countCalls(calls, "passwd.verify"))
	assert.Equal(t, "Sorry, try again.\nSorry, try again.\n", warn.String())

	require.Len(t, audit.events, 1)
	ev := audit.events[0]
	assert.Equal(t, Success, ev.Result)
	assert.Equal(t, uint32(3), ev.Tries)
	assert.True(t, ev.SawBadPassword)
	assert.Equal(t, "alice", ev.User)
	assert.NotEmpty(t, ev.ID)
}

func TestVerify_RetryBound(t *testing.T) {
	for _, n := range []uint32{1, 2, 5} {
		a := newFake("a", nil)
		b := newFake("b", nil)
		chain := buildChain(t, false, NewDescriptor(a, 0), NewDescriptor(b, 0))

		p := &fakePrompter{answers: answers("x", "x", "x", "x", "x", "x")}
		audit := &recordingAudit{}
		out := newEngine(p, audit, n, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")

		assert.Equal(t, Failure, out.Result)
		assert.Equal(t, n, out.State.TriesUsed)
		assert.True(t, out.State.SawBadPassword)
		assert.Len(t, p.prompts, int(n), "one prompt per try")
		require.Len(t, audit.events, 1)
		assert.Equal(t, n, audit.events[0].MaxTries)
	}
}

func TestVerify_ShortCircuitOnFirstSuccess(t *testing.T) {
	var calls []string
	a := newFake("a", &calls)
	b := newFake("b", &calls)
	b.verifyResults = []Result{Success}
	c := newFake("c", &calls)
	chain := buildChain(t, false, NewDescriptor(a, 0), NewDescriptor(b, 0), NewDescriptor(c, 0))
	calls = nil

	p := &fakePrompter{answers: answers("secret")}
	out := newEngine(p, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")

	assert.Equal(t, Success, out.Result)
	assert.Equal(t, "b", out.Method)
	assert.Equal(t, 1, countCalls(calls, "a.verify"))
	assert.Equal(t, 1, countCalls(calls, "b.verify"))
	assert.Zero(t, countCalls(calls, "c.verify"))
	assert.False(t, out.State.SawBadPassword)
}

func TestVerify_CredentialZeroed(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
	}{
		{"Success", []Result{Success}},
		{"Failure", []Result{Failure}},
		{"Error", []Result{Error}},
		{"Interrupted", []Result{Interrupted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFake("passwd", nil)
			b.verifyResults = tt.results
			chain := buildChain(t, false, NewDescriptor(b, 0))

			p := &fakePrompter{answers: answers("hunter2", "hunter3")}
			newEngine(p, nil, 2, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")

			require.NotEmpty(t, p.issued)
			for i, cred := range p.issued {
				assert.True(t, cred.Wiped(), "credential %d released", i)
				assert.Nil(t, cred.Bytes())
				assert.Equal(t, make([]byte, len(p.buffers[i])), p.buffers[i], "buffer %d zeroed", i)
			}
			for _, seen := range b.seenSecrets {
				assert.Equal(t, make([]byte, len(seen)), seen, "backend view of the secret zeroed")
			}
		})
	}
}

func TestVerify_StandaloneInterrupted(t *testing.T) {
	otp := newFake("otp", nil)
	otp.promptsItself = true
	chain := buildChain(t, false, NewDescriptor(otp, FlagStandalone))
	require.True(t, chain.Standalone())

	p := &fakePrompter{answers: [][]byte{nil, []byte("123456")}}
	audit := &recordingAudit{}
	out := newEngine(p, audit, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "Code: ")

	assert.Equal(t, Failure, out.Result)
	assert.True(t, out.Interrupted)
	assert.Equal(t, uint32(1), out.State.TriesUsed)
	assert.False(t, out.State.SawBadPassword)
	assert.Len(t, p.prompts, 1, "no second prompt")
	require.Len(t, audit.events, 1)
	assert.True(t, audit.events[0].Interrupted)
}

func TestVerify_StandaloneGetsNoSharedCredential(t *testing.T) {
	otp := newFake("otp", nil)
	otp.promptsItself = true
	otp.verifyResults = []Result{Success}
	chain := buildChain(t, false, NewDescriptor(otp, FlagStandalone))

	p := &fakePrompter{answers: answers("123456")}
	out := newEngine(p, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "Code: ")

	assert.Equal(t, Success, out.Result)
	assert.Empty(t, otp.seenSecrets)
	assert.Equal(t, []string{"Code: "}, p.prompts)
}

func TestVerify_PromptCancelled(t *testing.T) {
	b := newFake("passwd", nil)
	chain := buildChain(t, false, NewDescriptor(b, 0))

	p := &fakePrompter{answers: answers("wrong"), err: nil}
	p.answers = append(p.answers, nil)
	out := newEngine(p, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")

	assert.Equal(t, Failure, out.Result)
	assert.True(t, out.Interrupted)
	assert.Equal(t, uint32(2), out.State.TriesUsed)
	assert.True(t, out.State.SawBadPassword, "the first full try failed")

	p2 := &fakePrompter{err: ErrPromptInterrupted}
	out = newEngine(p2, nil, 3, &bytes.Buffer{}).Verify(context.Background(), buildChain(t, false, NewDescriptor(newFake("passwd", nil), 0)), "pw: ")
	assert.Equal(t, Failure, out.Result)
	assert.True(t, out.Interrupted)
}

func TestVerify_PromptError(t *testing.T) {
	chain := buildChain(t, false, NewDescriptor(newFake("passwd", nil), 0))
	p := &fakePrompter{err: errors.New("tty gone")}

	out := newEngine(p, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")
	assert.Equal(t, Error, out.Result)
	assert.ErrorContains(t, out.Err, "tty gone")
}

func TestVerify_CancelledContextBeforeTry(t *testing.T) {
	chain := buildChain(t, false, NewDescriptor(newFake("passwd", nil), 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakePrompter{answers: answers("x")}
	audit := &recordingAudit{}
	out := newEngine(p, audit, 3, &bytes.Buffer{}).Verify(ctx, chain, "pw: ")

	assert.Equal(t, Failure, out.Result)
	assert.True(t, out.Interrupted)
	assert.Zero(t, out.State.TriesUsed)
	assert.Empty(t, p.prompts)
	assert.Len(t, audit.events, 1)
}

func TestVerify_NonInteractive(t *testing.T) {
	chain := buildChain(t, true, NewDescriptor(newFake("passwd", nil), 0))
	p := &fakePrompter{answers: answers("x")}

	out := newEngine(p, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")
	assert.Equal(t, NonInteractive, out.Result)
	assert.ErrorIs(t, out.Err, ErrNonInteractive)
	assert.Empty(t, p.prompts, "no prompt at all")
}

func TestVerify_SetupResults(t *testing.T) {
	t.Run("FailureDisablesMethod", func(t *testing.T) {
		var calls []string
		a := newFake("a", &calls)
		a.setupResults = []Result{Failure}
		b := newFake("b", &calls)
		b.verifyResults = []Result{Success}
		chain := buildChain(t, false, NewDescriptor(a, 0), NewDescriptor(b, 0))

		out := newEngine(&fakePrompter{answers: answers("x")}, nil, 3, &bytes.Buffer{}).
			Verify(context.Background(), chain, "pw: ")
		assert.Equal(t, Success, out.Result)
		assert.Zero(t, countCalls(calls, "a.verify"))
		assert.Equal(t, []string{"b"}, chain.EnabledNames())
	})

	t.Run("AllDisabled", func(t *testing.T) {
		a := newFake("a", nil)
		a.setupResults = []Result{Failure}
		chain := buildChain(t, false, NewDescriptor(a, 0))
		p := &fakePrompter{answers: answers("x")}

		out := newEngine(p, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")
		assert.Equal(t, Error, out.Result)
		assert.ErrorIs(t, out.Err, ErrNoEnabledMethods)
		assert.Empty(t, p.prompts)
	})

	t.Run("Error", func(t *testing.T) {
		a := newFake("a", nil)
		a.setupResults = []Result{Error}
		chain := buildChain(t, false, NewDescriptor(a, 0))

		out := newEngine(&fakePrompter{}, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")
		assert.Equal(t, Error, out.Result)
		assert.ErrorIs(t, out.Err, ErrSetupFailed)
	})

	t.Run("NonInteractive", func(t *testing.T) {
		a := newFake("a", nil)
		a.setupResults = []Result{NonInteractive}
		chain := buildChain(t, false, NewDescriptor(a, 0))

		out := newEngine(&fakePrompter{}, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")
		assert.Equal(t, NonInteractive, out.Result)
	})

	t.Run("PromptRewritten", func(t *testing.T) {
		a := newFake("kerberos", nil)
		a.rewritePrompt = "Password for alice@EXAMPLE.COM: "
		a.verifyResults = []Result{Success}
		chain := buildChain(t, false, NewDescriptor(a, 0))
		p := &fakePrompter{answers: answers("x")}

		newEngine(p, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")
		assert.Equal(t, []string{"Password for alice@EXAMPLE.COM: "}, p.prompts)
		assert.Equal(t, []string{"Password for alice@EXAMPLE.COM: "}, a.seenPrompts)
	})
}

func TestVerify_BackendErrorStopsRetrying(t *testing.T) {
	var calls []string
	a := newFake("a", &calls)
	a.verifyResults = []Result{Error}
	b := newFake("b", &calls)
	chain := buildChain(t, false, NewDescriptor(a, 0), NewDescriptor(b, 0))
	p := &fakePrompter{answers: answers("x", "y")}

	out := newEngine(p, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")
	assert.Equal(t, Error, out.Result)
	assert.Equal(t, "a", out.Method)
	assert.Error(t, out.Err)
	assert.Len(t, p.prompts, 1)
	assert.Zero(t, countCalls(calls, "b.verify"))
}

func TestVerify_EmptyChain(t *testing.T) {
	p := &fakePrompter{}
	audit := &recordingAudit{}
	out := newEngine(p, audit, 3, &bytes.Buffer{}).Verify(context.Background(), &Chain{}, "pw: ")

	assert.Equal(t, Error, out.Result)
	assert.ErrorIs(t, out.Err, ErrNoMethods)
	assert.Empty(t, p.prompts)
	assert.Len(t, audit.events, 1)
}

func TestVerify_NoPrompter(t *testing.T) {
	chain := buildChain(t, false, NewDescriptor(newFake("passwd", nil), 0))
	out := newEngine(nil, nil, 3, &bytes.Buffer{}).Verify(context.Background(), chain, "pw: ")
	assert.Equal(t, Error, out.Result)
	assert.ErrorIs(t, out.Err, ErrNoPrompter)
}

func TestVerify_SuspendReleasesLock(t *testing.T) {
	locker := &fakeLocker{}
	lock := NewSuspendableLock(locker)
	require.NoError(t, lock.Acquire())

	b := newFake("passwd", nil)
	b.verifyResults = []Result{Success}
	chain := buildChain(t, false, NewDescriptor(b, 0))

	var heldDuringStop bool
	p := &fakePrompter{answers: answers("x")}
	p.onPrompt = func(p *fakePrompter) {
		p.hooks.Suspend()
		heldDuringStop = lock.Held()
		require.NoError(t, p.hooks.Resume())
	}

	prev := &SuspendHooks{}
	p.hooks = prev
	out := NewVerifyEngine(VerifyOptions{Prompter: p, Lock: lock, WarnOutput: &bytes.Buffer{}}).
		Verify(context.Background(), chain, "pw: ")

	assert.Equal(t, Success, out.Result)
	assert.False(t, heldDuringStop)
	assert.True(t, lock.Held())
	assert.Equal(t, 2, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
	assert.Same(t, prev, p.hooks, "previous hooks restored")
}

func TestVerify_LockLostOnResume(t *testing.T) {
	locker := &fakeLocker{}
	lock := NewSuspendableLock(locker)
	require.NoError(t, lock.Acquire())

	b := newFake("passwd", nil)
	b.verifyResults = []Result{Success}
	chain := buildChain(t, false, NewDescriptor(b, 0))

	p := &fakePrompter{answers: answers("x")}
	p.onPrompt = func(p *fakePrompter) {
		locker.fail = true
		assert.ErrorIs(t, p.suspendAndResume(), ErrLockLost)
	}

	audit := &recordingAudit{}
	out := NewVerifyEngine(VerifyOptions{Prompter: p, Lock: lock, Audit: audit, WarnOutput: &bytes.Buffer{}}).
		Verify(context.Background(), chain, "pw: ")

	assert.Equal(t, Error, out.Result)
	assert.ErrorIs(t, out.Err, ErrLockLost)
	require.Len(t, p.issued, 1)
	assert.True(t, p.issued[0].Wiped())
	require.Len(t, audit.events, 1)
	assert.Equal(t, Error, audit.events[0].Result)
}

func TestVerify_CustomWarn(t *testing.T) {
	b := newFake("passwd", nil)
	chain := buildChain(t, false, NewDescriptor(b, 0))

	warned := 0
	e := NewVerifyEngine(VerifyOptions{
		MaxTries: 2,
		Prompter: &fakePrompter{answers: answers("a", "b")},
		Warn:     func(context.Context) { warned++ },
	})
	out := e.Verify(context.Background(), chain, "pw: ")
	assert.Equal(t, Failure, out.Result)
	assert.Equal(t, 1, warned, "warned before the second try only")
}

func TestNewVerifyEngineDefaults(t *testing.T) {
	e := NewVerifyEngine(VerifyOptions{})
	assert.Equal(t, uint32(DefaultMaxTries), e.opts.MaxTries)
	assert.Equal(t, DefaultBadPasswordMessage, e.opts.BadPasswordMessage)
	assert.NotNil(t, e.opts.WarnOutput)
}

func countCalls(calls []string, call string) int {
	n := 0
	for _, c := range calls {
		if c == call {
			n++
		}
	}
	return n
}
