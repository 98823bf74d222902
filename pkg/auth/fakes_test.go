package auth

import (
	"context"
	"sync"
)

// fakeBackend is a scripted Backend implementing every hook.
// Results are consumed in order; the last one repeats.
type fakeBackend struct {
	name string

	initResults    []Result
	setupResults   []Result
	verifyResults  []Result
	approveResult  Result
	cleanupResult  Result
	beginResult    Result
	endResult      Result
	sessionEnv     map[string]string
	rewritePrompt  string
	promptsItself  bool
	seenSecrets    [][]byte
	seenPrompts    []string
	seenExempt     []bool
	seenForce      []bool
	seenNonInterac []bool

	calls *[]string
}

func newFake(name string, calls *[]string) *fakeBackend {
	return &fakeBackend{name: name, calls: calls}
}

func (f *fakeBackend) log(op string) {
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name+"."+op)
	}
}

func next(results *[]Result, def Result) Result {
	if len(*results) == 0 {
		return def
	}
	r := (*results)[0]
	if len(*results) > 1 {
		*results = (*results)[1:]
	}
	return r
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Init(_ context.Context, d *Descriptor) Result {
	f.log("init")
	f.seenNonInterac = append(f.seenNonInterac, d.NonInteractive())
	return next(&f.initResults, Success)
}

func (f *fakeBackend) Setup(_ context.Context, _ *Descriptor, prompt *string) Result {
	f.log("setup")
	if f.rewritePrompt != "" {
		*prompt = f.rewritePrompt
	}
	return next(&f.setupResults, Success)
}

func (f *fakeBackend) Verify(ctx context.Context, _ *Descriptor, req VerifyRequest) Result {
	f.log("verify")
	f.seenPrompts = append(f.seenPrompts, req.Prompt)
	if f.promptsItself {
		cred, err := req.Prompter.GetSecret(ctx, req.Prompt, EchoOff)
		if err != nil || cred == nil {
			return Interrupted
		}
		defer cred.Wipe()
	}
	if req.Credential != nil {
		f.seenSecrets = append(f.seenSecrets, req.Credential.Bytes())
	}
	return next(&f.verifyResults, Failure)
}

func (f *fakeBackend) Approve(_ context.Context, _ *Descriptor, exempt bool) Result {
	f.log("approve")
	f.seenExempt = append(f.seenExempt, exempt)
	return f.approveResult
}

func (f *fakeBackend) Cleanup(_ context.Context, _ *Descriptor, force bool) Result {
	f.log("cleanup")
	f.seenForce = append(f.seenForce, force)
	return f.cleanupResult
}

func (f *fakeBackend) BeginSession(_ context.Context, _ *Descriptor, env *Env) Result {
	f.log("begin")
	for k, v := range f.sessionEnv {
		env.Set(k, v)
	}
	return f.beginResult
}

func (f *fakeBackend) EndSession(_ context.Context, _ *Descriptor) Result {
	f.log("end")
	return f.endResult
}

// verifyOnly implements Backend without any hook.
type verifyOnly struct {
	name   string
	result Result
}

func (v *verifyOnly) Name() string { return v.name }
func (v *verifyOnly) Verify(context.Context, *Descriptor, VerifyRequest) Result {
	return v.result
}

// fakePrompter hands out scripted answers. A nil answer means no input.
type fakePrompter struct {
	mu       sync.Mutex
	answers  [][]byte
	err      error
	prompts  []string
	issued   []*Credential
	buffers  [][]byte
	hooks    *SuspendHooks
	onPrompt func(p *fakePrompter)
}

func (p *fakePrompter) GetSecret(_ context.Context, prompt string, _ EchoMode) (*Credential, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	hook := p.onPrompt
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	if p.err != nil {
		return nil, p.err
	}
	if len(p.answers) == 0 {
		return nil, nil
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	if a == nil {
		return nil, nil
	}
	buf := append([]byte(nil), a...)
	cred := NewCredential(buf)
	p.issued = append(p.issued, cred)
	p.buffers = append(p.buffers, buf)
	return cred, nil
}

func (p *fakePrompter) SetSuspendHooks(h *SuspendHooks) *SuspendHooks {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.hooks
	p.hooks = h
	return prev
}

func (p *fakePrompter) suspendAndResume() error {
	p.mu.Lock()
	h := p.hooks
	p.mu.Unlock()
	h.Suspend()
	return h.Resume()
}

func answers(secrets ...string) [][]byte {
	out := make([][]byte, len(secrets))
	for i, s := range secrets {
		out[i] = []byte(s)
	}
	return out
}

// fakeLocker counts lock transitions; fail makes Lock report false.
type fakeLocker struct {
	mu      sync.Mutex
	locked  bool
	fail    bool
	locks   int
	unlocks int
}

func (l *fakeLocker) Lock() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return false
	}
	l.locked = true
	l.locks++
	return true
}

func (l *fakeLocker) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = false
	l.unlocks++
}

// recordingAudit collects audit events.
type recordingAudit struct {
	events []VerifyEvent
}

func (r *recordingAudit) RecordVerify(_ context.Context, ev VerifyEvent) {
	r.events = append(r.events, ev)
}
