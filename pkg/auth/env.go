package auth

import "strings"

// Env is an ordered KEY=VALUE environment.
type Env struct {
	vars []string
}

// NewEnv copies environ, typically os.Environ(). Later duplicates of a
// name win.
func NewEnv(environ []string) *Env {
	e := &Env{}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		e.Set(k, v)
	}
	return e
}

func (e *Env) index(key string) int {
	prefix := key + "="
	for i, kv := range e.vars {
		if strings.HasPrefix(kv, prefix) {
			return i
		}
	}
	return -1
}

// Get returns the value of key.
func (e *Env) Get(key string) (string, bool) {
	if i := e.index(key); i >= 0 {
		return e.vars[i][len(key)+1:], true
	}
	return "", false
}

// Set adds or replaces key, keeping its original position when replacing.
func (e *Env) Set(key, value string) {
	kv := key + "=" + value
	if i := e.index(key); i >= 0 {
		e.vars[i] = kv
		return
	}
	e.vars = append(e.vars, kv)
}

// Unset removes key.
func (e *Env) Unset(key string) {
	if i := e.index(key); i >= 0 {
		e.vars = append(e.vars[:i], e.vars[i+1:]...)
	}
}

// Len returns the number of variables.
func (e *Env) Len() int {
	return len(e.vars)
}

// Environ returns a copy suitable for exec.Cmd.Env.
func (e *Env) Environ() []string {
	return append([]string(nil), e.vars...)
}

// Merge applies every variable of other to e; the last writer wins.
func (e *Env) Merge(other *Env) {
	if other == nil {
		return
	}
	for _, kv := range other.vars {
		k, v, _ := strings.Cut(kv, "=")
		e.Set(k, v)
	}
}
