package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredential(t *testing.T) {
	buf := []byte("hunter2")
	c := NewCredential(buf)
	assert.Equal(t, 7, c.Len())
	assert.Equal(t, "hunter2", c.String())
	assert.False(t, c.Wiped())

	c.Wipe()
	assert.True(t, c.Wiped())
	assert.Nil(t, c.Bytes())
	assert.Zero(t, c.Len())
	assert.Equal(t, make([]byte, 7), buf, "original storage zeroed")

	assert.NotPanics(t, c.Wipe)

	var nilCred *Credential
	assert.NotPanics(t, nilCred.Wipe)
	assert.True(t, nilCred.Wiped())
	assert.Nil(t, nilCred.Bytes())
}

func TestEnv(t *testing.T) {
	e := NewEnv([]string{"PATH=/bin", "HOME=/root", "bogus", "=x", "PATH=/usr/bin", "EMPTY="})

	assert.Equal(t, []string{"PATH=/usr/bin", "HOME=/root", "EMPTY="}, e.Environ())

	v, ok := e.Get("EMPTY")
	assert.True(t, ok)
	assert.Empty(t, v)
	_, ok = e.Get("PAT")
	assert.False(t, ok, "prefix of a name is not a match")

	e.Set("HOME", "/home/alice")
	e.Unset("PATH")
	e.Unset("MISSING")
	assert.Equal(t, []string{"HOME=/home/alice", "EMPTY="}, e.Environ())
	assert.Equal(t, 2, e.Len())

	other := NewEnv([]string{"HOME=/home/bob", "KRB5PRINCIPAL=alice@EXAMPLE.COM"})
	e.Merge(other)
	e.Merge(nil)
	assert.Equal(t, []string{"HOME=/home/bob", "EMPTY=", "KRB5PRINCIPAL=alice@EXAMPLE.COM"}, e.Environ())

	out := e.Environ()
	out[0] = "MUTATED=1"
	v, _ = e.Get("HOME")
	assert.Equal(t, "/home/bob", v, "Environ returns a copy")
}

func TestExpandPrompt(t *testing.T) {
	vars := PromptVars{User: "alice", TargetUser: "root", Host: "build01.example.com", FQDN: "build01.example.com"}

	tests := []struct {
		tmpl string
		want string
	}{
		{"Password: ", "Password: "},
		{DefaultPrompt, "[dittoauth] password for alice: "},
		{"%u as %U on %h (%H)", "alice as root on build01 (build01.example.com)"},
		{"100%% sure", "100% sure"},
		{"%x stays", "%x stays"},
		{"trailing %", "trailing %"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPrompt(tt.tmpl, vars), tt.tmpl)
	}

	assert.Equal(t, "db", ExpandPrompt("%H", PromptVars{Host: "db"}), "FQDN falls back to host")
}

func TestIdentityExempt(t *testing.T) {
	id := &Identity{User: "alice", Groups: []string{"staff", "wheel"}}

	assert.True(t, id.Exempt([]string{"alice"}, nil))
	assert.True(t, id.Exempt(nil, []string{"wheel"}))
	assert.False(t, id.Exempt([]string{"bob"}, []string{"admin"}))

	var none *Identity
	assert.False(t, none.Exempt([]string{"alice"}, nil))

	pv := (&Identity{User: "alice", TargetUser: "root", Host: "h", FQDN: "h.example"}).PromptVars()
	assert.Equal(t, PromptVars{User: "alice", TargetUser: "root", Host: "h", FQDN: "h.example"}, pv)
}
