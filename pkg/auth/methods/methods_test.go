package methods

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/auth/otp"
	"github.com/marmos91/dittoauth/pkg/config"
)

func names(descs []*auth.Descriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Name()
	}
	return out
}

func TestBuildOrder(t *testing.T) {
	tests := []struct {
		name    string
		methods []string
		want    []string
	}{
		{"single", []string{"passwd"}, []string{"passwd"}},
		{"keeps shared order", []string{"kerberos", "passwd", "directory"}, []string{"kerberos", "passwd", "directory"}},
		{"standalone first", []string{"passwd", "otp", "kerberos"}, []string{"otp", "passwd", "kerberos"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descs, err := Build(&config.AuthConfig{Methods: tt.methods}, "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(descs))
		})
	}
}

func TestBuildFlags(t *testing.T) {
	descs, err := Build(&config.AuthConfig{Methods: []string{"passwd", "otp"}}, "alice")
	require.NoError(t, err)
	require.Len(t, descs, 2)

	assert.True(t, descs[0].Standalone())
	assert.False(t, descs[1].Standalone())
	assert.Equal(t, auth.Flags(0), descs[1].Flags())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(&config.AuthConfig{Methods: []string{"passwd", "pam"}}, "alice")
	assert.ErrorContains(t, err, "pam")

	_, err = Build(&config.AuthConfig{Methods: []string{"passwd", "passwd"}}, "alice")
	assert.ErrorContains(t, err, "twice")

	descs, err := Build(&config.AuthConfig{}, "alice")
	require.NoError(t, err)
	assert.Empty(t, descs)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"directory", "kerberos", "otp", "passwd"}, Names())

	m, ok := Lookup("otp")
	require.True(t, ok)
	assert.True(t, m.Standalone)

	_, ok = Lookup("smartcard")
	assert.False(t, ok)
}

// A mixed standalone and shared configuration is rejected by the chain,
// unless the standalone method disables itself during init.
func TestBuiltChainExclusivity(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.GetDefaultConfig().Auth
	cfg.Methods = []string{"otp", "passwd"}
	cfg.OTP.SecretsFile = filepath.Join(dir, "otp.json")
	cfg.Passwd.File = filepath.Join(dir, "passwd")

	// Nobody enrolled, no password file: every method disables itself.
	descs, err := Build(&cfg, "alice")
	require.NoError(t, err)
	_, err = auth.Build(ctx, descs, false)
	assert.ErrorIs(t, err, auth.ErrNoMethods)

	_, err = otp.Enroll(cfg.OTP, "alice")
	require.NoError(t, err)

	descs, err = Build(&cfg, "alice")
	require.NoError(t, err)
	chain, err := auth.Build(ctx, descs, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"otp"}, chain.EnabledNames())
	assert.True(t, chain.Standalone())
}
