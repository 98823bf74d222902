package kerberos

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jcmturner/gokrb5/v8/iana/nametype"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dconfig "github.com/marmos91/dittoauth/pkg/config"
)

const (
	testSPN   = "host/build01.example.com"
	testRealm = "EXAMPLE.COM"
)

// newTestKeytab returns a keytab holding the host key derived from password.
func newTestKeytab(t *testing.T, password string) *keytab.Keytab {
	t.Helper()
	kt := keytab.New()
	require.NoError(t, kt.AddEntry(testSPN, testRealm, password, time.Now(), 1, 17))
	return kt
}

func createTestKeytab(t *testing.T, dir string) string {
	t.Helper()
	data, err := newTestKeytab(t, "host-secret").Marshal()
	require.NoError(t, err)

	path := filepath.Join(dir, "test.keytab")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestResolveHost(t *testing.T) {
	cfg := &dconfig.KerberosConfig{
		Krb5Conf:         "/srv/krb5.conf",
		KeytabPath:       "/srv/host.keytab",
		ServicePrincipal: "host/config.example.com",
	}

	t.Run("FileValues", func(t *testing.T) {
		t.Setenv(EnvKrb5Conf, "")
		t.Setenv(EnvKeytab, "")
		t.Setenv(EnvPrincipal, "")

		h := resolveHost(cfg)
		assert.Equal(t, "/srv/krb5.conf", h.krb5Conf)
		assert.Equal(t, "/srv/host.keytab", h.keytabPath)
		assert.Equal(t, "host/config.example.com", h.servicePrincipal)
	})

	t.Run("EnvironmentWins", func(t *testing.T) {
		t.Setenv(EnvKrb5Conf, "/env/krb5.conf")
		t.Setenv(EnvKeytab, "/env/host.keytab")
		t.Setenv(EnvPrincipal, "host/env.example.com")

		h := resolveHost(cfg)
		assert.Equal(t, "/env/krb5.conf", h.krb5Conf)
		assert.Equal(t, "/env/host.keytab", h.keytabPath)
		assert.Equal(t, "host/env.example.com", h.servicePrincipal)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv(EnvKrb5Conf, "")
		t.Setenv(EnvKeytab, "")
		t.Setenv(EnvPrincipal, "")

		h := resolveHost(&dconfig.KerberosConfig{})
		assert.Equal(t, dconfig.DefaultKrb5Conf, h.krb5Conf)
		assert.Empty(t, h.keytabPath)
		assert.Empty(t, h.servicePrincipal)
	})
}

func TestVerifiesTGT(t *testing.T) {
	tests := []struct {
		name    string
		host    hostSettings
		want    bool
		wantErr string
	}{
		{name: "Neither", host: hostSettings{}},
		{name: "Both", host: hostSettings{keytabPath: "/k", servicePrincipal: testSPN}, want: true},
		{name: "KeytabOnly", host: hostSettings{keytabPath: "/k"}, wantErr: EnvPrincipal},
		{name: "PrincipalOnly", host: hostSettings{servicePrincipal: testSPN}, wantErr: EnvKeytab},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.host.verifiesTGT()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadKeytab(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		kt, err := loadKeytab(createTestKeytab(t, t.TempDir()))
		require.NoError(t, err)
		_, _, err = kt.GetEncryptionKey(types.NewPrincipalName(nametype.KRB_NT_SRV_INST, testSPN), testRealm, 1, 17)
		assert.NoError(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := loadKeytab(filepath.Join(t.TempDir(), "none.keytab"))
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.keytab")
		require.NoError(t, os.WriteFile(path, []byte("not a keytab"), 0o600))
		_, err := loadKeytab(path)
		assert.Error(t, err)
	})
}
