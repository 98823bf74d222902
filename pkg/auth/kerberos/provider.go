package kerberos

import (
	"errors"
	"fmt"
	"os"
	"time"

	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"

	dconfig "github.com/marmos91/dittoauth/pkg/config"
)

var (
	// ErrNotConfigured means the host has no krb5.conf.
	ErrNotConfigured = errors.New("kerberos: krb5.conf not found")

	// ErrNoRealm means neither the configuration nor krb5.conf names a realm.
	ErrNoRealm = errors.New("kerberos: no realm configured")
)

// Provider holds the loaded krb5.conf, realm and optional host keytab.
type Provider struct {
	krb5Conf         *krb5config.Config
	keytab           *keytab.Keytab
	servicePrincipal string
	realm            string
	maxClockSkew     time.Duration
}

// NewProvider loads krb5.conf and, when both a keytab and a service
// principal are set, the host keytab used for TGT verification. The
// DITTOAUTH_KERBEROS_* environment variables override the file.
func NewProvider(cfg *dconfig.KerberosConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kerberos config is nil")
	}
	host := resolveHost(cfg)

	if _, err := os.Stat(host.krb5Conf); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, host.krb5Conf)
	}
	krbCfg, err := krb5config.Load(host.krb5Conf)
	if err != nil {
		return nil, fmt.Errorf("load krb5.conf %s: %w", host.krb5Conf, err)
	}

	realm := firstSet(cfg.Realm, krbCfg.LibDefaults.DefaultRealm)
	if realm == "" {
		return nil, ErrNoRealm
	}

	p := &Provider{
		krb5Conf:         krbCfg,
		servicePrincipal: host.servicePrincipal,
		realm:            realm,
		maxClockSkew:     cfg.MaxClockSkew,
	}

	verify, err := host.verifiesTGT()
	if err != nil {
		return nil, err
	}
	if verify {
		if p.keytab, err = loadKeytab(host.keytabPath); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Krb5Config returns the loaded Kerberos configuration.
func (p *Provider) Krb5Config() *krb5config.Config {
	return p.krb5Conf
}

// Keytab returns the host keytab, or nil when TGT verification is off.
func (p *Provider) Keytab() *keytab.Keytab {
	return p.keytab
}

// ServicePrincipal returns the configured service principal name.
func (p *Provider) ServicePrincipal() string {
	return p.servicePrincipal
}

// Realm returns the realm users authenticate in.
func (p *Provider) Realm() string {
	return p.realm
}

// MaxClockSkew returns the maximum allowed clock skew.
func (p *Provider) MaxClockSkew() time.Duration {
	return p.maxClockSkew
}

// VerifiesTGT reports whether TGTs are checked against the host keytab.
func (p *Provider) VerifiesTGT() bool {
	return p.keytab != nil
}
