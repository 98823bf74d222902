package kerberos

import (
	"fmt"
	"os"

	"github.com/jcmturner/gokrb5/v8/keytab"

	dconfig "github.com/marmos91/dittoauth/pkg/config"
)

// Environment overrides for the host side of Kerberos. They win over the
// configuration file so a keytab can be rotated without editing it.
const (
	EnvKeytab    = "DITTOAUTH_KERBEROS_KEYTAB"
	EnvPrincipal = "DITTOAUTH_KERBEROS_PRINCIPAL"
	EnvKrb5Conf  = "DITTOAUTH_KERBEROS_KRB5CONF"
)

// hostSettings is where this host's Kerberos material lives.
type hostSettings struct {
	krb5Conf   string
	keytabPath string

	// servicePrincipal is the host principal TGTs are verified against,
	// e.g. host/build01.example.com.
	servicePrincipal string
}

func resolveHost(cfg *dconfig.KerberosConfig) hostSettings {
	return hostSettings{
		krb5Conf:         firstSet(os.Getenv(EnvKrb5Conf), cfg.Krb5Conf, dconfig.DefaultKrb5Conf),
		keytabPath:       firstSet(os.Getenv(EnvKeytab), cfg.KeytabPath),
		servicePrincipal: firstSet(os.Getenv(EnvPrincipal), cfg.ServicePrincipal),
	}
}

// verifiesTGT reports whether both halves of TGT verification are given.
// Exactly one of them is a configuration error.
func (h hostSettings) verifiesTGT() (bool, error) {
	switch {
	case h.keytabPath == "" && h.servicePrincipal == "":
		return false, nil
	case h.keytabPath == "":
		return false, fmt.Errorf("kerberos keytab path not configured (set keytab_path or %s)", EnvKeytab)
	case h.servicePrincipal == "":
		return false, fmt.Errorf("kerberos service principal not configured (set service_principal or %s)", EnvPrincipal)
	}
	return true, nil
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func loadKeytab(path string) (*keytab.Keytab, error) {
	kt, err := keytab.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load keytab %s: %w", path, err)
	}
	return kt, nil
}
