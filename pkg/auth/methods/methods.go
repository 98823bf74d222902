// Package methods turns the configured method list into chain descriptors.
package methods

import (
	"fmt"
	"sort"

	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/auth/directory"
	"github.com/marmos91/dittoauth/pkg/auth/kerberos"
	"github.com/marmos91/dittoauth/pkg/auth/otp"
	"github.com/marmos91/dittoauth/pkg/auth/passwd"
	"github.com/marmos91/dittoauth/pkg/config"
)

// Factory constructs a backend for one user.
type Factory func(cfg *config.AuthConfig, user string) auth.Backend

// Method describes a registered authentication method.
type Method struct {
	Name       string
	Standalone bool
	New        Factory
}

var registry = map[string]Method{
	passwd.Name: {
		Name: passwd.Name,
		New: func(cfg *config.AuthConfig, user string) auth.Backend {
			return passwd.New(cfg.Passwd, user)
		},
	},
	kerberos.Name: {
		Name: kerberos.Name,
		New: func(cfg *config.AuthConfig, user string) auth.Backend {
			return kerberos.New(cfg.Kerberos, user)
		},
	},
	directory.Name: {
		Name: directory.Name,
		New: func(cfg *config.AuthConfig, user string) auth.Backend {
			return directory.New(cfg.Directory, user)
		},
	},
	otp.Name: {
		Name:       otp.Name,
		Standalone: true,
		New: func(cfg *config.AuthConfig, user string) auth.Backend {
			return otp.New(cfg.OTP, user)
		},
	},
}

// Lookup returns the registered method called name.
func Lookup(name string) (Method, bool) {
	m, ok := registry[name]
	return m, ok
}

// Names returns every registered method name in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs descriptors for the configured methods.
//
// Standalone methods come first, then shared methods; each group keeps the
// configured order. An unknown or repeated method is an error.
func Build(cfg *config.AuthConfig, user string) ([]*auth.Descriptor, error) {
	var standalone, shared []*auth.Descriptor
	seen := make(map[string]bool, len(cfg.Methods))

	for _, name := range cfg.Methods {
		m, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown authentication method %q (available: %v)", name, Names())
		}
		if seen[name] {
			return nil, fmt.Errorf("authentication method %q listed twice", name)
		}
		seen[name] = true

		if m.Standalone {
			standalone = append(standalone, auth.NewDescriptor(m.New(cfg, user), auth.FlagStandalone))
		} else {
			shared = append(shared, auth.NewDescriptor(m.New(cfg, user), 0))
		}
	}

	return append(standalone, shared...), nil
}
