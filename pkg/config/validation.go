package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report yaml names ("auth.max_tries") rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Validate checks the configuration for structural and cross-field errors.
//
// Struct tags cover ranges and enumerations; the remaining checks depend on
// more than one field.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}

	if err := validateKerberos(&cfg.Auth); err != nil {
		return err
	}

	if err := validateDirectory(&cfg.Auth); err != nil {
		return err
	}

	return nil
}

func validateKerberos(cfg *AuthConfig) error {
	if !cfg.uses(MethodKerberos) {
		return nil
	}
	k := cfg.Kerberos
	if k.ServicePrincipal != "" && k.KeytabPath == "" {
		return fmt.Errorf("auth.kerberos.keytab_path is required when service_principal is set")
	}
	if k.MaxClockSkew < 0 {
		return fmt.Errorf("auth.kerberos.max_clock_skew must not be negative")
	}
	return nil
}

func validateDirectory(cfg *AuthConfig) error {
	if !cfg.uses(MethodDirectory) {
		return nil
	}
	d := cfg.Directory
	switch d.Type {
	case DatabaseTypeSQLite:
		if d.SQLite.Path == "" {
			return fmt.Errorf("auth.directory.sqlite.path is required")
		}
	case DatabaseTypePostgres:
		if d.Postgres.Host == "" {
			return fmt.Errorf("auth.directory.postgres.host is required")
		}
		if d.Postgres.Database == "" {
			return fmt.Errorf("auth.directory.postgres.database is required")
		}
		if d.Postgres.User == "" {
			return fmt.Errorf("auth.directory.postgres.user is required")
		}
	}
	return nil
}

// uses reports whether the named method is selected.
func (c *AuthConfig) uses(method string) bool {
	for _, m := range c.Methods {
		if m == method {
			return true
		}
	}
	return false
}
