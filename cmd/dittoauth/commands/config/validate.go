package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the dittoauth configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  dittoauth config validate

  # Validate specific config file
  dittoauth config validate --config /etc/dittoauth/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}
	displayPath, _ := config.Locate(configPath)

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := Warnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	timeout := cfg.Timestamp.Timeout.String()
	if cfg.Timestamp.Timeout < 0 {
		timeout = "disabled"
	}
	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Methods:         %s\n", strings.Join(cfg.Auth.Methods, ", "))
	_, _ = fmt.Fprintf(out, "  Max tries:       %d\n", cfg.Auth.MaxTries)
	_, _ = fmt.Fprintf(out, "  Timestamp:       %s\n", timeout)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}

// Warnings reports settings that load fine but will not work at runtime.
func Warnings(cfg *config.Config) []string {
	var warnings []string
	uses := func(m string) bool { return slices.Contains(cfg.Auth.Methods, m) }

	if uses(config.MethodPasswd) {
		if _, err := os.Stat(cfg.Auth.Passwd.File); err != nil {
			warnings = append(warnings, fmt.Sprintf("password file %s is not readable", cfg.Auth.Passwd.File))
		}
	}
	if uses(config.MethodKerberos) {
		if _, err := os.Stat(cfg.Auth.Kerberos.Krb5Conf); err != nil {
			warnings = append(warnings, fmt.Sprintf("krb5.conf %s not found, kerberos will be disabled", cfg.Auth.Kerberos.Krb5Conf))
		}
		if cfg.Auth.Kerberos.KeytabPath == "" {
			warnings = append(warnings, "no kerberos keytab configured, tickets will not be verified against the KDC")
		}
	}
	if uses(config.MethodOTP) {
		if _, err := os.Stat(cfg.Auth.OTP.SecretsFile); err != nil {
			warnings = append(warnings, "no otp secrets file yet, enroll users with 'dittoauth otp enroll'")
		}
	}
	if cfg.Timestamp.Timeout >= 0 && cfg.Timestamp.Dir == "" {
		warnings = append(warnings, "timestamp dir not configured, the cache is disabled")
	}
	return warnings
}
