package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/internal/cli/output"
	"github.com/marmos91/dittoauth/pkg/config"
)

const redacted = "********"

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration dittoauth would run with: the file, its
defaults and any DITTOAUTH_* environment overrides. The directory database
password is masked.

Examples:
  dittoauth config show
  dittoauth config show -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := output.ParseFormat(showOutput)
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.MustLoad(path)
		if err != nil {
			return err
		}

		safe := Redact(cfg)
		if format == output.FormatJSON {
			return output.PrintJSON(cmd.OutOrStdout(), safe)
		}
		return output.PrintYAML(cmd.OutOrStdout(), safe)
	},
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

// Redact returns a copy of cfg safe to print.
func Redact(cfg *config.Config) *config.Config {
	c := *cfg
	if c.Auth.Directory.Postgres.Password != "" {
		c.Auth.Directory.Postgres.Password = redacted
	}
	return &c
}
