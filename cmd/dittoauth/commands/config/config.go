// Package config holds the `dittoauth config` subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd groups commands that inspect the configuration file without
// authenticating anyone.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration file",
	Long: `Inspect the dittoauth configuration file.

'validate' loads the file and reports problems that would only surface at
authentication time, such as a missing keytab. 'show' prints the effective
configuration with defaults and environment overrides applied. 'schema'
emits a JSON schema for editor completion.

Create a file with 'dittoauth init'.`,
}

func init() {
	Cmd.AddCommand(validateCmd, showCmd, schemaCmd)
}
