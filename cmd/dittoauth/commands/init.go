package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/cmd/dittoauth/cmdutil"
	"github.com/marmos91/dittoauth/internal/cli/prompt"
	"github.com/marmos91/dittoauth/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample dittoauth configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/dittoauth/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  dittoauth init

  # Initialize with custom path
  dittoauth init --config /etc/dittoauth/config.yaml

  # Overwrite an existing config without asking
  dittoauth init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cmdutil.Flags.ConfigFile
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	force := initForce
	if _, err := os.Stat(configPath); err == nil {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Overwrite %s", configPath), force)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
		force = true
	}

	var err error
	if cmdutil.Flags.ConfigFile != "" {
		err = config.InitConfigToPath(configPath, force)
	} else {
		configPath, err = config.InitConfig(force)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to choose your authentication methods")
	fmt.Println("  2. Create a password entry with: dittoauth hash --file <auth.passwd.file>")
	fmt.Printf("  3. Try it with: dittoauth run --config %s -- id\n", configPath)
	return nil
}
