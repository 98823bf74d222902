// Package commands implements the dittoauth CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/cmd/dittoauth/cmdutil"
	"github.com/marmos91/dittoauth/cmd/dittoauth/commands/config"
	"github.com/marmos91/dittoauth/cmd/dittoauth/commands/directory"
	"github.com/marmos91/dittoauth/cmd/dittoauth/commands/otp"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dittoauth",
	Short: "dittoauth - pluggable authentication front end",
	Long: `dittoauth authenticates the invoking user against a chain of
configurable methods (password file, Kerberos, SQL directory, TOTP) before
running a command, in the manner of sudo.

Use "dittoauth [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.ConfigFile, _ = cmd.Flags().GetString("config")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: $XDG_CONFIG_HOME/dittoauth/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(invalidateCmd)
	rootCmd.AddCommand(methodsCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(otp.Cmd)
	rootCmd.AddCommand(directory.Cmd)
}

// authFlags are shared by the commands that authenticate.
type authFlags struct {
	user           string
	target         string
	nonInteractive bool
	stdin          bool
}

func (f *authFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.user, "user", "u", "", "User to authenticate (default: invoking user)")
	cmd.Flags().StringVar(&f.target, "target", "root", "User the command runs as, for prompts")
	cmd.Flags().BoolVarP(&f.nonInteractive, "non-interactive", "n", false, "Fail instead of prompting")
	cmd.Flags().BoolVarP(&f.stdin, "stdin", "S", false, "Read the password from standard input")
}

func (f *authFlags) options(cmd *cobra.Command) cmdutil.AuthOptions {
	return cmdutil.AuthOptions{
		User:           f.user,
		TargetUser:     f.target,
		NonInteractive: f.nonInteractive,
		Stdin:          f.stdin,
		In:             cmd.InOrStdin(),
		Err:            cmd.ErrOrStderr(),
	}
}
