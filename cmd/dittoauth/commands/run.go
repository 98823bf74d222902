package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/cmd/dittoauth/cmdutil"
)

var runFlags authFlags

var runCmd = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Authenticate and run a command",
	Long: `Authenticate the user with the configured methods and run a command.

The command runs with the environment contributed by the authentication
session (for example KRB5PRINCIPAL) and its exit status is propagated.
A still valid timestamp skips the password prompt.

Examples:
  # Run a command after authenticating
  dittoauth run -- systemctl restart nginx

  # Fail instead of prompting when no timestamp is cached
  dittoauth run -n -- make deploy

  # Read the password from a pipe
  echo "$PASSWORD" | dittoauth run --stdin -- id`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runFlags.register(runCmd)
	runCmd.Flags().SetInterspersed(false)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := cmdutil.Start(ctx, cmdutil.Flags.ConfigFile, Version)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	a, err := cmdutil.NewAuthenticator(ctx, rt, runFlags.options(cmd))
	if err != nil {
		return err
	}
	force := true
	defer func() { a.Close(ctx, force) }()

	if err := a.AuthenticateInterruptible(ctx); err != nil {
		return err
	}

	code, err := a.RunCommand(ctx, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	force = false
	if code != 0 {
		return &cmdutil.ExitError{Code: code}
	}
	return nil
}
