package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/cmd/dittoauth/cmdutil"
	"github.com/marmos91/dittoauth/pkg/auth"
)

var validateFlags authFlags

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Authenticate and refresh the timestamp",
	Long: `Authenticate the user and extend the cached timestamp without running
a command. Prompts only when the timestamp has expired.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var invalidateUser string

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Forget the cached timestamp",
	Long: `Remove the user's authentication timestamp so that the next command
prompts again.`,
	Args: cobra.NoArgs,
	RunE: runInvalidate,
}

func init() {
	validateFlags.register(validateCmd)
	invalidateCmd.Flags().StringVarP(&invalidateUser, "user", "u", "", "User whose timestamp to remove (default: invoking user)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := cmdutil.Start(ctx, cmdutil.Flags.ConfigFile, Version)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	a, err := cmdutil.NewAuthenticator(ctx, rt, validateFlags.options(cmd))
	if err != nil {
		return err
	}
	err = a.AuthenticateInterruptible(ctx)
	a.Close(ctx, err != nil)
	return err
}

func runInvalidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := cmdutil.Start(ctx, cmdutil.Flags.ConfigFile, Version)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	id, err := auth.LookupIdentity(invalidateUser, "")
	if err != nil {
		return err
	}
	return cmdutil.Invalidate(rt, id.User)
}
