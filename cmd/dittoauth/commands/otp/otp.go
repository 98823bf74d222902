// Package otp implements TOTP enrollment subcommands.
package otp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/cmd/dittoauth/cmdutil"
	"github.com/marmos91/dittoauth/internal/cli/output"
	"github.com/marmos91/dittoauth/internal/cli/prompt"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/auth/otp"
)

// Cmd is the otp subcommand.
var Cmd = &cobra.Command{
	Use:   "otp",
	Short: "Manage TOTP enrollments",
	Long: `Manage the one-time password secrets used by the otp method.

Subcommands:
  enroll  Create or replace a user's secret
  remove  Delete a user's secret
  list    List enrolled users`,
}

var (
	enrollUser string
	removeUser string
	removeYes  bool
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Create or replace a user's TOTP secret",
	Long: `Generate a new TOTP secret for a user and print its otpauth:// URL
for an authenticator app. Any existing secret is replaced.

Examples:
  dittoauth otp enroll
  dittoauth otp enroll --user alice`,
	Args: cobra.NoArgs,
	RunE: runEnroll,
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete a user's TOTP secret",
	Args:  cobra.NoArgs,
	RunE:  runRemove,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled users",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	enrollCmd.Flags().StringVarP(&enrollUser, "user", "u", "", "User to enroll (default: invoking user)")
	removeCmd.Flags().StringVarP(&removeUser, "user", "u", "", "User to remove (default: invoking user)")
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Do not ask for confirmation")

	Cmd.AddCommand(enrollCmd)
	Cmd.AddCommand(removeCmd)
	Cmd.AddCommand(listCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := cmdutil.Start(ctx, cmdutil.Flags.ConfigFile, "")
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	id, err := auth.LookupIdentity(enrollUser, "")
	if err != nil {
		return err
	}

	key, err := otp.Enroll(rt.Config.Auth.OTP, id.User)
	if err != nil {
		return err
	}

	return output.PrintTable(cmd.OutOrStdout(), output.KeyValues{
		{"User", id.User},
		{"Secret", key.Secret()},
		{"URL", key.URL()},
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := cmdutil.Start(ctx, cmdutil.Flags.ConfigFile, "")
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	id, err := auth.LookupIdentity(removeUser, "")
	if err != nil {
		return err
	}

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Remove the TOTP secret of %s", id.User), removeYes)
	if err != nil || !ok {
		if prompt.IsAborted(err) {
			return nil
		}
		return err
	}

	store, err := otp.OpenStore(rt.Config.Auth.OTP.SecretsFile)
	if err != nil {
		return err
	}
	if err := store.Delete(id.User); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed TOTP secret of %s\n", id.User)
	return err
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := cmdutil.Start(ctx, cmdutil.Flags.ConfigFile, "")
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	store, err := otp.OpenStore(rt.Config.Auth.OTP.SecretsFile)
	if err != nil {
		return err
	}
	for _, u := range store.Users() {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), u); err != nil {
			return err
		}
	}
	return nil
}
