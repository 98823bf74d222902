package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/cmd/dittoauth/cmdutil"
	"github.com/marmos91/dittoauth/internal/cli/prompt"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/auth/passwd"
)

var (
	hashUser    string
	hashFile    string
	hashExpires string
	hashStdin   bool
)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Create a password file entry",
	Long: `Prompt for a password twice and print a bcrypt password file entry.

With --file the entry is written to the password file instead, replacing
any existing entry for the user.

Examples:
  # Print an entry for the invoking user
  dittoauth hash

  # Add alice to the configured file with a password that expires
  dittoauth hash --user alice --file /etc/dittoauth/passwd --expires 2027-01-31`,
	Args: cobra.NoArgs,
	RunE: runHash,
}

func init() {
	hashCmd.Flags().StringVarP(&hashUser, "user", "u", "", "User name (default: invoking user)")
	hashCmd.Flags().StringVarP(&hashFile, "file", "f", "", "Password file to update")
	hashCmd.Flags().StringVar(&hashExpires, "expires", "", "Password expiry date (YYYY-MM-DD)")
	hashCmd.Flags().BoolVarP(&hashStdin, "stdin", "S", false, "Read the password from standard input")
}

func runHash(cmd *cobra.Command, args []string) error {
	var expires time.Time
	if hashExpires != "" {
		t, err := time.ParseInLocation(passwd.DateLayout, hashExpires, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --expires: %w", err)
		}
		expires = t
	}

	id, err := auth.LookupIdentity(hashUser, "")
	if err != nil {
		return err
	}

	p, release, err := cmdutil.OpenPrompter(hashStdin, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer release()

	cred, err := prompt.NewPassword(cmd.Context(), p, "New password")
	if err != nil {
		return err
	}
	defer cred.Wipe()

	entry, err := passwd.NewEntry(id.User, cred.Bytes(), expires)
	if err != nil {
		return err
	}

	if hashFile == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), entry.String())
		return err
	}
	if err := passwd.WriteEntry(hashFile, entry); err != nil {
		return err
	}
	cmd.PrintErrf("Password for %s written to %s\n", id.User, hashFile)
	return nil
}
