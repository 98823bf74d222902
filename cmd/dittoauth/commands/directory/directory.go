// Package directory implements account management for the SQL directory
// method.
package directory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/dittoauth/cmd/dittoauth/cmdutil"
	"github.com/marmos91/dittoauth/internal/cli/output"
	"github.com/marmos91/dittoauth/internal/cli/prompt"
	"github.com/marmos91/dittoauth/pkg/auth/directory"
)

// Cmd is the directory subcommand.
var Cmd = &cobra.Command{
	Use:   "directory",
	Short: "Manage directory accounts",
	Long: `Manage the accounts of the SQL directory method (SQLite or PostgreSQL,
as configured under auth.directory).

Subcommands:
  set-password  Create an account or replace its password
  list          List accounts
  lock          Lock an account
  unlock        Unlock an account and clear its failure counter
  delete        Delete an account`,
}

var (
	setPasswordExpires string
	setPasswordStdin   bool
	listOutput         string
	deleteYes          bool
)

var setPasswordCmd = &cobra.Command{
	Use:   "set-password <user>",
	Short: "Create an account or replace its password",
	Long: `Prompt for a new password twice and store its bcrypt hash. Replacing
the password also unlocks the account.

Examples:
  dittoauth directory set-password alice
  dittoauth directory set-password alice --expires 2027-01-31`,
	Args: cobra.ExactArgs(1),
	RunE: runSetPassword,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var lockCmd = &cobra.Command{
	Use:   "lock <user>",
	Short: "Lock an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *directory.Store) error {
			return s.SetLocked(ctx, args[0], true)
		})
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <user>",
	Short: "Unlock an account and clear its failure counter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *directory.Store) error {
			if err := s.SetLocked(ctx, args[0], false); err != nil {
				return err
			}
			return s.ResetFailures(ctx, args[0])
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <user>",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete account %s", args[0]), deleteYes)
		if err != nil || !ok {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *directory.Store) error {
			return s.DeleteAccount(ctx, args[0])
		})
	},
}

func init() {
	setPasswordCmd.Flags().StringVar(&setPasswordExpires, "expires", "", "Password expiry date (YYYY-MM-DD)")
	setPasswordCmd.Flags().BoolVarP(&setPasswordStdin, "stdin", "S", false, "Read the password from standard input")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")

	Cmd.AddCommand(setPasswordCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(lockCmd)
	Cmd.AddCommand(unlockCmd)
	Cmd.AddCommand(deleteCmd)
}

func withStore(cmd *cobra.Command, fn func(context.Context, *directory.Store) error) error {
	ctx := cmd.Context()
	rt, err := cmdutil.Start(ctx, cmdutil.Flags.ConfigFile, "")
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	s, err := directory.Open(&rt.Config.Auth.Directory)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func runSetPassword(cmd *cobra.Command, args []string) error {
	user := args[0]

	var expires *time.Time
	if setPasswordExpires != "" {
		t, err := time.ParseInLocation("2006-01-02", setPasswordExpires, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --expires: %w", err)
		}
		expires = &t
	}

	p, release, err := cmdutil.OpenPrompter(setPasswordStdin, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer release()

	cred, err := prompt.NewPassword(cmd.Context(), p, "New password")
	if err != nil {
		return err
	}
	defer cred.Wipe()

	hash, err := bcrypt.GenerateFromPassword(cred.Bytes(), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return withStore(cmd, func(ctx context.Context, s *directory.Store) error {
		if err := s.UpsertAccount(ctx, user, string(hash), expires); err != nil {
			return err
		}
		cmd.PrintErrf("Password for %s updated\n", user)
		return nil
	})
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listOutput)
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, s *directory.Store) error {
		accounts, err := s.ListAccounts(ctx)
		if err != nil {
			return err
		}
		list := make(AccountList, 0, len(accounts))
		for _, a := range accounts {
			list = append(list, summarize(a))
		}
		return output.NewPrinter(cmd.OutOrStdout(), format).Print(list)
	})
}

// AccountSummary is the listed view of an account; the hash is omitted.
type AccountSummary struct {
	Username       string     `json:"username" yaml:"username"`
	Locked         bool       `json:"locked" yaml:"locked"`
	FailedAttempts int        `json:"failed_attempts" yaml:"failed_attempts"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" yaml:"last_login_at,omitempty"`
}

func summarize(a *directory.Account) AccountSummary {
	return AccountSummary{
		Username:       a.Username,
		Locked:         a.Locked,
		FailedAttempts: a.FailedAttempts,
		ExpiresAt:      a.ExpiresAt,
		LastLoginAt:    a.LastLoginAt,
	}
}

// AccountList renders accounts as a table.
type AccountList []AccountSummary

// Headers implements output.TableRenderer.
func (l AccountList) Headers() []string {
	return []string{"User", "Locked", "Failures", "Expires", "Last login"}
}

// Rows implements output.TableRenderer.
func (l AccountList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, a := range l {
		locked := "no"
		if a.Locked {
			locked = "yes"
		}
		rows = append(rows, []string{
			a.Username,
			locked,
			strconv.Itoa(a.FailedAttempts),
			formatTime(a.ExpiresAt, "2006-01-02", "never"),
			formatTime(a.LastLoginAt, time.RFC3339, "-"),
		})
	}
	return rows
}

func formatTime(t *time.Time, layout, empty string) string {
	if t == nil {
		return empty
	}
	return t.Format(layout)
}
