package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/cmd/dittoauth/cmdutil"
	"github.com/marmos91/dittoauth/internal/cli/output"
	"github.com/marmos91/dittoauth/pkg/auth"
)

var methodsUser string

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "Show the authentication chain",
	Long: `Build the authentication chain for a user without prompting and show
every configured method in chain order: whether it is standalone, whether
it stayed enabled after initialization and the result of its init hook.

Examples:
  dittoauth methods
  dittoauth methods --user alice -o json`,
	Args: cobra.NoArgs,
	RunE: runMethods,
}

func init() {
	methodsCmd.Flags().StringVarP(&methodsUser, "user", "u", "", "User to build the chain for (default: invoking user)")
	methodsCmd.Flags().StringVarP(&cmdutil.Flags.Output, "output", "o", "table", "Output format (table|json|yaml)")
}

func runMethods(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := cmdutil.GetOutputFormat()
	if err != nil {
		return err
	}

	rt, err := cmdutil.Start(ctx, cmdutil.Flags.ConfigFile, Version)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	id, err := auth.LookupIdentity(methodsUser, "")
	if err != nil {
		return err
	}

	report, err := cmdutil.DescribeMethods(ctx, &rt.Config.Auth, id.User)
	if err != nil {
		return err
	}
	if err := output.NewPrinter(cmd.OutOrStdout(), format).Print(report); err != nil {
		return err
	}
	if report.Error != "" && format == output.FormatTable {
		cmd.PrintErrf("\nchain error: %s\n", report.Error)
	}
	return nil
}
