package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Check and run a SQL statement",
		Long: `Run one SQL statement through the safety guard and, if approved,
execute it read-only. Rejected statements are reported with their reason
code and exit with status 1.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, strings.Join(args, " "), cmd)
		},
	}
	return cmd
}

func runQuery(opts *RootOptions, statement string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.runStatement(ctx, statement)
}
