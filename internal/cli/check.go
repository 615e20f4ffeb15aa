package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <sql>",
		Short: "Run the safety guard on a statement without executing it",
		Long: `Show the guard's decision for a statement: the rewritten statement
and its row bound when approved, or the reason code and rule when rejected.
The statement is never sent to the database.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, strings.Join(args, " "), cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, statement string, cmd *cobra.Command) error {
	a, err := openApp(cmd.Context(), opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	d := a.pipeline.Check(statement)
	if err := a.out.Decision(statement, d); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if !d.Approved() {
		return NewExitError(ExitFailure, string(d.Code())+": "+d.Message())
	}
	return nil
}
