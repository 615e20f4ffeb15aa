package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "schema",
		Short:         "Print the tables statements may read",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}
	return cmd
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	a, err := openApp(cmd.Context(), opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Format == "json" {
		return json.NewEncoder(a.out.Writer).Encode(map[string]any{
			"schema": a.whitelist.Schema(),
			"tables": a.whitelist.Tables(),
		})
	}
	fmt.Fprint(a.out.Writer, a.whitelist.Describe())
	return nil
}
