package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ldap2kanboard/internal/template"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate TEMPLATE",
		Short: "Parse a template and print what it would create",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := template.Load(args[0])
			if err != nil {
				return err
			}
			summary := tpl.Summary()
			fmt.Fprint(cmd.OutOrStdout(), summary.String())
			if len(summary.BadOffsets) > 0 {
				return fmt.Errorf("%d task(s) with a non-integer due_date", len(summary.BadOffsets))
			}
			return nil
		},
	}
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ldap2kanboard %s\n", version)
		},
	}
}
