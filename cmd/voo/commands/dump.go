package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [digest]",
		Short: "Print cache records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest := ""
			if len(args) == 1 {
				digest = args[0]
			}
			asYAML, _ := cmd.Flags().GetBool("yaml")
			return c.app.Dump(cmd.Context(), cmd.OutOrStdout(), digest, asYAML)
		},
	}
	cmd.Flags().BoolP("yaml", "y", false, "Emit full record summaries as YAML")
	return cmd
}
