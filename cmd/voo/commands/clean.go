package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove cache records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			staleTemps, _ := cmd.Flags().GetBool("stale-temps")
			return c.app.Clean(cmd.OutOrStdout(), staleTemps)
		},
	}
	cmd.Flags().Bool("stale-temps", false, "Only prune temp files left by interrupted writes")
	return cmd
}
