package cli

import (
	"github.com/spf13/cobra"
)

func newProspectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prospects",
		Short: "Show prospect health",
		Long: `Show every prospect as active, at risk or lost.

A prospect that was never contacted is at risk after 7 days and lost after 21.
Once contacted (a completed visit or 'hub account contact') it is at risk
14 days after the last contact and lost after 30.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newAPIClient().Prospects()
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), b)
			}
			return printProspectBoard(cmd.OutOrStdout(), b)
		},
	}
}
