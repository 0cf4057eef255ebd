package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "note",
		Aliases: []string{"notes"},
		Short:   "Manage account notes",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <account-id> <text...>",
			Short: "Add a note to an account",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := newAPIClient().AddNote(args[0], joinArgs(args[1:]))
				if err != nil {
					return err
				}

				if isJSON() {
					return printJSON(cmd.OutOrStdout(), n)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Note #%d added.\n  %s\n", n.ID, n.Text)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list <account-id>",
			Short: "List notes for an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				notes, err := newAPIClient().ListNotes(args[0])
				if err != nil {
					return err
				}

				if isJSON() {
					return printJSON(cmd.OutOrStdout(), notes)
				}
				printNotes(cmd.OutOrStdout(), notes)
				return nil
			},
		},
	)

	return cmd
}
