package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lmsales/sales-hub/internal/client"
	"github.com/lmsales/sales-hub/internal/recency"
	"github.com/lmsales/sales-hub/internal/visit"
)

func newVisitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "visit",
		Aliases: []string{"visits"},
		Short:   "Schedule and complete visits",
	}

	cmd.AddCommand(
		newVisitAddCmd(),
		newVisitListCmd(),
		newVisitCompleteCmd(),
		newVisitRemoveCmd(),
	)

	return cmd
}

func newVisitAddCmd() *cobra.Command {
	var req client.VisitRequest

	cmd := &cobra.Command{
		Use:   "add <account-id> <date>",
		Short: "Schedule a visit",
		Long: `Schedule a pending visit for an account.

Date format: YYYY-MM-DD
Categories: visit, quote, collection, follow_up

Examples:
  hub visit add acc-42 2026-03-21
  hub visit add acc-42 2026-03-21 --time 09:30 --category quote`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.AccountID = args[0]
			req.Date = args[1]
			req.Category = strings.ToLower(req.Category)
			if _, err := recency.ParseDate(req.Date); err != nil {
				return fmt.Errorf("invalid date %q (use YYYY-MM-DD)", req.Date)
			}
			if !visit.Category(req.Category).IsValid() {
				return fmt.Errorf("invalid category %q (must be visit, quote, collection or follow_up)", req.Category)
			}

			v, err := newAPIClient().AddVisit(req)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Visit scheduled: %s %s (#%d)\n", v.ScheduledDate, v.Category.Label(), v.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Time, "time", "", "time of day (display only)")
	cmd.Flags().StringVar(&req.Category, "category", string(visit.CategoryVisit), "visit, quote, collection or follow_up")
	cmd.Flags().StringVarP(&req.Notes, "notes", "n", "", "optional notes")

	return cmd
}

func newVisitListCmd() *cobra.Command {
	var opts client.VisitListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Status != "" && !visit.Status(opts.Status).IsValid() {
				return fmt.Errorf("invalid status %q (must be pending or completed)", opts.Status)
			}

			visits, err := newAPIClient().ListVisits(opts)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), visits)
			}
			printVisits(cmd.OutOrStdout(), visits)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (pending or completed)")
	cmd.Flags().StringVar(&opts.AccountID, "account", "", "filter by account ID")

	return cmd
}

func newVisitCompleteCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "complete <visit-id>",
		Short: "Mark a visit completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVisitID(args[0])
			if err != nil {
				return err
			}

			v, err := newAPIClient().CompleteVisit(id, notes)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Visit #%d completed.\n", v.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "n", "", "outcome notes")

	return cmd
}

func newVisitRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <visit-id>",
		Short: "Remove a visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVisitID(args[0])
			if err != nil {
				return err
			}
			if err := newAPIClient().DeleteVisit(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed visit #%d\n", id)
			return nil
		},
	}
}

func parseVisitID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid visit ID: %s", s)
	}
	return id, nil
}
