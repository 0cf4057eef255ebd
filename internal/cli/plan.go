package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lmsales/sales-hub/internal/agenda"
	"github.com/lmsales/sales-hub/internal/client"
	"github.com/lmsales/sales-hub/internal/recency"
)

func newPlanCmd() *cobra.Command {
	var (
		opts  client.AgendaOptions
		watch bool
	)

	cmd := &cobra.Command{
		Use:     "plan",
		Aliases: []string{"agenda"},
		Short:   "Show the prioritized daily visit plan",
		Long: `Show today's visit plan: pending visits ordered by urgency, then by days since
the account's last completed visit, then by scheduled date. Overdue and stale
accounts are listed below the plan.

With --watch the plan is reprinted every time the server's data changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Capacity < 0 {
				return fmt.Errorf("capacity must not be negative")
			}
			if opts.Capacity == 0 {
				opts.Capacity = getCapacity()
			}
			if opts.Date != "" {
				if _, err := recency.ParseDate(opts.Date); err != nil {
					return fmt.Errorf("invalid date %q (use YYYY-MM-DD)", opts.Date)
				}
				if watch {
					return fmt.Errorf("--date cannot be combined with --watch")
				}
			}

			c := newAPIClient()
			out := cmd.OutOrStdout()
			show := func(p *agenda.Plan) error {
				if isJSON() {
					return printJSON(out, p)
				}
				return printPlan(out, p)
			}

			if !watch {
				p, err := c.Agenda(opts)
				if err != nil {
					return err
				}
				return show(p)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			first := true
			return c.StreamAgenda(ctx, opts.Capacity, func(p *agenda.Plan) error {
				if !first && !isJSON() {
					fmt.Fprintln(out, "\n---")
				}
				first = false
				return show(p)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Capacity, "capacity", 0, "number of visits in the plan (default: config or server default)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "evaluate the plan for this day (YYYY-MM-DD)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep the plan on screen and update it live")

	return cmd
}
