package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/agenda"
	"github.com/lmsales/sales-hub/internal/config"
	"github.com/lmsales/sales-hub/internal/email"
	"github.com/lmsales/sales-hub/internal/feed"
	"github.com/lmsales/sales-hub/internal/note"
	"github.com/lmsales/sales-hub/internal/prospect"
	"github.com/lmsales/sales-hub/internal/visit"
)

// digestNotes is how many recent notes per planned account go in the digest.
const digestNotes = 2

func newDigestCmd() *cobra.Command {
	var (
		to       []string
		capacity int
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Email today's plan",
		Long: `Build today's visit plan from the local database and email it, with recent
notes for each planned account and the prospect summary.

Mail settings come from HUB_SMTP_HOST, HUB_SMTP_PORT, HUB_SMTP_USER,
HUB_SMTP_PASS and HUB_SMTP_FROM. The recipient defaults to HUB_ADMIN_EMAIL.
Use --dry-run to print the message instead of sending it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if capacity <= 0 {
				capacity = cfg.PlanCapacity
			}
			if len(to) == 0 && cfg.AdminEmail != "" {
				to = []string{cfg.AdminEmail}
			}
			if !dryRun {
				if !cfg.SMTP.IsConfigured() {
					return fmt.Errorf("SMTP is not configured (set HUB_SMTP_HOST and HUB_SMTP_FROM)")
				}
				if len(to) == 0 {
					return fmt.Errorf("no recipient (use --to or set HUB_ADMIN_EMAIL)")
				}
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			subject, body, err := buildDigest(cmd.Context(), database, time.Now(), capacity)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "To: %s\n", strings.Join(to, ", "))
				fmt.Fprintf(out, "Subject: %s\n", subject)
				fmt.Fprintln(out, "---")
				fmt.Fprint(out, body)
				return nil
			}

			if err := email.Send(cfg.SMTP, to, subject, body); err != nil {
				return err
			}
			fmt.Fprintf(out, "Digest sent to %s\n", strings.Join(to, ", "))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&to, "to", nil, "recipient address (repeatable)")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "number of visits in the plan (default: HUB_PLAN_CAPACITY)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the message instead of sending it")

	return cmd
}

// buildDigest renders the digest for the plan at now.
func buildDigest(ctx context.Context, database *sql.DB, now time.Time, capacity int) (string, string, error) {
	source := feed.StoreSource{
		Accounts: account.NewRepository(database),
		Visits:   visit.NewRepository(database),
		Now:      func() time.Time { return now },
	}
	snap, err := source.Load(ctx)
	if err != nil {
		return "", "", err
	}

	logger := slog.Default()
	plan := agenda.BuildPlan(snap.Accounts, snap.Visits, now, capacity, logger)

	notes := note.NewRepository(database)
	recent := make(map[string][]*note.Note)
	for _, e := range plan.Entries {
		id := e.Visit.AccountID
		if _, done := recent[id]; done {
			continue
		}
		ns, err := notes.ListByAccountID(id)
		if err != nil {
			return "", "", err
		}
		recent[id] = ns[:min(len(ns), digestNotes)]
	}

	summary := prospect.Summarize(prospect.Board(snap.Accounts, snap.Visits, now))
	return email.Subject(plan), email.FormatDigest(plan, recent, &summary), nil
}
