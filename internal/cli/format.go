package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/agenda"
	"github.com/lmsales/sales-hub/internal/auth"
	"github.com/lmsales/sales-hub/internal/client"
	"github.com/lmsales/sales-hub/internal/note"
	"github.com/lmsales/sales-hub/internal/prospect"
	"github.com/lmsales/sales-hub/internal/visit"
)

var (
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	headingStyle  = lipgloss.NewStyle().Bold(true)
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// urgencyBadge renders an urgency score as a colored tag.
func urgencyBadge(score int) string {
	tag := "[" + agenda.UrgencyName(score) + "]"
	switch score {
	case agenda.Critical:
		return criticalStyle.Render(tag)
	case agenda.Warning:
		return warningStyle.Render(tag)
	default:
		return normalStyle.Render(tag)
	}
}

// prospectBadge renders a prospect state as a colored tag.
func prospectBadge(s prospect.State) string {
	tag := "[" + s.Label() + "]"
	switch s {
	case prospect.Lost:
		return criticalStyle.Render(tag)
	case prospect.AtRisk:
		return warningStyle.Render(tag)
	default:
		return normalStyle.Render(tag)
	}
}

// ago formats t relative to now, or "never" when nil.
func ago(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.Time(*t)
}

// printAccountTable prints accounts as a formatted table.
func printAccountTable(out io.Writer, accounts []*client.AccountSummary) error {
	if len(accounts) == 0 {
		fmt.Fprintln(out, "No accounts found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tCITY\tCLASSIFICATION\tFREQUENCY\tLAST VISIT\tLAST CONTACT"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t----\t----\t--------------\t---------\t----------\t------------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, a := range accounts {
		city := a.City
		if city == "" {
			city = "-"
		}
		lastVisit := "never"
		if a.LastVisit != nil {
			lastVisit = *a.LastVisit
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(a.ID, 12), truncate(a.Name, 32), city,
			a.Classification.Label(), a.Frequency.Label(), lastVisit, ago(a.LastContactAt)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(out, "\nTotal: %d accounts\n", len(accounts))
	return nil
}

// printAccountSummary prints a single account in text format.
func printAccountSummary(out io.Writer, a *account.Account) {
	fmt.Fprintln(out, headingStyle.Render(a.Name))
	fmt.Fprintf(out, "  ID:         %s\n", a.ID)
	if a.City != "" {
		fmt.Fprintf(out, "  City:       %s\n", a.City)
	}
	if a.Phone != "" {
		fmt.Fprintf(out, "  Phone:      %s\n", a.Phone)
	}
	if a.Email != "" {
		fmt.Fprintf(out, "  Email:      %s\n", a.Email)
	}
	fmt.Fprintf(out, "  Type:       %s\n", a.Classification.Label())
	fmt.Fprintf(out, "  Frequency:  %s\n", a.Frequency.Label())
	fmt.Fprintf(out, "  Created:    %s\n", a.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(out, "  Contacted:  %s\n", ago(a.LastContactAt))
}

// printAccountDetail prints an account with its health, visits and notes.
func printAccountDetail(out io.Writer, d *client.AccountDetail) {
	printAccountSummary(out, d.Account)

	h := d.Health
	last := "never"
	if h.LastVisit != nil {
		last = *h.LastVisit
	}
	fmt.Fprintf(out, "  Last visit: %s\n", last)
	switch {
	case h.Overdue:
		fmt.Fprintf(out, "  Health:     %s overdue (%s)\n", urgencyBadge(agenda.Critical), h.Reason)
	case h.Stale:
		fmt.Fprintf(out, "  Health:     %s no visit this week\n", urgencyBadge(agenda.Warning))
	default:
		fmt.Fprintf(out, "  Health:     %s\n", urgencyBadge(agenda.Normal))
	}
	if h.Prospect != nil {
		fmt.Fprintf(out, "  Prospect:   %s %d days\n", prospectBadge(h.Prospect.State), h.Prospect.DaysElapsed)
	}
	fmt.Fprintln(out)

	if len(d.Visits) > 0 {
		fmt.Fprintf(out, "Visits (%d):\n", len(d.Visits))
		printVisits(out, d.Visits)
	}
	if len(d.Notes) > 0 {
		fmt.Fprintf(out, "Notes (%d):\n", len(d.Notes))
		printNotes(out, d.Notes)
	} else {
		fmt.Fprintln(out, "No notes.")
	}
}

// printNotes prints notes in text format.
func printNotes(out io.Writer, notes []*note.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(out, "No notes.")
		return
	}

	for _, n := range notes {
		author := n.Author
		if author == "" {
			author = "anonymous"
		}
		fmt.Fprintf(out, "[%s] #%d (%s, %s)\n  %s\n\n",
			n.CreatedAt.Format("2006-01-02 15:04"), n.ID, author, humanize.Time(n.CreatedAt), n.Text)
	}
}

// printVisits prints visits in text format.
func printVisits(out io.Writer, visits []*visit.Visit) {
	if len(visits) == 0 {
		fmt.Fprintln(out, "No visits found.")
		return
	}

	for _, v := range visits {
		when := v.ScheduledDate
		if v.ScheduledTime != "" {
			when += " " + v.ScheduledTime
		}
		fmt.Fprintf(out, "[%s] %s %s for %s (#%d)\n", when, v.Category.Label(), v.Status, v.AccountID, v.ID)
		if v.Notes != "" {
			fmt.Fprintf(out, "  %s\n", v.Notes)
		}
		fmt.Fprintln(out)
	}
}

// printPlan prints a daily plan with the overdue and stale lists.
func printPlan(out io.Writer, p *agenda.Plan) error {
	fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("Plan for %s: %d of %d pending visits",
		p.Date, len(p.Entries), p.PendingTotal)))

	if len(p.Entries) == 0 {
		fmt.Fprintln(out, "Nothing to do.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for i, e := range p.Entries {
			when := e.Visit.ScheduledDate
			if e.Visit.ScheduledTime != "" {
				when += " " + e.Visit.ScheduledTime
			}
			if _, err := fmt.Fprintf(w, "%d.\t%s\t%s\t%s\t%s %s\n",
				i+1, truncate(e.AccountName, 32), when, e.Visit.Category.Label(),
				urgencyBadge(e.Score), e.Label); err != nil {
				return fmt.Errorf("writing plan row: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flushing plan: %w", err)
		}
	}

	printFlags(out, "Overdue", p.Overdue)
	printFlags(out, "Stale", p.Stale)
	return nil
}

func printFlags(out io.Writer, title string, flags []agenda.Flag) {
	if len(flags) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s (%d):\n", title, len(flags))
	for _, f := range flags {
		fmt.Fprintf(out, "  - %s: %s\n", f.AccountName, f.Label)
	}
}

// printProspectBoard prints the prospect board with its summary.
func printProspectBoard(out io.Writer, b *client.ProspectBoard) error {
	s := b.Summary
	fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("Prospects: %d total, %d active, %d at risk, %d lost",
		s.Total, s.Active, s.AtRisk, s.Lost)))
	if len(b.Prospects) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, e := range b.Prospects {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d days\tcontacted %s\n",
			prospectBadge(e.State), truncate(e.Account.Name, 32), e.DaysElapsed, ago(e.LastContact)); err != nil {
			return fmt.Errorf("writing board row: %w", err)
		}
	}
	return w.Flush()
}

// printKeys prints API keys as a table.
func printKeys(out io.Writer, keys []auth.APIKey) error {
	if len(keys) == 0 {
		fmt.Fprintln(out, "No API keys.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tPREFIX\tCREATED\tLAST USED"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s…\t%s\t%s\n",
			k.ID, k.Name, k.KeyPrefix, k.CreatedAt.Format("2006-01-02"), ago(k.LastUsedAt)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// joinArgs joins free-text arguments into one string.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
