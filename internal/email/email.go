// Package email formats the daily plan digest and sends it over SMTP.
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/lmsales/sales-hub/internal/agenda"
	"github.com/lmsales/sales-hub/internal/config"
	"github.com/lmsales/sales-hub/internal/note"
	"github.com/lmsales/sales-hub/internal/prospect"
)

// Subject returns the digest subject line for a plan.
func Subject(plan agenda.Plan) string {
	return fmt.Sprintf("Sales Hub: %d visits planned for %s", len(plan.Entries), plan.Date)
}

// FormatDigest builds a plain-text email body for a daily plan. notes maps
// account IDs to their most recent notes; summary may be nil.
func FormatDigest(plan agenda.Plan, notes map[string][]*note.Note, summary *prospect.Summary) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Good morning,\n\n")
	if len(plan.Entries) == 0 {
		fmt.Fprintf(&buf, "No pending visits for %s.\n\n", plan.Date)
	} else {
		fmt.Fprintf(&buf, "Your plan for %s (%d of %d pending visits):\n\n",
			plan.Date, len(plan.Entries), plan.PendingTotal)
	}

	for i, e := range plan.Entries {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, displayName(e.AccountName, e.Visit.AccountID))

		details := []string{e.Visit.ScheduledDate}
		if e.Visit.ScheduledTime != "" {
			details = append(details, e.Visit.ScheduledTime)
		}
		details = append(details, e.Visit.Category.Label(), strings.ToUpper(e.Urgency))
		fmt.Fprintf(&buf, "   %s\n", strings.Join(details, " | "))

		if e.Label != "" {
			fmt.Fprintf(&buf, "   %s\n", e.Label)
		}
		if e.Visit.Notes != "" {
			fmt.Fprintf(&buf, "   %s\n", e.Visit.Notes)
		}

		if ns := notes[e.Visit.AccountID]; len(ns) > 0 {
			fmt.Fprintf(&buf, "   Notes:\n")
			for _, n := range ns {
				fmt.Fprintf(&buf, "   - %s\n", n.Text)
			}
		}

		fmt.Fprintln(&buf)
	}

	if len(plan.Overdue) > 0 {
		fmt.Fprintf(&buf, "Overdue accounts:\n")
		for _, f := range plan.Overdue {
			fmt.Fprintf(&buf, "- %s: %s\n", displayName(f.AccountName, f.AccountID), f.Label)
		}
		fmt.Fprintln(&buf)
	}

	if summary != nil && summary.Total > 0 {
		fmt.Fprintf(&buf, "Prospects: %d active, %d at risk, %d lost\n\n",
			summary.Active, summary.AtRisk, summary.Lost)
	}

	fmt.Fprintf(&buf, "Good selling!\n")

	return buf.String()
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

// Send sends an email via SMTP.
// Supports both port 465 (implicit TLS) and port 587 (STARTTLS).
func Send(cfg config.SMTP, to []string, subject, body string) error {
	if !cfg.IsConfigured() {
		return fmt.Errorf("SMTP not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	msg := buildMessage(cfg.From, to, subject, body)
	addr := cfg.Host + ":" + cfg.Port

	if cfg.Port == "465" {
		return sendImplicitTLS(cfg, addr, to, msg)
	}
	return sendSTARTTLS(cfg, addr, to, msg)
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}

// sendImplicitTLS connects over TLS directly (port 465/SMTPS).
func sendImplicitTLS(cfg config.SMTP, addr string, to []string, msg []byte) (err error) {
	tlsCfg := &tls.Config{ServerName: cfg.Host}
	conn, err := tls.Dial("tcp", addr, tlsCfg)
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() {
		if quitErr := c.Quit(); quitErr != nil && err == nil {
			err = fmt.Errorf("quit: %w", quitErr)
		}
	}()

	if cfg.User != "" {
		auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return nil
}

// sendSTARTTLS connects plain then upgrades to TLS (port 587).
func sendSTARTTLS(cfg config.SMTP, addr string, to []string, msg []byte) error {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, cfg.From, to, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
