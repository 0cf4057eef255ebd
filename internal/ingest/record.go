// Package ingest parses external account and visit documents into the
// strict account.Account and visit.Visit shapes. Records that do not fit
// are rejected with a reason and logged; they never reach the engine.
package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/recency"
	"github.com/lmsales/sales-hub/internal/visit"
)

// AccountRecord is an account as it appears in an import document.
type AccountRecord struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	City           string `json:"city" yaml:"city"`
	Phone          string `json:"phone" yaml:"phone"`
	Email          string `json:"email" yaml:"email"`
	Classification string `json:"classification" yaml:"classification"`
	Frequency      string `json:"frequency" yaml:"frequency"`
	CreatedAt      string `json:"created_at" yaml:"created_at"`
	LastContactAt  string `json:"last_contact_at" yaml:"last_contact_at"`
}

// VisitRecord is a visit as it appears in an import document.
type VisitRecord struct {
	AccountID string `json:"account_id" yaml:"account_id"`
	Date      string `json:"date" yaml:"date"`
	Time      string `json:"time" yaml:"time"`
	Category  string `json:"category" yaml:"category"`
	Status    string `json:"status" yaml:"status"`
	Notes     string `json:"notes" yaml:"notes"`
}

// Document is the top-level shape of JSON and YAML imports.
type Document struct {
	Accounts []AccountRecord `json:"accounts" yaml:"accounts"`
	Visits   []VisitRecord   `json:"visits" yaml:"visits"`
}

// Kind names the record type of a rejection.
type Kind string

const (
	KindAccount Kind = "account"
	KindVisit   Kind = "visit"
)

// Rejection describes a record that was dropped.
type Rejection struct {
	Kind   Kind   `json:"kind"`
	Index  int    `json:"index"` // position in its list, from 0
	Ref    string `json:"ref,omitempty"`
	Reason string `json:"reason"`
}

func (r Rejection) String() string {
	ref := r.Ref
	if ref == "" {
		ref = "-"
	}
	return fmt.Sprintf("%s #%d (%s): %s", r.Kind, r.Index, ref, r.Reason)
}

// Batch is the validated content of one document.
type Batch struct {
	Accounts []account.Account `json:"accounts"`
	Visits   []visit.Visit     `json:"visits"`
	Rejected []Rejection       `json:"rejected"`

	// AccountIndex and VisitIndex hold the document position of each entry
	// in Accounts and Visits, so store failures point at the source record.
	AccountIndex []int `json:"-"`
	VisitIndex   []int `json:"-"`
}

// sourceIndex maps position i of a filtered list back to the document.
// Records appended by hand have no recorded position and keep i.
func sourceIndex(index []int, i int) int {
	if i < len(index) {
		return index[i]
	}
	return i
}

// Build validates a document. Every rejected record is logged at warn level.
func Build(doc Document, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Batch{
		Accounts: make([]account.Account, 0, len(doc.Accounts)),
		Visits:   make([]visit.Visit, 0, len(doc.Visits)),
		Rejected: []Rejection{},
	}

	reject := func(kind Kind, i int, ref string, err error) {
		r := Rejection{Kind: kind, Index: i, Ref: ref, Reason: err.Error()}
		b.Rejected = append(b.Rejected, r)
		logger.Warn("rejected import record", "kind", string(kind), "index", i, "ref", ref, "reason", r.Reason)
	}

	for i, rec := range doc.Accounts {
		a, err := rec.toAccount()
		if err != nil {
			reject(KindAccount, i, rec.ID, err)
			continue
		}
		if !a.Frequency.IsValid() {
			logger.Warn("unrecognized visit frequency kept as-is", "account_id", a.ID, "frequency", string(a.Frequency))
		}
		b.Accounts = append(b.Accounts, a)
		b.AccountIndex = append(b.AccountIndex, i)
	}

	for i, rec := range doc.Visits {
		v, err := rec.toVisit()
		if err != nil {
			reject(KindVisit, i, rec.AccountID, err)
			continue
		}
		b.Visits = append(b.Visits, v)
		b.VisitIndex = append(b.VisitIndex, i)
	}

	return b
}

func (rec AccountRecord) toAccount() (account.Account, error) {
	a := account.Account{
		ID:             strings.TrimSpace(rec.ID),
		Name:           strings.TrimSpace(rec.Name),
		City:           strings.TrimSpace(rec.City),
		Phone:          strings.TrimSpace(rec.Phone),
		Email:          strings.TrimSpace(rec.Email),
		Classification: account.Classification(normalize(rec.Classification)),
		Frequency:      account.Frequency(normalize(rec.Frequency)),
	}
	if a.ID == "" {
		return a, fmt.Errorf("missing id")
	}
	if a.Name == "" {
		return a, fmt.Errorf("missing name")
	}
	if !a.Classification.IsValid() {
		return a, fmt.Errorf("unknown classification %q", rec.Classification)
	}
	if a.Frequency == "" {
		a.Frequency = account.None
	}

	if rec.CreatedAt != "" {
		t, err := parseTime(rec.CreatedAt)
		if err != nil {
			return a, fmt.Errorf("created_at: %w", err)
		}
		a.CreatedAt = t
	}
	if rec.LastContactAt != "" {
		t, err := parseTime(rec.LastContactAt)
		if err != nil {
			return a, fmt.Errorf("last_contact_at: %w", err)
		}
		a.LastContactAt = &t
	}
	return a, nil
}

func (rec VisitRecord) toVisit() (visit.Visit, error) {
	status := visit.Status(normalize(rec.Status))
	if status == "" {
		status = visit.StatusPending
	}
	v := visit.Visit{
		AccountID:     strings.TrimSpace(rec.AccountID),
		ScheduledDate: strings.TrimSpace(rec.Date),
		ScheduledTime: strings.TrimSpace(rec.Time),
		Category:      visit.Category(normalize(rec.Category)),
		Status:        status,
		Notes:         rec.Notes,
	}
	if v.Category == "" {
		v.Category = visit.CategoryVisit
	}
	if err := v.Validate(); err != nil {
		return v, err
	}
	return v, nil
}

// normalize lowercases an enum value and accepts hyphens for underscores,
// so "Follow-Up" and "active-customer" match their stored forms.
func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return recency.ParseDate(s)
}
