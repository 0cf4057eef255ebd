package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/db"
	"github.com/lmsales/sales-hub/internal/visit"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

const jsonDoc = `{
  "accounts": [
    {"id": "a1", "name": "Garage Nord", "classification": "active-customer", "frequency": "weekly", "created_at": "2026-01-05"},
    {"id": "a2", "name": "", "classification": "prospect"},
    {"id": "a3", "name": "Reifen Ost", "classification": "partner"},
    {"id": "a4", "name": "Autohaus", "classification": "prospect", "frequency": "quarterly", "last_contact_at": "2026-02-01T10:00:00Z"}
  ],
  "visits": [
    {"account_id": "a1", "date": "2026-02-10", "time": "09:00", "category": "Follow-Up", "status": "completed"},
    {"account_id": "a1", "date": "10/02/2026", "category": "visit"},
    {"account_id": "a1", "date": "2026-02-11", "category": "invoice"},
    {"account_id": "", "date": "2026-02-12"},
    {"account_id": "a4", "date": "2026-02-13"}
  ]
}`

func TestParseJSON(t *testing.T) {
	var logs bytes.Buffer
	b, err := ParseJSON(strings.NewReader(jsonDoc), slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var gotAccounts []string
	for _, a := range b.Accounts {
		gotAccounts = append(gotAccounts, a.ID)
	}
	if diff := cmp.Diff([]string{"a1", "a4"}, gotAccounts); diff != "" {
		t.Errorf("accounts mismatch (-want +got):\n%s", diff)
	}
	if b.Accounts[0].Classification != account.ActiveCustomer {
		t.Errorf("classification = %q, want active_customer", b.Accounts[0].Classification)
	}
	if b.Accounts[1].Frequency != "quarterly" {
		t.Errorf("unknown frequency should be kept, got %q", b.Accounts[1].Frequency)
	}
	if b.Accounts[1].LastContactAt == nil {
		t.Error("last_contact_at not parsed")
	}

	if len(b.Visits) != 2 {
		t.Fatalf("got %d visits, want 2", len(b.Visits))
	}
	if b.Visits[0].Category != visit.CategoryFollowUp || b.Visits[0].Status != visit.StatusCompleted {
		t.Errorf("visit 0 = %+v", b.Visits[0])
	}
	if b.Visits[1].Category != visit.CategoryVisit || b.Visits[1].Status != visit.StatusPending {
		t.Errorf("defaults not applied: %+v", b.Visits[1])
	}

	type key struct {
		Kind  Kind
		Index int
	}
	var rejected []key
	for _, r := range b.Rejected {
		rejected = append(rejected, key{r.Kind, r.Index})
	}
	want := []key{{KindAccount, 1}, {KindAccount, 2}, {KindVisit, 1}, {KindVisit, 2}, {KindVisit, 3}}
	if diff := cmp.Diff(want, rejected); diff != "" {
		t.Errorf("rejections mismatch (-want +got):\n%s", diff)
	}

	out := logs.String()
	if strings.Count(out, "rejected import record") != 5 {
		t.Errorf("expected 5 rejection log lines, got:\n%s", out)
	}
	if !strings.Contains(out, "unrecognized visit frequency") {
		t.Error("expected warning for unknown frequency")
	}
}

func TestParseJSONMalformed(t *testing.T) {
	if _, err := ParseJSON(strings.NewReader(`{"accounts": [`), quietLogger()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
accounts:
  - id: p1
    name: Werkstatt West
    classification: prospect
visits:
  - account_id: p1
    date: "2026-03-02"
    category: quote
`
	b, err := ParseYAML(strings.NewReader(doc), quietLogger())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(b.Accounts) != 1 || b.Accounts[0].Frequency != account.None {
		t.Errorf("accounts = %+v", b.Accounts)
	}
	if len(b.Visits) != 1 || b.Visits[0].Category != visit.CategoryQuote {
		t.Errorf("visits = %+v", b.Visits)
	}
	if len(b.Rejected) != 0 {
		t.Errorf("rejected = %v", b.Rejected)
	}
}

func TestParseYAMLEmpty(t *testing.T) {
	b, err := ParseYAML(strings.NewReader(""), quietLogger())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(b.Accounts)+len(b.Visits)+len(b.Rejected) != 0 {
		t.Errorf("expected empty batch, got %+v", b)
	}
}

func TestParseCSV(t *testing.T) {
	t.Run("accounts", func(t *testing.T) {
		in := "ID,Name,City,Classification,Frequency\n" +
			"c1,Garage Nord,Hamburg,active_customer,biweekly\n" +
			"c2,,Berlin,prospect,\n"
		b, err := ParseCSV(strings.NewReader(in), quietLogger())
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if len(b.Accounts) != 1 || b.Accounts[0].City != "Hamburg" || b.Accounts[0].Frequency != account.Biweekly {
			t.Errorf("accounts = %+v", b.Accounts)
		}
		if len(b.Rejected) != 1 || b.Rejected[0].Reason != "missing name" {
			t.Errorf("rejected = %v", b.Rejected)
		}
	})

	t.Run("visits", func(t *testing.T) {
		in := "account_id,scheduled_date,category,status\n" +
			"c1,2026-04-01,collection,pending\n" +
			"c1,2026-04-02,collection,cancelled\n"
		b, err := ParseCSV(strings.NewReader(in), quietLogger())
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if len(b.Visits) != 1 || b.Visits[0].Category != visit.CategoryCollection {
			t.Errorf("visits = %+v", b.Visits)
		}
		if len(b.Rejected) != 1 || b.Rejected[0].Kind != KindVisit {
			t.Errorf("rejected = %v", b.Rejected)
		}
	})

	t.Run("unknown header", func(t *testing.T) {
		if _, err := ParseCSV(strings.NewReader("foo,bar\n1,2\n"), quietLogger()); err == nil {
			t.Fatal("expected header error")
		}
	})
}

func TestParseByExtension(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "accounts.yml")
	if err := os.WriteFile(path, []byte("accounts:\n  - {id: x, name: X, classification: inactive}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := Parse(path, quietLogger())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(b.Accounts) != 1 {
		t.Errorf("got %d accounts, want 1", len(b.Accounts))
	}

	if _, err := Parse(filepath.Join(dir, "data.xml"), quietLogger()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Parse(filepath.Join(dir, "missing.json"), quietLogger()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.json", "application/json"},
		{"a.YAML", "application/yaml"},
		{"dir/a.yml", "application/yaml"},
		{"a.csv", "text/csv"},
	}
	for _, tt := range tests {
		got, err := ContentType(tt.path)
		if err != nil || got != tt.want {
			t.Errorf("ContentType(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}

	if _, err := ContentType("a.txt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestApply(t *testing.T) {
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	accounts := account.NewRepository(d)
	visits := visit.NewRepository(d)

	b, err := ParseJSON(strings.NewReader(jsonDoc), quietLogger())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b.Visits = append(b.Visits, visit.Visit{
		AccountID: "nobody", ScheduledDate: "2026-02-20", Category: visit.CategoryVisit, Status: visit.StatusPending,
	})

	res, err := Apply(context.Background(), b, accounts, visits, quietLogger())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Accounts != 2 || res.Visits != 2 {
		t.Errorf("result = %+v, want 2 accounts and 2 visits", res)
	}
	if len(res.Failed) != 1 || res.Failed[0].Ref != "nobody" {
		t.Errorf("failed = %v", res.Failed)
	}

	a, err := accounts.GetByID("a1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if a.CreatedAt.Format("2006-01-02") != "2026-01-05" {
		t.Errorf("created_at = %v, want 2026-01-05", a.CreatedAt)
	}

	stored, err := visits.ListByAccountID("a1")
	if err != nil {
		t.Fatalf("list visits: %v", err)
	}
	if len(stored) != 1 || !stored[0].IsCompleted() {
		t.Errorf("stored visits = %+v", stored)
	}
}

func openApplyStore(t *testing.T) (*account.Repository, *visit.Repository) {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return account.NewRepository(d), visit.NewRepository(d)
}

func TestApplyTwiceIsIdempotent(t *testing.T) {
	accounts, visits := openApplyStore(t)

	doc := `{
  "accounts": [{"id": "a1", "name": "Garage Nord", "classification": "active_customer", "frequency": "weekly"}],
  "visits": [{"account_id": "a1", "date": "2026-02-10", "time": "09:00", "category": "visit"}]
}`

	for run, want := range []Result{
		{Accounts: 1, Visits: 1, Failed: []Rejection{}},
		{Accounts: 1, Skipped: 1, Failed: []Rejection{}},
	} {
		b, err := ParseJSON(strings.NewReader(doc), quietLogger())
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		res, err := Apply(context.Background(), b, accounts, visits, quietLogger())
		if err != nil {
			t.Fatalf("apply %d: %v", run, err)
		}
		if diff := cmp.Diff(want, res); diff != "" {
			t.Errorf("apply %d result mismatch (-want +got):\n%s", run, diff)
		}
	}

	stored, err := visits.List(visit.ListOptions{})
	if err != nil {
		t.Fatalf("list visits: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("got %d visits after two imports, want 1", len(stored))
	}
}

func TestApplyFailureUsesDocumentIndex(t *testing.T) {
	accounts, visits := openApplyStore(t)

	doc := `{
  "visits": [
    {"account_id": "a1", "date": "bad"},
    {"account_id": "nobody", "date": "2026-02-10"}
  ]
}`
	b, err := ParseJSON(strings.NewReader(doc), quietLogger())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(b.Rejected) != 1 || b.Rejected[0].Index != 0 {
		t.Fatalf("rejected = %v, want visit #0", b.Rejected)
	}

	res, err := Apply(context.Background(), b, accounts, visits, quietLogger())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Failed) != 1 {
		t.Fatalf("failed = %v, want one store failure", res.Failed)
	}
	if got := res.Failed[0]; got.Index != 1 || got.Ref != "nobody" {
		t.Errorf("store failure = %v, want visit #1 (nobody)", got)
	}
}

func TestApplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &Batch{Accounts: []account.Account{{ID: "x", Name: "X", Classification: account.Prospect}}}
	if _, err := Apply(ctx, b, nil, nil, quietLogger()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
