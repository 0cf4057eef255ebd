package web

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/agenda"
	"github.com/lmsales/sales-hub/internal/prospect"
)

// seedAgenda creates three accounts with one pending visit each:
// "late" is overdue, "quiet" is stale and "fine" is neither.
func seedAgenda(t *testing.T, d *sql.DB) {
	t.Helper()
	seedAccount(t, d, "late", account.ActiveCustomer, account.Weekly, testNow.AddDate(0, -3, 0))
	seedAccount(t, d, "quiet", account.ActiveCustomer, account.None, testNow.AddDate(0, -3, 0))
	seedAccount(t, d, "fine", account.ActiveCustomer, account.None, testNow.AddDate(0, -3, 0))

	seedVisit(t, d, "late", daysAgo(10), true)
	seedVisit(t, d, "late", daysAgo(0), false)
	seedVisit(t, d, "quiet", daysAgo(9), false)
	seedVisit(t, d, "fine", daysAgo(1), false)
}

func planAccounts(p agenda.Plan) []string {
	ids := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		ids[i] = e.Visit.AccountID
	}
	return ids
}

func TestAPIAgenda(t *testing.T) {
	srv, d, token := testServer(t, Options{})
	seedAgenda(t, d)

	w := apiRequest(t, srv, "GET", "/api/agenda", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	p := decode[agenda.Plan](t, w)

	if diff := cmp.Diff([]string{"late", "quiet", "fine"}, planAccounts(p)); diff != "" {
		t.Errorf("plan order mismatch (-want +got):\n%s", diff)
	}
	if p.Date != "2026-03-20" || p.Capacity != agenda.DefaultCapacity || p.PendingTotal != 3 {
		t.Errorf("date/capacity/pending = %s/%d/%d", p.Date, p.Capacity, p.PendingTotal)
	}
	if got := p.Entries[0].Label; got != "Frequency overdue — 10 days ago" {
		t.Errorf("label = %q", got)
	}
	if got := p.Entries[1].Label; got != "No visit this week" {
		t.Errorf("label = %q", got)
	}
	if len(p.Overdue) != 1 || p.Overdue[0].AccountID != "late" {
		t.Errorf("overdue = %+v, want late", p.Overdue)
	}
	if len(p.Stale) != 1 || p.Stale[0].AccountID != "quiet" {
		t.Errorf("stale = %+v, want quiet", p.Stale)
	}
	if got := testutil.ToFloat64(srv.Metrics().PlansBuilt); got != 1 {
		t.Errorf("plans built = %v, want 1", got)
	}
}

func TestAPIAgendaCapacity(t *testing.T) {
	srv, d, token := testServer(t, Options{Capacity: 2})
	seedAgenda(t, d)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"late", "quiet"}},
		{"?capacity=1", []string{"late"}},
		{"?capacity=0", []string{}},
		{"?capacity=10", []string{"late", "quiet", "fine"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := apiRequest(t, srv, "GET", "/api/agenda"+tt.query, token, nil)
			p := decode[agenda.Plan](t, w)
			if diff := cmp.Diff(tt.want, planAccounts(p)); diff != "" {
				t.Errorf("plan mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAPIAgendaDate(t *testing.T) {
	srv, d, token := testServer(t, Options{})
	seedAgenda(t, d)

	// Twenty days later every account is stale and "late" is still overdue.
	w := apiRequest(t, srv, "GET", "/api/agenda?date=2026-04-09", token, nil)
	p := decode[agenda.Plan](t, w)
	if p.Date != "2026-04-09" {
		t.Errorf("date = %s, want 2026-04-09", p.Date)
	}
	if len(p.Stale) != 2 {
		t.Errorf("stale = %d accounts, want 2", len(p.Stale))
	}
}

func TestAPIAgendaBadParams(t *testing.T) {
	srv, _, token := testServer(t, Options{})

	for _, q := range []string{"?capacity=-1", "?capacity=six", "?date=tomorrow"} {
		t.Run(q, func(t *testing.T) {
			w := apiRequest(t, srv, "GET", "/api/agenda"+q, token, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestAPIProspects(t *testing.T) {
	srv, d, token := testServer(t, Options{})
	seedAccount(t, d, "new", account.Prospect, account.None, testNow.AddDate(0, 0, -2))
	seedAccount(t, d, "cold", account.Prospect, account.None, testNow.AddDate(0, 0, -40))
	seedAccount(t, d, "warm", account.Prospect, account.None, testNow.AddDate(0, 0, -40))
	seedAccount(t, d, "cust", account.ActiveCustomer, account.Weekly, testNow)
	seedVisit(t, d, "warm", daysAgo(15), true)

	w := apiRequest(t, srv, "GET", "/api/prospects", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp struct {
		Summary   prospect.Summary `json:"summary"`
		Prospects []struct {
			Account account.Account `json:"account"`
			State   prospect.State  `json:"state"`
		} `json:"prospects"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := prospect.Summary{Total: 3, Active: 1, AtRisk: 1, Lost: 1}
	if diff := cmp.Diff(want, resp.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	var order []string
	for _, p := range resp.Prospects {
		order = append(order, p.Account.ID+":"+string(p.State))
	}
	if diff := cmp.Diff([]string{"cold:lost", "warm:at_risk", "new:active"}, order); diff != "" {
		t.Errorf("board mismatch (-want +got):\n%s", diff)
	}
}

// readEvent returns the event name and data of the next SSE event,
// skipping comments.
func readEvent(t *testing.T, sc *bufio.Scanner) (string, string) {
	t.Helper()
	var name, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "" && data != "":
			return name, data
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return "", ""
}

func TestAPIAgendaStream(t *testing.T) {
	srv, d, token := testServer(t, Options{})
	seedAgenda(t, d)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/agenda/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	name, data := readEvent(t, sc)
	if name != "plan" {
		t.Fatalf("event = %q, want plan", name)
	}
	var p agenda.Plan
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if len(p.Entries) != 3 {
		t.Fatalf("first plan has %d entries, want 3", len(p.Entries))
	}

	w := apiRequest(t, srv, "POST", "/api/visits", token, map[string]string{
		"account_id": "fine", "date": "2026-03-19", "category": "quote",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add visit status = %d", w.Code)
	}

	_, data = readEvent(t, sc)
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if p.PendingTotal != 4 {
		t.Errorf("pending after write = %d, want 4", p.PendingTotal)
	}
}
