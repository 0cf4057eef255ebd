package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/feed"
	"github.com/lmsales/sales-hub/internal/visit"
)

func importRequest(t *testing.T, srv http.Handler, token, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("POST", path, strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func TestImportYAML(t *testing.T) {
	srv, d, token := testServer(t, Options{})

	doc := `accounts:
  - id: bakery
    name: Corner Bakery
    classification: Active-Customer
    frequency: weekly
  - id: broken
    name: Broken
    classification: partner
visits:
  - account_id: bakery
    date: "2026-03-21"
    category: quote
  - account_id: bakery
    date: 21/03/2026
`
	w := importRequest(t, srv, token, "/api/import", "application/yaml", doc)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	rep := decode[ImportReport](t, w)
	if rep.Accounts != 1 || rep.Visits != 1 || len(rep.Rejected) != 2 {
		t.Errorf("report = %+v", rep)
	}
	if rep.Stored == nil || rep.Stored.Accounts != 1 || rep.Stored.Visits != 1 {
		t.Errorf("stored = %+v", rep.Stored)
	}

	a, err := account.NewRepository(d).GetByID("bakery")
	if err != nil {
		t.Fatalf("get imported account: %v", err)
	}
	if a.Classification != account.ActiveCustomer {
		t.Errorf("classification = %q", a.Classification)
	}
	visits, err := visit.NewRepository(d).List(visit.ListOptions{AccountID: "bakery"})
	if err != nil {
		t.Fatalf("list visits: %v", err)
	}
	if len(visits) != 1 || visits[0].Category != visit.CategoryQuote {
		t.Errorf("visits = %+v", visits)
	}

	for kind, want := range map[string]float64{"account": 1, "visit": 1} {
		if got := testutil.ToFloat64(srv.metrics.IngestRejected.WithLabelValues(kind)); got != want {
			t.Errorf("rejected %s = %v, want %v", kind, got, want)
		}
	}
}

func TestImportDryRunCSV(t *testing.T) {
	srv, d, token := testServer(t, Options{})

	csv := "id,name,classification,frequency\nlead,New Lead,prospect,\n,No ID,prospect,\n"
	w := importRequest(t, srv, token, "/api/import?dry_run=true", "text/csv; charset=utf-8", csv)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	rep := decode[ImportReport](t, w)
	if !rep.DryRun || rep.Accounts != 1 || len(rep.Rejected) != 1 || rep.Stored != nil {
		t.Errorf("report = %+v", rep)
	}

	accounts, err := account.NewRepository(d).List(account.ListOptions{})
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("dry run stored %d accounts", len(accounts))
	}
}

func TestImportErrors(t *testing.T) {
	srv, _, token := testServer(t, Options{})

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		want        int
	}{
		{"unsupported type", "/api/import", "application/xml", "<a/>", http.StatusUnsupportedMediaType},
		{"missing type", "/api/import", "", "{}", http.StatusUnsupportedMediaType},
		{"bad dry_run", "/api/import?dry_run=maybe", "application/json", "{}", http.StatusBadRequest},
		{"malformed json", "/api/import", "application/json", "{", http.StatusBadRequest},
		{"csv without known columns", "/api/import", "text/csv", "foo,bar\n1,2\n", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := importRequest(t, srv, token, tt.path, tt.contentType, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestImportInterruptedRefreshesFeed(t *testing.T) {
	srv, d, token := testServer(t, Options{})
	seedAccount(t, d, "a1", account.Prospect, account.None, testNow)

	var emitted []int
	unsubscribe := srv.Feed().Subscribe(func(s feed.Snapshot) { emitted = append(emitted, len(s.Accounts)) }, nil)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest("POST", "/api/import", strings.NewReader(`{"accounts": [{"id": "a2", "name": "B", "classification": "prospect"}]}`)).WithContext(ctx)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusInternalServerError, w.Body.String())
	}
	if len(emitted) != 1 || emitted[0] != 1 {
		t.Errorf("emissions = %v, want one snapshot after the interrupted import", emitted)
	}
}

func TestImportTwiceSkipsStoredVisits(t *testing.T) {
	srv, d, token := testServer(t, Options{})

	doc := `{"accounts": [{"id": "a1", "name": "A", "classification": "active_customer", "frequency": "weekly"}],
"visits": [{"account_id": "a1", "date": "2026-03-21", "time": "09:00"}]}`

	for run, wantSkipped := range []int{0, 1} {
		w := importRequest(t, srv, token, "/api/import", "application/json", doc)
		if w.Code != http.StatusOK {
			t.Fatalf("run %d: status = %d: %s", run, w.Code, w.Body.String())
		}
		rep := decode[ImportReport](t, w)
		if rep.Stored == nil || rep.Stored.Skipped != wantSkipped || rep.Stored.Visits != 1-wantSkipped {
			t.Errorf("run %d: stored = %+v", run, rep.Stored)
		}
	}

	visits, err := visit.NewRepository(d).List(visit.ListOptions{})
	if err != nil {
		t.Fatalf("list visits: %v", err)
	}
	if len(visits) != 1 {
		t.Errorf("got %d visits after importing twice, want 1", len(visits))
	}
}
