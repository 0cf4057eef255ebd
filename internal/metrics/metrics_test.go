package metrics

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/agenda"
	"github.com/lmsales/sales-hub/internal/feed"
	"github.com/lmsales/sales-hub/internal/ingest"
	"github.com/lmsales/sales-hub/internal/visit"
)

var now = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	snap feed.Snapshot
	err  error
}

func (s stubSource) Load(context.Context) (feed.Snapshot, error) { return s.snap, s.err }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func testSnapshot() feed.Snapshot {
	return feed.Snapshot{
		Accounts: []account.Account{
			{ID: "a", Classification: account.ActiveCustomer, Frequency: account.Weekly},
			{ID: "b", Classification: account.ActiveCustomer, Frequency: account.Monthly},
			{ID: "p1", Classification: account.Prospect, Frequency: account.None, CreatedAt: now.AddDate(0, 0, -2)},
			{ID: "p2", Classification: account.Prospect, Frequency: account.None, CreatedAt: now.AddDate(0, 0, -30)},
		},
		Visits: []visit.Visit{
			{AccountID: "b", ScheduledDate: "2026-04-13", Status: visit.StatusCompleted},
		},
	}
}

func TestTrack(t *testing.T) {
	m := New()
	f := feed.New(stubSource{snap: testSnapshot()}, quietLogger())

	unsubscribe := m.Track(f, func() time.Time { return now }, quietLogger())
	defer unsubscribe()

	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if got := testutil.ToFloat64(m.FeedRefreshes); got != 1 {
		t.Errorf("refreshes = %v, want 1", got)
	}
	// a was never visited on a weekly cadence
	if got := testutil.ToFloat64(m.OverdueAccounts); got != 1 {
		t.Errorf("overdue = %v, want 1", got)
	}
	// a, p1 and p2 have no visits at all
	if got := testutil.ToFloat64(m.StaleAccounts); got != 3 {
		t.Errorf("stale = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.Prospects.WithLabelValues("active")); got != 1 {
		t.Errorf("active prospects = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Prospects.WithLabelValues("lost")); got != 1 {
		t.Errorf("lost prospects = %v, want 1", got)
	}
}

func TestTrackErrors(t *testing.T) {
	m := New()
	f := feed.New(stubSource{err: errors.New("locked")}, quietLogger())

	unsubscribe := m.Track(f, time.Now, quietLogger())
	defer unsubscribe()

	if err := f.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := testutil.ToFloat64(m.FeedErrors); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestObservePlanAndRejections(t *testing.T) {
	m := New()
	m.ObservePlan(agenda.Plan{Entries: make([]agenda.Entry, 3)})
	m.ObserveRejections([]ingest.Rejection{{Kind: ingest.KindVisit}, {Kind: ingest.KindVisit}, {Kind: ingest.KindAccount}})

	if got := testutil.ToFloat64(m.PlansBuilt); got != 1 {
		t.Errorf("plans = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.IngestRejected.WithLabelValues("visit")); got != 2 {
		t.Errorf("visit rejections = %v, want 2", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.PlansBuilt.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"hub_agenda_plans_built_total 1", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("exposition missing %q", name)
		}
	}
}
